package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"redline/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the redline daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			p := newPrinter(cmd.OutOrStdout())
			p.section("Daemon")
			runTone := toneError
			if status.Running {
				runTone = toneOK
			}
			p.line("Running", runTone, fmt.Sprintf("pid %d at %s", status.PID, client.BaseURL().Redacted()))
			mailTone := toneWarn
			if status.MailEnabled {
				mailTone = toneOK
			}
			p.line("Mail relay", mailTone, "enabled: "+yesNo(status.MailEnabled))
			p.line("Database", toneInfo, status.DatabasePath)
			p.line("Submissions", toneInfo, strconv.Itoa(status.Submissions))
			p.line("Staged bundles", toneInfo, strconv.Itoa(status.StagedBundles))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
