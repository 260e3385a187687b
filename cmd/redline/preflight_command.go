package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"redline/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, the SMTP relay and ntfy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.section("Preflight")
			failed := 0
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				t := toneOK
				switch {
				case result.Passed:
				case result.Optional:
					t = toneWarn
				default:
					t = toneError
					failed++
				}
				p.line(result.Name, t, result.Detail)
			}
			if !cfg.MailEnabled() {
				p.line("SMTP relay", toneWarn, "not configured; email routes are disabled")
			}
			if failed > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failed)
			}
			return nil
		},
	}
}
