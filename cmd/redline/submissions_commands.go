package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"redline/internal/api"
	"redline/internal/config"
	"redline/internal/registry"
)

func newSubmissionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "submissions",
		Aliases: []string{"sub"},
		Short:   "Browse recorded submissions",
	}
	cmd.AddCommand(newSubmissionsListCommand(ctx))
	cmd.AddCommand(newSubmissionsShowCommand(ctx))
	cmd.AddCommand(newSubmissionsViewCommand(ctx))
	cmd.AddCommand(newSubmissionsDownloadCommand(ctx))
	return cmd
}

func (c *commandContext) registry(cmd *cobra.Command) (*registry.Registry, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	return registry.New(registry.Options{
		Backend:  client,
		Notifier: toastPrinter(cmd.ErrOrStderr()),
		Logger:   c.logger(cmd),
	}), nil
}

func newSubmissionsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := ctx.registry(cmd)
			if err != nil {
				return err
			}
			defer reg.Close()
			items, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			items = filterByStatus(items, statusFilter)
			if jsonOut {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No submissions recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Recipient", "Subject", "Status", "Pages", "Created"},
				submissionRows(items),
				[]align{right, left, left, left, right, left},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show pending, email_sent or failed")
	return cmd
}

func filterByStatus(items []api.Submission, status string) []api.Submission {
	status = strings.TrimSpace(status)
	if status == "" {
		return items
	}
	out := items[:0]
	for _, item := range items {
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out
}

func submissionRows(items []api.Submission) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Recipient,
			truncate(item.Subject, 40),
			humanStatus(item.Status),
			strconv.Itoa(item.PageCount),
			item.CreatedAt,
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func parseSubmissionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid submission id %q", arg)
	}
	return id, nil
}

func newSubmissionsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}
			reg, err := ctx.registry(cmd)
			if err != nil {
				return err
			}
			defer reg.Close()
			item, err := reg.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, item)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submission #%d\n", item.ID)
			fmt.Fprintf(out, "  Recipient: %s\n", item.Recipient)
			fmt.Fprintf(out, "  Subject:   %s\n", item.Subject)
			fmt.Fprintf(out, "  Status:    %s\n", humanStatus(item.Status))
			if item.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:     %s\n", item.ErrorMessage)
			}
			if item.Source != "" {
				fmt.Fprintf(out, "  Source:    %s\n", item.Source)
			}
			if item.FileID != "" {
				fmt.Fprintf(out, "  Document:  %s\n", item.FileID)
			}
			fmt.Fprintf(out, "  Pages:     %d\n", item.PageCount)
			fmt.Fprintf(out, "  Size:      %d bytes\n", item.ArtifactSize)
			fmt.Fprintf(out, "  Created:   %s\n", item.CreatedAt)
			if strings.TrimSpace(item.Body) != "" {
				fmt.Fprintf(out, "\n%s\n", item.Body)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSubmissionsViewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "view <id>",
		Short: "Open a submission's PDF in the desktop viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			// The handle outlives the command so the viewer can read it.
			reg := registry.New(registry.Options{
				Backend:  client,
				TempDir:  os.TempDir(),
				Notifier: toastPrinter(cmd.ErrOrStderr()),
				Logger:   ctx.logger(cmd),
			})
			handle, err := reg.View(cmd.Context(), id)
			if err != nil {
				if handle != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", handle.Path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", handle.Path)
			return nil
		},
	}
}

func newSubmissionsDownloadCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save a submission's PDF as submission-<id>.pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}
			target := strings.TrimSpace(dir)
			if target == "" {
				target = ctx.configValue().Paths.DownloadDir
			}
			target, err = config.ExpandPath(target)
			if err != nil {
				return err
			}
			reg, err := ctx.registry(cmd)
			if err != nil {
				return err
			}
			defer reg.Close()
			path, err := reg.Download(cmd.Context(), id, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Destination directory (default paths.download_dir)")
	return cmd
}
