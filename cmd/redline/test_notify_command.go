package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"redline/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test ntfy notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				p.line("ntfy", toneWarn, "no topic configured")
				return nil
			}
			if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			p.line("ntfy", toneOK, "test notification sent to "+cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}
