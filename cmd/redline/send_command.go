package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"redline/internal/delivery"
	"redline/internal/notifications"
	"redline/internal/preview"
	"redline/internal/staging"
	"redline/internal/workspace"
)

type registryHint struct {
	out io.Writer
}

func (h registryHint) ShowRegistry(context.Context) {
	fmt.Fprintln(h.out, "Run `redline submissions list` to see recorded submissions.")
}

func newSendCommand(ctx *commandContext) *cobra.Command {
	var pages pageFlags
	var message prefillFlags
	var token string
	var recordFailures bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Email annotated pages or a staged bundle and record the submission",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token != "" && len(pages.pages) > 0 {
				return errors.New("use either --token or --page, not both")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd)
			notifier := toastPrinter(cmd.ErrOrStderr())
			navigator := registryHint{out: cmd.ErrOrStderr()}
			alerts := notifications.NewService(ctx.configValue())
			msg := delivery.Message{
				To:            message.to,
				Subject:       message.subject,
				Body:          message.body,
				RecordFailure: recordFailures,
			}

			var outcome delivery.Outcome
			if token != "" {
				location := preview.PreviewURL(client.BaseURL(), staging.Token(token), preview.Prefill{})
				session, err := workspace.OpenPreview(cmd.Context(), location, workspace.PreviewOptions{
					Backend:   client,
					Notifier:  notifier,
					Navigator: navigator,
					Alerts:    alerts,
					Logger:    logger,
				})
				if err != nil {
					return err
				}
				outcome, err = session.Send(cmd.Context(), msg)
				if err != nil {
					return err
				}
			} else {
				c, err := loadCart(pages.fileID, pages.pages)
				if err != nil {
					return err
				}
				orchestrator := delivery.New(delivery.Options{
					Backend:   client,
					Notifier:  notifier,
					Navigator: navigator,
					Alerts:    alerts,
					Logger:    logger,
				})
				outcome, err = orchestrator.Deliver(cmd.Context(), delivery.NewCartSource(c), msg)
				if err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, outcome.Submission)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submission #%d recorded (%d page(s), message %s)\n",
				outcome.Submission.ID, outcome.Submission.PageCount, outcome.Email.MessageID)
			return nil
		},
	}
	pages.register(cmd)
	message.register(cmd)
	cmd.Flags().StringVarP(&token, "token", "t", "", "Send a staged bundle instead of pages")
	cmd.Flags().BoolVar(&recordFailures, "record-failures", false, "Record a failed submission when the email cannot be sent")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the recorded submission as JSON")
	return cmd
}
