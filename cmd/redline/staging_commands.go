package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"redline/internal/preview"
	"redline/internal/staging"
)

type pageFlags struct {
	fileID string
	pages  []string
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.fileID, "file", "f", "", "Document id the pages belong to")
	cmd.Flags().StringArrayVarP(&p.pages, "page", "p", nil, "Annotated page as N=overlay.png (repeatable)")
}

type prefillFlags struct {
	to      string
	subject string
	body    string
}

func (p *prefillFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.to, "to", "", "Recipient address")
	cmd.Flags().StringVar(&p.subject, "subject", "", "Email subject")
	cmd.Flags().StringVar(&p.body, "body", "", "Email body")
}

func (p prefillFlags) prefill() preview.Prefill {
	return preview.Prefill{To: p.to, Subject: p.subject, Body: p.body}
}

func newStageCommand(ctx *commandContext) *cobra.Command {
	var pages pageFlags
	var prefill prefillFlags

	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Upload annotated pages and print the preview link",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCart(pages.fileID, pages.pages)
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			token, err := staging.NewClient(client, ctx.logger(cmd)).Stage(cmd.Context(), c)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Token:   %s\n", token)
			fmt.Fprintf(stdout, "Preview: %s\n", preview.PreviewURL(client.BaseURL(), token, prefill.prefill()))
			return nil
		},
	}
	pages.register(cmd)
	prefill.register(cmd)
	return cmd
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var pages pageFlags
	var prefill prefillFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Stage annotated pages and open the preview in a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCart(pages.fileID, pages.pages)
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd)
			browser := &preview.SystemBrowser{Dir: os.TempDir()}
			defer browser.Wait()
			launcher, err := preview.NewLauncher(client.BaseURL().String(), browser, logger)
			if err != nil {
				return err
			}
			result, err := launcher.Launch(cmd.Context(), staging.NewClient(client, logger), c, prefill.prefill())
			if errors.Is(err, preview.ErrPopupBlocked) {
				fmt.Fprintf(cmd.OutOrStdout(), "Could not open a browser. Preview: %s\n", result.URL)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preview opened: %s\n", result.URL)
			return nil
		},
	}
	pages.register(cmd)
	prefill.register(cmd)
	return cmd
}
