package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"redline/internal/api"
	"redline/internal/config"
	"redline/internal/delivery"
	"redline/internal/logging"
)

type commandContext struct {
	configFlag *string
	serverFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag, serverFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
			cfg.Client.ServerURL = strings.TrimRight(strings.TrimSpace(*c.serverFlag), "/")
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) client() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg.Client.ServerURL, cfg.Client.APIToken, cfg.ClientTimeout())
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return client, nil
}

// logger writes warnings and above to stderr so command output stays clean.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg := c.configValue()
	level := "warn"
	format := "console"
	if cfg != nil && strings.EqualFold(cfg.Logging.Level, "debug") {
		level = "debug"
	}
	if cfg != nil {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// toastPrinter shows delivery notices on the terminal.
func toastPrinter(w io.Writer) delivery.Notifier {
	p := newPrinter(w)
	return delivery.NotifierFunc(func(severity delivery.Severity, message string) {
		p.line(severityLabel(severity), severityTone(severity), message)
	})
}

func severityLabel(severity delivery.Severity) string {
	switch severity {
	case delivery.SeverityError:
		return "Error"
	case delivery.SeverityWarning:
		return "Warning"
	default:
		return "Notice"
	}
}

func severityTone(severity delivery.Severity) tone {
	switch severity {
	case delivery.SeverityError:
		return toneError
	case delivery.SeverityWarning:
		return toneWarn
	default:
		return toneOK
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
