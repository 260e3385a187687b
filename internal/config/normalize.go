package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeClient()
	c.normalizeMail()
	c.normalizeNotifications()
	c.normalizeAnnotation()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	dirs := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.staging_dir", &c.Paths.StagingDir, defaultStagingDir},
		{"paths.documents_dir", &c.Paths.DocumentsDir, defaultDocumentsDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		// An empty download_dir stays empty and means "current directory".
		{"paths.download_dir", &c.Paths.DownloadDir, ""},
	}
	for _, d := range dirs {
		raw := strings.TrimSpace(*d.value)
		if raw == "" {
			raw = d.fallback
		}
		expanded, err := ExpandPath(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.value = expanded
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.PublicURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/")
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://" + c.Server.Bind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("REDLINE_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Server.MaxUploadMiB <= 0 {
		c.Server.MaxUploadMiB = defaultMaxUploadMiB
	}
	if c.Server.StagingTTLMinutes <= 0 {
		c.Server.StagingTTLMinutes = defaultStagingTTLMinutes
	}
	if c.Server.SweepIntervalSeconds <= 0 {
		c.Server.SweepIntervalSeconds = defaultSweepIntervalSeconds
	}
}

func (c *Config) normalizeClient() {
	c.Client.ServerURL = strings.TrimRight(strings.TrimSpace(c.Client.ServerURL), "/")
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = c.Server.PublicURL
	}
	if c.Client.RequestTimeout <= 0 {
		c.Client.RequestTimeout = defaultClientTimeout
	}
	c.Client.APIToken = strings.TrimSpace(c.Client.APIToken)
	if c.Client.APIToken == "" {
		c.Client.APIToken = c.Server.APIToken
	}
}

func (c *Config) normalizeMail() {
	c.Mail.Host = strings.TrimSpace(c.Mail.Host)
	c.Mail.Username = strings.TrimSpace(c.Mail.Username)
	c.Mail.From = strings.TrimSpace(c.Mail.From)
	if c.Mail.Password == "" {
		if value, ok := os.LookupEnv("REDLINE_SMTP_PASSWORD"); ok {
			c.Mail.Password = value
		}
	}
	if c.Mail.Port <= 0 {
		c.Mail.Port = defaultMailPort
	}
	c.Mail.TLSPolicy = strings.ToLower(strings.TrimSpace(c.Mail.TLSPolicy))
	if c.Mail.TLSPolicy == "" {
		c.Mail.TLSPolicy = defaultMailTLSPolicy
	}
	if c.Mail.Timeout <= 0 {
		c.Mail.Timeout = defaultMailTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeAnnotation() {
	if c.Annotation.BaseStrokeWidth <= 0 {
		c.Annotation.BaseStrokeWidth = defaultBaseStrokeWidth
	}
	c.Annotation.StrokeColor = strings.ToLower(strings.TrimSpace(c.Annotation.StrokeColor))
	if c.Annotation.StrokeColor == "" {
		c.Annotation.StrokeColor = defaultStrokeColor
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
