package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateMail(); err != nil {
		return err
	}
	if err := c.validateAnnotation(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, err := url.Parse(c.Server.PublicURL); err != nil {
		return fmt.Errorf("server.public_url: %w", err)
	}
	if c.Server.MaxUploadMiB > 1024 {
		return errors.New("server.max_upload_mib must not exceed 1024")
	}
	return nil
}

func (c *Config) validateClient() error {
	parsed, err := url.Parse(c.Client.ServerURL)
	if err != nil {
		return fmt.Errorf("client.server_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("client.server_url must use http or https, got %q", c.Client.ServerURL)
	}
	return nil
}

func (c *Config) validateMail() error {
	if !c.MailEnabled() {
		return nil
	}
	if c.Mail.From == "" {
		return errors.New("mail.from must be set when mail.host is configured")
	}
	if _, err := mail.ParseAddress(c.Mail.From); err != nil {
		return fmt.Errorf("mail.from: %w", err)
	}
	if c.Mail.Port > 65535 {
		return fmt.Errorf("mail.port out of range: %d", c.Mail.Port)
	}
	switch c.Mail.TLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("mail.tls_policy must be mandatory, opportunistic or none, got %q", c.Mail.TLSPolicy)
	}
	if c.Mail.Username != "" && c.Mail.Password == "" {
		return errors.New("mail.password must be set when mail.username is configured (or set REDLINE_SMTP_PASSWORD)")
	}
	return nil
}

func (c *Config) validateAnnotation() error {
	if _, _, _, err := ParseHexColor(c.Annotation.StrokeColor); err != nil {
		return fmt.Errorf("annotation.stroke_color: %w", err)
	}
	return nil
}

// ParseHexColor parses "#rrggbb" into its components.
func ParseHexColor(value string) (uint8, uint8, uint8, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(trimmed) != 6 {
		return 0, 0, 0, fmt.Errorf("expected #rrggbb, got %q", value)
	}
	parsed, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("expected #rrggbb, got %q", value)
	}
	return uint8(parsed >> 16), uint8(parsed >> 8), uint8(parsed), nil
}
