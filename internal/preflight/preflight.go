package preflight

import (
	"context"
	"fmt"
	"strings"

	"redline/internal/config"
	"redline/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results do not fail preflight.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Documents directory", cfg.Paths.DocumentsDir),
	}

	for _, status := range deps.Check(deps.Desktop()...) {
		results = append(results, binaryResult(status))
	}

	if cfg.MailEnabled() {
		results = append(results, CheckSMTP(ctx, cfg.Mail))
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

func binaryResult(status deps.Status) Result {
	detail := status.Detail()
	if status.Purpose != "" {
		detail = fmt.Sprintf("%s (%s)", detail, status.Purpose)
	}
	return Result{Name: status.Name, Passed: status.Available(), Detail: detail, Optional: status.Optional}
}

// Slug turns a check name into a log-friendly key.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
