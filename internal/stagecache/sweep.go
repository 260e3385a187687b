package stagecache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"redline/internal/logging"
)

// SweepResult contains the outcome of a sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a directory path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Sweep removes expired bundles and orphaned directories older than the TTL.
func (c *Cache) Sweep(ctx context.Context) SweepResult {
	result := SweepResult{}
	now := c.now()

	c.mu.Lock()
	expired := make([]string, 0)
	for token, bundle := range c.bundles {
		if !now.Before(bundle.ExpiresAt) {
			expired = append(expired, token)
			delete(c.bundles, token)
		}
	}
	c.mu.Unlock()

	for _, token := range expired {
		c.remove(filepath.Join(c.root, token), &result)
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: c.root, Error: err})
		}
		return result
	}
	cutoff := now.Add(-c.ttl)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		c.mu.RLock()
		_, live := c.bundles[entry.Name()]
		c.mu.RUnlock()
		if live {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: filepath.Join(c.root, entry.Name()), Error: err})
			continue
		}
		if info.ModTime().Before(cutoff) {
			c.remove(filepath.Join(c.root, entry.Name()), &result)
		}
	}
	return result
}

func (c *Cache) remove(dir string, result *SweepResult) {
	info, statErr := os.Stat(dir)
	if err := os.RemoveAll(dir); err != nil {
		result.Errors = append(result.Errors, SweepError{Path: dir, Error: err})
		c.logger.Warn("failed to remove staged bundle",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldEventType, "staging_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return
	}
	result.Removed = append(result.Removed, dir)
	attrs := []logging.Attr{
		logging.String("path", dir),
		logging.String(logging.FieldEventType, "staging_cleanup"),
	}
	if statErr == nil {
		attrs = append(attrs, logging.Duration("age", time.Since(info.ModTime())))
	}
	c.logger.Debug("removed staged bundle", logging.Args(attrs...)...)
}
