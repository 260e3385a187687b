package stagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"redline/internal/logging"
	"redline/internal/services"
)

const (
	artifactName = "artifact.pdf"
	metadataName = "bundle.json"

	// freeSpaceFloor is the minimum free-space ratio required to accept a bundle.
	freeSpaceFloor = 0.05
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Bundle describes one staged artifact.
type Bundle struct {
	Token     string    `json:"token"`
	FileID    string    `json:"file_id,omitempty"`
	Pages     []int     `json:"pages"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache is safe for concurrent use.
type Cache struct {
	root   string
	ttl    time.Duration
	logger *slog.Logger
	statfs statfsFunc
	now    func() time.Time

	mu      sync.RWMutex
	bundles map[string]Bundle
}

// Open prepares root and indexes bundles left by a previous run.
func Open(root string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "stagecache", "open", "staging directory is empty", nil)
	}
	if ttl <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "stagecache", "open", "ttl must be positive", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	c := &Cache{
		root:    root,
		ttl:     ttl,
		logger:  logging.NewComponentLogger(logger, "stagecache"),
		statfs:  realStatfs,
		now:     time.Now,
		bundles: make(map[string]Bundle),
	}
	c.loadIndex()
	return c, nil
}

func (c *Cache) loadIndex() {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.root, entry.Name(), metadataName))
		if err != nil {
			continue
		}
		var bundle Bundle
		if err := json.Unmarshal(data, &bundle); err != nil || bundle.Token != entry.Name() {
			continue
		}
		c.bundles[bundle.Token] = bundle
	}
}

// Put stores artifact and returns its bundle. pages is recorded in ascending order.
func (c *Cache) Put(ctx context.Context, fileID string, pages []int, artifact []byte) (Bundle, error) {
	if len(artifact) == 0 {
		return Bundle{}, services.Wrap(services.ErrValidation, "stagecache", "put", "artifact is empty", nil)
	}
	if ok, err := c.freeSpaceOK(); err == nil && !ok {
		c.Sweep(ctx)
		if ok, _ := c.freeSpaceOK(); !ok {
			return Bundle{}, services.Wrap(services.ErrTransient, "stagecache", "put", "staging filesystem is nearly full", nil)
		}
	}

	now := c.now().UTC()
	bundle := Bundle{
		Token:     uuid.NewString(),
		FileID:    fileID,
		Pages:     slices.Sorted(slices.Values(pages)),
		Size:      int64(len(artifact)),
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	dir := filepath.Join(c.root, bundle.Token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Bundle{}, fmt.Errorf("create bundle directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, artifactName), artifact, 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return Bundle{}, fmt.Errorf("write artifact: %w", err)
	}
	meta, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		_ = os.RemoveAll(dir)
		return Bundle{}, fmt.Errorf("encode bundle metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataName), meta, 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return Bundle{}, fmt.Errorf("write bundle metadata: %w", err)
	}

	c.mu.Lock()
	c.bundles[bundle.Token] = bundle
	c.mu.Unlock()

	c.logger.Info("bundle staged",
		logging.String(logging.FieldToken, bundle.Token),
		logging.Int("pages", len(bundle.Pages)),
		logging.Int64("bytes", bundle.Size),
		logging.String(logging.FieldEventType, "bundle_staged"),
	)
	return bundle, nil
}

// Get returns the bundle for token.
func (c *Cache) Get(token string) (Bundle, error) {
	if _, err := uuid.Parse(token); err != nil {
		return Bundle{}, services.Wrap(services.ErrNotFound, "stagecache", "get", "malformed token", nil)
	}
	c.mu.RLock()
	bundle, ok := c.bundles[token]
	c.mu.RUnlock()
	if !ok || !c.now().Before(bundle.ExpiresAt) {
		return Bundle{}, services.Wrap(services.ErrTokenExpired, "stagecache", "get", "staged bundle expired or evicted", nil)
	}
	return bundle, nil
}

// Artifact loads the composed PDF for token.
func (c *Cache) Artifact(token string) ([]byte, Bundle, error) {
	bundle, err := c.Get(token)
	if err != nil {
		return nil, Bundle{}, err
	}
	data, err := os.ReadFile(filepath.Join(c.root, token, artifactName))
	if errors.Is(err, os.ErrNotExist) {
		c.forget(token)
		return nil, Bundle{}, services.Wrap(services.ErrTokenExpired, "stagecache", "artifact", "staged bundle evicted", nil)
	}
	if err != nil {
		return nil, Bundle{}, fmt.Errorf("read artifact: %w", err)
	}
	return data, bundle, nil
}

// Len returns the number of live bundles.
func (c *Cache) Len() int {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, bundle := range c.bundles {
		if now.Before(bundle.ExpiresAt) {
			n++
		}
	}
	return n
}

// TTL returns the bundle lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) forget(token string) {
	c.mu.Lock()
	delete(c.bundles, token)
	c.mu.Unlock()
}

func (c *Cache) freeSpaceOK() (bool, error) {
	total, free, err := c.statfs(c.root)
	if err != nil || total == 0 {
		return true, err
	}
	return float64(free)/float64(total) >= freeSpaceFloor, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
