// Package cache provides an optional read-through cache for model
// completions. Prompts for the same catalog and question repeat often
// during interactive use, and a completion is safe to replay because
// every downstream consumer validates it again before acting on it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrMiss reports that a key is absent or expired. Any other error from
// Get is a cache fault, not a miss.
var ErrMiss = errors.New("cache miss")

// Cache defines the interface for local completion caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int64, error)
	Cleanup(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
}

// Entry carries the metadata stored alongside each cached completion.
type Entry struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int64     `json:"size"`
}

// Stats represents cache statistics.
type Stats struct {
	TotalEntries int64   `json:"total_entries"`
	TotalSize    int64   `json:"total_size"`
	HitRate      float64 `json:"hit_rate"`
	MissRate     float64 `json:"miss_rate"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
}

// FileCache implements Cache on the filesystem. Each entry is a pair of
// files keyed by a digest of the cache key: <digest>.data holds the
// completion, <digest>.meta the Entry metadata.
type FileCache struct {
	directory   string
	maxBytes    int64
	defaultTTL  time.Duration
	cleanupFreq time.Duration
	mu          sync.Mutex
	stats       Stats
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewFileCache creates a file-based cache rooted at directory, creating
// it if needed. A background goroutine removes expired entries every
// cleanupFreq until Close is called.
func NewFileCache(
	directory string,
	maxSizeMB int,
	defaultTTL, cleanupFreq time.Duration,
) (*FileCache, error) {
	if strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}

		directory = filepath.Join(home, directory[2:])
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &FileCache{
		directory:   directory,
		maxBytes:    int64(maxSizeMB) * 1024 * 1024,
		defaultTTL:  defaultTTL,
		cleanupFreq: cleanupFreq,
		stopCleanup: make(chan struct{}),
	}

	go cache.backgroundCleanup()

	return cache, nil
}

// Get retrieves a cached completion. Absent and expired keys return an
// error wrapping ErrMiss.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	filePath := c.getFilePath(key)
	metaPath := c.getMetaPath(key)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.stats.Misses++
		return nil, fmt.Errorf("%w: key not found", ErrMiss)
	}

	metaData, err := os.ReadFile(metaPath)
	if err != nil {
		c.stats.Misses++
		return nil, fmt.Errorf("failed to read cache metadata: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(metaData, &entry); err != nil {
		c.stats.Misses++
		return nil, fmt.Errorf("failed to parse cache metadata: %w", err)
	}

	if time.Now().After(entry.ExpiresAt) {
		c.stats.Misses++
		os.Remove(filePath)
		os.Remove(metaPath)

		return nil, fmt.Errorf("%w: entry expired", ErrMiss)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		c.stats.Misses++
		return nil, fmt.Errorf("failed to read cache data: %w", err)
	}

	c.stats.Hits++

	return data, nil
}

// Set stores a completion with the given TTL. A zero TTL uses the
// cache default.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	filePath := c.getFilePath(key)
	metaPath := c.getMetaPath(key)

	entry := Entry{
		Key:       key,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
		Size:      int64(len(data)),
	}

	if err := c.enforceSize(entry.Size); err != nil {
		return fmt.Errorf("failed to enforce cache size: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache data: %w", err)
	}

	metaData, err := json.Marshal(entry)
	if err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, metaData, 0600); err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}

	return nil
}

// Delete removes an entry. Deleting an absent key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	os.Remove(c.getFilePath(key))
	os.Remove(c.getMetaPath(key))

	return nil
}

// Clear removes all entries and resets statistics.
func (c *FileCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			os.Remove(filepath.Join(c.directory, entry.Name()))
		}
	}

	c.stats = Stats{}

	return nil
}

// Size returns the total size of cached completions in bytes.
func (c *FileCache) Size(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	return c.calculateSize()
}

// Cleanup removes expired entries.
func (c *FileCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now()

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta") {
			continue
		}

		metaPath := filepath.Join(c.directory, entry.Name())

		metaData, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var cacheEntry Entry
		if err := json.Unmarshal(metaData, &cacheEntry); err != nil {
			continue
		}

		if now.After(cacheEntry.ExpiresAt) {
			digest := strings.TrimSuffix(entry.Name(), ".meta")

			os.Remove(filepath.Join(c.directory, digest+".data"))
			os.Remove(metaPath)
		}
	}

	return nil
}

// GetStats returns cache statistics.
func (c *FileCache) GetStats(ctx context.Context) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var totalEntries int64

	totalSize, _ := c.calculateSize()

	entries, err := os.ReadDir(c.directory)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".data") {
				totalEntries++
			}
		}
	}

	stats := c.stats
	stats.TotalEntries = totalEntries
	stats.TotalSize = totalSize

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
		stats.MissRate = float64(stats.Misses) / float64(total)
	}

	return &stats, nil
}

// Close stops the background cleanup goroutine.
func (c *FileCache) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})

	return nil
}

func (c *FileCache) getFilePath(key string) string {
	return filepath.Join(c.directory, c.hashKey(key)+".data")
}

func (c *FileCache) getMetaPath(key string) string {
	return filepath.Join(c.directory, c.hashKey(key)+".meta")
}

// hashKey digests a cache key into a short safe filename. Prompts are
// long and contain newlines, so the key never appears in the path.
func (c *FileCache) hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// enforceSize evicts oldest entries until the new entry fits. Caller
// holds the lock.
func (c *FileCache) enforceSize(newEntrySize int64) error {
	currentSize, err := c.calculateSize()
	if err != nil {
		return err
	}

	if currentSize+newEntrySize <= c.maxBytes {
		return nil
	}

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	type entryInfo struct {
		digest  string
		modTime time.Time
		size    int64
	}

	var entryInfos []entryInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		digest := strings.TrimSuffix(entry.Name(), ".meta")

		dataPath := filepath.Join(c.directory, digest+".data")
		if dataInfo, err := os.Stat(dataPath); err == nil {
			entryInfos = append(entryInfos, entryInfo{
				digest:  digest,
				modTime: info.ModTime(),
				size:    dataInfo.Size(),
			})
		}
	}

	sort.Slice(entryInfos, func(i, j int) bool {
		return entryInfos[i].modTime.Before(entryInfos[j].modTime)
	})

	spaceNeeded := (currentSize + newEntrySize) - c.maxBytes

	var spaceFreed int64

	for _, info := range entryInfos {
		if spaceFreed >= spaceNeeded {
			break
		}

		os.Remove(filepath.Join(c.directory, info.digest+".data"))
		os.Remove(filepath.Join(c.directory, info.digest+".meta"))

		spaceFreed += info.size
	}

	return nil
}

// calculateSize sums .data file sizes. Caller holds the lock.
func (c *FileCache) calculateSize() (int64, error) {
	var totalSize int64

	err := filepath.WalkDir(c.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(path, ".data") {
			info, err := d.Info()
			if err != nil {
				return err
			}

			totalSize += info.Size()
		}

		return nil
	})

	return totalSize, err
}

func (c *FileCache) backgroundCleanup() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Cleanup(context.Background())
		case <-c.stopCleanup:
			return
		}
	}
}
