// Package dedup remembers which listings were already published so reruns
// do not post them twice.
package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultTTL = 30 * 24 * time.Hour

type seenEntry struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
}

// JobCache is a seen-set persisted as JSON. Entries older than the TTL are
// dropped on load.
type JobCache struct {
	mu       sync.Mutex
	filePath string
	ttl      time.Duration
	seen     map[string]int64
	now      func() time.Time
	log      zerolog.Logger
}

// NewJobCache creates or loads the cache in dir.
func NewJobCache(dir string, ttl time.Duration, log zerolog.Logger) (*JobCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	jc := &JobCache{
		filePath: filepath.Join(dir, "seen_jobs.json"),
		ttl:      ttl,
		seen:     make(map[string]int64),
		now:      time.Now,
		log:      log,
	}
	if err := jc.load(); err != nil {
		return nil, err
	}
	return jc, nil
}

// IsSeen reports whether key has been recorded.
func (jc *JobCache) IsSeen(key string) bool {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	_, exists := jc.seen[key]
	return exists
}

// Add records keys and persists the cache when anything changed.
func (jc *JobCache) Add(keys ...string) error {
	jc.mu.Lock()
	defer jc.mu.Unlock()

	now := jc.now().UnixMilli()
	changed := false
	for _, key := range keys {
		if _, exists := jc.seen[key]; !exists {
			jc.seen[key] = now
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return jc.save()
}

func (jc *JobCache) Len() int {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	return len(jc.seen)
}

func (jc *JobCache) load() error {
	data, err := os.ReadFile(jc.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", jc.filePath, err)
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		jc.log.Warn().Err(err).Str("path", jc.filePath).Msg("⚠️ Seen cache unreadable, starting empty")
		return nil
	}

	cutoff := jc.now().Add(-jc.ttl).UnixMilli()
	loaded := 0
	for _, e := range entries {
		if e.Timestamp > cutoff {
			jc.seen[e.Key] = e.Timestamp
			loaded++
		}
	}
	jc.log.Info().Int("loaded", loaded).Int("expired", len(entries)-loaded).Msg("📋 Loaded previously seen jobs")
	return nil
}

func (jc *JobCache) save() error {
	entries := make([]seenEntry, 0, len(jc.seen))
	for key, ts := range jc.seen {
		entries = append(entries, seenEntry{Key: key, Timestamp: ts})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seen jobs: %w", err)
	}
	if err := os.WriteFile(jc.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", jc.filePath, err)
	}
	jc.log.Debug().Int("count", len(entries)).Msg("💾 Saved seen jobs")
	return nil
}
