package dedup

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCachePersists(t *testing.T) {
	dir := t.TempDir()
	jc, err := NewJobCache(dir, 0, zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, jc.IsSeen("https://jobs.example/1"))
	require.NoError(t, jc.Add("https://jobs.example/1", "dev|acme"))
	assert.True(t, jc.IsSeen("https://jobs.example/1"))

	reloaded, err := NewJobCache(dir, 0, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, reloaded.IsSeen("dev|acme"))
	assert.Equal(t, 2, reloaded.Len())
}

func TestJobCacheDropsExpired(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := now.Add(-31 * 24 * time.Hour).UnixMilli()
	fresh := now.Add(-time.Hour).UnixMilli()
	data := `[{"key":"old","timestamp":` + strconv.FormatInt(old, 10) + `},{"key":"fresh","timestamp":` + strconv.FormatInt(fresh, 10) + `}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen_jobs.json"), []byte(data), 0o644))

	jc, err := NewJobCache(dir, DefaultTTL, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, jc.IsSeen("old"))
	assert.True(t, jc.IsSeen("fresh"))
}

func TestJobCacheCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen_jobs.json"), []byte("{not json"), 0o644))

	jc, err := NewJobCache(dir, 0, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, jc.Len())
}
