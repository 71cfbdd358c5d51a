package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobpost-automation/internal/checkpoint"
	"go-jobpost-automation/internal/ledger"
	"go-jobpost-automation/internal/models"
	"go-jobpost-automation/internal/scraper"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeHistory struct {
	entries []ledger.Entry
	err     error
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]ledger.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

func do(t *testing.T, router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := NewServer(nil, nil, zerolog.Nop()).SetupRouter()
	w := do(t, router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestStatus(t *testing.T) {
	history := &fakeHistory{entries: []ledger.Entry{{RunID: "r1", Title: "Go Dev", Status: ledger.Published}}}
	srv := NewServer(nil, history, zerolog.Nop())
	router := srv.SetupRouter()

	w := do(t, router, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Last)
	assert.Empty(t, resp.Running)
	assert.Len(t, resp.Recent, 1)
	assert.Equal(t, 20, history.limit)

	srv.Started("r2")
	w = do(t, router, http.MethodGet, "/status?limit=5")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "r2", resp.Running)
	assert.Equal(t, 5, history.limit)

	report := scraper.NewReport("r2", "google_jobs", scraper.Query{SearchTerm: "go"})
	report.Records = []models.JobListing{{Title: "a"}, {Title: "b"}}
	report.Published = 1
	report.Skip(1, 0, "detail pane never appeared")
	srv.Finished(report.Finish(scraper.Exhausted))

	w = do(t, router, http.MethodGet, "/status")
	resp = StatusResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Running)
	require.NotNil(t, resp.Last)
	assert.Equal(t, 2, resp.Last.Emitted)
	assert.Equal(t, 1, resp.Last.Published)
	assert.Equal(t, scraper.Exhausted, resp.Last.Termination)
	assert.Len(t, resp.Last.Skipped, 1)
	assert.Contains(t, resp.Last.Summary, "2 records")
}

func TestStatusErrors(t *testing.T) {
	router := NewServer(nil, &fakeHistory{err: errors.New("disk gone")}, zerolog.Nop()).SetupRouter()

	w := do(t, router, http.MethodGet, "/status?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_limit")

	w = do(t, router, http.MethodGet, "/status")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk gone")
}

func TestCheckpointResume(t *testing.T) {
	remote := checkpoint.NewRemote()
	router := NewServer(remote, nil, zerolog.Nop()).SetupRouter()

	w := do(t, router, http.MethodPost, "/checkpoint/resume")
	assert.Equal(t, http.StatusConflict, w.Code)

	done := make(chan error, 1)
	go func() { done <- remote.Await(context.Background(), "captcha") }()
	require.Eventually(t, func() bool {
		_, _, ok := remote.Pending()
		return ok
	}, time.Second, 5*time.Millisecond)

	w = do(t, router, http.MethodGet, "/checkpoint")
	var cp CheckpointResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cp))
	assert.True(t, cp.Pending)
	assert.Equal(t, "captcha", cp.Reason)
	assert.NotNil(t, cp.Since)

	w = do(t, router, http.MethodPost, "/checkpoint/resume")
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("await was not released")
	}

	w = do(t, router, http.MethodGet, "/checkpoint")
	assert.JSONEq(t, `{"pending":false}`, w.Body.String())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(nil, nil, zerolog.Nop()).Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewServerLeavesDebugMode(t *testing.T) {
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	gin.SetMode(gin.DebugMode)
	NewServer(nil, nil, zerolog.Nop())
	assert.Equal(t, gin.ReleaseMode, gin.Mode())

	gin.SetMode(gin.TestMode)
	NewServer(nil, nil, zerolog.Nop())
	assert.Equal(t, gin.TestMode, gin.Mode())
}
