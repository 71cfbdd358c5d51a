// Package api serves run status and releases remote checkpoints over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/checkpoint"
	"go-jobpost-automation/internal/ledger"
	"go-jobpost-automation/internal/scraper"
)

// History lists recent publish outcomes.
type History interface {
	Recent(ctx context.Context, limit int) ([]ledger.Entry, error)
}

type Server struct {
	remote  *checkpoint.Remote
	history History
	log     zerolog.Logger

	mu      sync.RWMutex
	running string
	last    *scraper.Report
}

// NewServer switches gin out of debug mode, whose route dump goes to
// stdout. An explicitly chosen mode such as gin.TestMode is kept.
func NewServer(remote *checkpoint.Remote, history History, log zerolog.Logger) *Server {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{remote: remote, history: history, log: log}
}

// Started marks a session as in progress.
func (s *Server) Started(runID string) {
	s.mu.Lock()
	s.running = runID
	s.mu.Unlock()
}

// Finished stores the report of the session that just ended.
func (s *Server) Finished(r *scraper.Report) {
	s.mu.Lock()
	s.running = ""
	s.last = r
	s.mu.Unlock()
}

type ReportView struct {
	RunID       string              `json:"run_id"`
	Source      string              `json:"source"`
	Query       scraper.Query       `json:"query"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Emitted     int                 `json:"emitted"`
	Skipped     []scraper.Skip      `json:"skipped"`
	Published   int                 `json:"published"`
	Termination scraper.Termination `json:"termination"`
	Summary     string              `json:"summary"`
}

type StatusResponse struct {
	Running string         `json:"running,omitempty"`
	Last    *ReportView    `json:"last,omitempty"`
	Recent  []ledger.Entry `json:"recent"`
}

type CheckpointResponse struct {
	Pending bool       `json:"pending"`
	Reason  string     `json:"reason,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
}

func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.HandleHealth)
	router.GET("/status", s.HandleStatus)
	router.GET("/checkpoint", s.HandleCheckpoint)
	router.POST("/checkpoint/resume", s.HandleResume)
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("🌐 api request")
	}
}

func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) HandleStatus(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_limit", "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	resp := StatusResponse{Recent: []ledger.Entry{}}
	s.mu.RLock()
	resp.Running = s.running
	if s.last != nil {
		resp.Last = &ReportView{
			RunID:       s.last.RunID,
			Source:      s.last.Source,
			Query:       s.last.Query,
			StartedAt:   s.last.StartedAt,
			FinishedAt:  s.last.FinishedAt,
			Emitted:     len(s.last.Records),
			Skipped:     s.last.Skipped,
			Published:   s.last.Published,
			Termination: s.last.Termination,
			Summary:     s.last.Summary(),
		}
	}
	s.mu.RUnlock()

	if s.history != nil {
		entries, err := s.history.Recent(c.Request.Context(), limit)
		if err != nil {
			s.log.Error().Err(err).Msg("❌ failed to read ledger")
			c.JSON(http.StatusInternalServerError, errorResponse("ledger_unavailable", err.Error()))
			return
		}
		if entries != nil {
			resp.Recent = entries
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleCheckpoint(c *gin.Context) {
	if s.remote == nil {
		c.JSON(http.StatusOK, CheckpointResponse{})
		return
	}
	reason, since, ok := s.remote.Pending()
	resp := CheckpointResponse{Pending: ok, Reason: reason}
	if ok {
		resp.Since = &since
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleResume(c *gin.Context) {
	if s.remote == nil || !s.remote.Resume() {
		c.JSON(http.StatusConflict, errorResponse("not_suspended", "no session is waiting on a checkpoint"))
		return
	}
	s.log.Info().Msg("▶️ checkpoint released over HTTP")
	c.JSON(http.StatusOK, gin.H{"resumed": true})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("🌐 status API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
