package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobpost-automation/internal/models"
)

// fakeAPI answers getMe and sendMessage like the Bot API does.
type fakeAPI struct {
	mu   sync.Mutex
	sent []map[string]string
	fail bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"jobs","username":"jobs_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
			return
		}
		f.sent = append(f.sent, map[string]string{
			"chat_id":      r.Form.Get("chat_id"),
			"text":         r.Form.Get("text"),
			"parse_mode":   r.Form.Get("parse_mode"),
			"reply_markup": r.Form.Get("reply_markup"),
		})
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestBot(t *testing.T, api *fakeAPI) *Bot {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	bot, err := NewBotWithEndpoint("TOKEN", srv.URL+"/bot%s/%s", 42)
	require.NoError(t, err)
	return bot
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `C\+\+ dev \(remote\)\!`, escapeMarkdown("C++ dev (remote)!"))
	assert.Equal(t, `a\_b\.c`, escapeMarkdown("a_b.c"))
}

func TestFormatListing(t *testing.T) {
	l := models.JobListing{
		Title: "Go Dev", Company: "Acme Inc.", Source: "google_jobs",
		Description: models.DescriptionNotFound,
		PostedDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	msg := formatListing(l)
	assert.Contains(t, msg, "💼 *Go Dev*")
	assert.Contains(t, msg, `🏢 Acme Inc\.`)
	assert.Contains(t, msg, "📍 N/A")
	assert.Contains(t, msg, `📅 2026\-03\-01`)
	assert.NotContains(t, msg, "📄")
	assert.Contains(t, msg, `google\_jobs`)

	l.Description = strings.Repeat("x", 700)
	msg = formatListing(l)
	assert.Contains(t, msg, strings.Repeat("x", 600)+"…")
	assert.NotContains(t, msg, strings.Repeat("x", 601))
}

func TestPublishAndNotify(t *testing.T) {
	api := &fakeAPI{}
	bot := newTestBot(t, api)
	assert.Equal(t, "telegram", bot.Name())

	ok, err := bot.Publish(context.Background(), models.JobListing{
		Title: "Go Dev", Company: "Acme", Description: "Build things", URL: "https://jobs.example/1",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, bot.Notify(context.Background(), "captcha on google_jobs"))
	require.NoError(t, bot.SendStatus("run done"))
	require.NoError(t, bot.SendError(errors.New("boom")))

	require.Len(t, api.sent, 4)
	assert.Equal(t, "42", api.sent[0]["chat_id"])
	assert.Equal(t, "MarkdownV2", api.sent[0]["parse_mode"])
	assert.Contains(t, api.sent[0]["reply_markup"], "https://jobs.example/1")
	assert.Equal(t, "⚠️ captcha on google_jobs", api.sent[1]["text"])
	assert.Equal(t, "ℹ️ run done", api.sent[2]["text"])
	assert.Equal(t, "❌ Error: boom", api.sent[3]["text"])
}

func TestPublishFailure(t *testing.T) {
	bot := newTestBot(t, &fakeAPI{fail: true})
	ok, err := bot.Publish(context.Background(), models.JobListing{Title: "Go Dev", Company: "Acme"})
	assert.False(t, ok)
	assert.ErrorContains(t, err, "can't parse entities")
}
