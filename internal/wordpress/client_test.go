package wordpress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobpost-automation/internal/models"
)

func testListing(t *testing.T, description string) models.JobListing {
	t.Helper()
	l, err := models.Assemble(models.Candidate{
		Title: "Go Developer", Company: "Acme", Location: "Karachi",
		Description: description, URL: "https://jobs.example/1",
	}, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return l
}

func TestPublishCreatesPost(t *testing.T) {
	var got post
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "editor", user)
		assert.Equal(t, "abcd efgh", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 42, "link": "https://blog.example/?p=42"}`))
	}))
	defer srv.Close()

	description := strings.Repeat("a", 200)
	ok, err := New(srv.URL+"/", "editor", "abcd efgh").Publish(context.Background(), testListing(t, description))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "Go Developer", got.Title)
	assert.Equal(t, "publish", got.Status)
	assert.Contains(t, got.Content, "<h2>Go Developer at Acme</h2>")
	assert.Equal(t, "Go Developer", got.Meta["mathrank_focus_keyword"])
	meta := got.Meta["mathrank_meta_description"].(string)
	assert.Len(t, meta, 160)
	assert.True(t, strings.HasSuffix(meta, "..."))
	assert.Equal(t, meta, got.Meta["_mathrank_meta_description"])
	assert.Equal(t, "index", got.Meta["mathrank_robots_index"])
}

func TestPublishReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"rest_cannot_create","message":"Sorry, you are not allowed to create posts as this user."}`))
	}))
	defer srv.Close()

	ok, err := New(srv.URL, "editor", "wrong", WithStatus("draft")).Publish(context.Background(), testListing(t, "short"))
	assert.False(t, ok)
	assert.ErrorContains(t, err, "rest_cannot_create")
}

func TestBuildPostUsesFocusKeyword(t *testing.T) {
	kw := "go developer"
	l := models.JobListing{Title: "Senior Go Developer", Description: "short", FocusKeyword: &kw}
	p := buildPost(l, "draft")
	assert.Equal(t, "go developer", p.Meta["mathrank_focus_keyword"])
	assert.Equal(t, "short", p.Meta["mathrank_meta_description"])
	assert.Equal(t, "draft", p.Status)
}
