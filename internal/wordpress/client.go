// Package wordpress publishes listings as posts through the WordPress REST
// API using an application password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-jobpost-automation/internal/models"
)

type Client struct {
	baseURL  string
	username string
	password string
	status   string
	http     *http.Client
}

type Option func(*Client)

// WithStatus sets the post status, "publish" by default.
func WithStatus(status string) Option {
	return func(c *Client) { c.status = status }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL, username, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		status:   "publish",
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return "wordpress"
}

type post struct {
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Status  string         `json:"status"`
	Meta    map[string]any `json:"meta"`
}

type created struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

func buildPost(l models.JobListing, status string) post {
	keyword := l.Keyword()
	meta := l.MetaDescription()
	return post{
		Title:   l.Title,
		Content: l.SEOContent,
		Status:  status,
		Meta: map[string]any{
			"mathrank_focus_keyword":     keyword,
			"mathrank_meta_description":  meta,
			"mathrank_meta_title":        l.Title,
			"mathrank_robots_index":      "index",
			"mathrank_robots_follow":     "follow",
			"_mathrank_focus_keyword":    keyword,
			"_mathrank_meta_description": meta,
		},
	}
}

// Publish creates a post. It reports false with the server's message when
// WordPress rejects the request.
func (c *Client) Publish(ctx context.Context, l models.JobListing) (bool, error) {
	body, err := json.Marshal(buildPost(l, c.status))
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/posts", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("create post: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var wpErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &wpErr)
		if wpErr.Message != "" {
			return false, fmt.Errorf("wordpress %d %s: %s", resp.StatusCode, wpErr.Code, wpErr.Message)
		}
		return false, fmt.Errorf("wordpress http %d", resp.StatusCode)
	}

	var out created
	if err := json.Unmarshal(data, &out); err != nil {
		return false, fmt.Errorf("decode created post: %w", err)
	}
	return out.ID > 0, nil
}
