package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"go-jobpost-automation/internal/api"
	"go-jobpost-automation/internal/config"
	"go-jobpost-automation/internal/ledger"
	"go-jobpost-automation/internal/models"
	"go-jobpost-automation/internal/scraper"
	"go-jobpost-automation/internal/secrets"
)

func testApp(t *testing.T, publishers ...string) (*Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Search.Term = "go developer"
	cfg.Search.MaxPages = 1
	cfg.Publish.Publishers = publishers
	cfg.Publish.CacheDir = filepath.Join(dir, "cache")
	cfg.Publish.SeenTTL = time.Hour
	cfg.Publish.LedgerPath = filepath.Join(dir, "cache", "ledger.db")
	cfg.Publish.OutputDir = filepath.Join(dir, "output")
	cfg.Publish.Exclude = []string{"intern"}

	out := &bytes.Buffer{}
	return &Context{
		In:     strings.NewReader(""),
		Out:    out,
		Err:    &bytes.Buffer{},
		Config: cfg,
		Logger: zerolog.Nop(),
	}, out
}

// fakeScraper emits a fixed set of listings, then waits delay before
// finishing.
type fakeScraper struct {
	listings []models.JobListing
	err      error
	runID    string
	delay    time.Duration
	report   *scraper.Report
}

func (f *fakeScraper) Name() string { return "fake" }

func (f *fakeScraper) Scrape(ctx context.Context, q scraper.Query, emit scraper.Emitter) (*scraper.Report, error) {
	report := scraper.NewReport(f.runID, "fake", q)
	for _, l := range f.listings {
		report.Emit(ctx, emit, l)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			f.report = report.Finish(scraper.Cancelled)
			return f.report, ctx.Err()
		}
	}
	report.Skip(0, len(f.listings), "detail pane not visible")
	f.report = report.Finish(scraper.Exhausted)
	return f.report, f.err
}

func listing(title string) models.JobListing {
	l, _ := models.Assemble(models.Candidate{
		Title: title, Company: "Acme", URL: "https://jobs.example/" + strings.ReplaceAll(title, " ", "-"), Source: "fake",
	}, time.Now())
	return l
}

func TestVersionCmd(t *testing.T) {
	app, out := testApp(t)
	app.Version = "1.2.3 (abc)"
	require.NoError(t, (&VersionCmd{}).Run(app))
	assert.Equal(t, "1.2.3 (abc)\n", out.String())
}

func TestQueryResolve(t *testing.T) {
	app, _ := testApp(t)
	app.Config.Search.Location = "Karachi"

	q, err := QueryOptions{}.resolve(app.Config)
	require.NoError(t, err)
	assert.Equal(t, scraper.Query{SearchTerm: "go developer", Location: "Karachi"}, q)

	q, err = QueryOptions{Term: " rust ", Location: "Lahore"}.resolve(app.Config)
	require.NoError(t, err)
	assert.Equal(t, scraper.Query{SearchTerm: "rust", Location: "Lahore"}, q)

	app.Config.Search.Term = ""
	_, err = QueryOptions{}.resolve(app.Config)
	assert.ErrorContains(t, err, "search term is required")
}

func TestSessionConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Timeouts.Detail = 7 * time.Second
	cfg.Timeouts.RetryAttempts = 4
	cfg.Timeouts.RetryDelay = time.Second
	cfg.Search.MaxPages = 2
	cfg.Search.MaxListings = 10

	sc := sessionConfig(cfg, 0)
	assert.Equal(t, 7*time.Second, sc.DetailTimeout)
	assert.Equal(t, 4, sc.Retry.MaxAttempts)
	assert.Equal(t, time.Second, sc.Retry.Delay)
	assert.Equal(t, 2, sc.MaxPages)
	assert.Equal(t, 10, sc.MaxListings)

	assert.Equal(t, 5, sessionConfig(cfg, 5).MaxPages)
}

func TestSessionConfigRetriesTwiceByDefault(t *testing.T) {
	for _, key := range []string{"JOBPOST_PUBLISHERS", "JOBPOST_HEADLESS", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "GROQ_API_KEY"} {
		t.Setenv(key, "")
	}
	shipped, err := filepath.Abs(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	t.Chdir(t.TempDir())

	for _, path := range []string{filepath.Join(t.TempDir(), "missing.yaml"), shipped} {
		cfg, err := config.Load(path)
		require.NoError(t, err, path)
		assert.Equal(t, 2, sessionConfig(cfg, 0).Retry.MaxAttempts, path)
	}
}

func TestExecuteOutlivesStatusAPI(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	app, out := testApp(t, config.PublisherStdout)
	app.Config.API.Addr = busy.Addr().String()
	pub, err := openPublishing(context.Background(), app)
	require.NoError(t, err)
	defer pub.Close()

	src := &fakeScraper{runID: "run-7", listings: []models.JobListing{listing("Go Developer")}, delay: 200 * time.Millisecond}
	server := api.NewServer(nil, nil, zerolog.Nop())

	require.NoError(t, execute(context.Background(), app, src, scraper.Query{SearchTerm: "go"}, "run-7", pub, server))
	require.NotNil(t, src.report)
	assert.Equal(t, scraper.Exhausted, src.report.Termination)
	assert.Contains(t, out.String(), "Title: Go Developer")
}

func TestGateWithoutCheckpoints(t *testing.T) {
	app, _ := testApp(t)
	assert.Nil(t, gate(app, nil, nil))

	app.Config.Checkpoint.Console = true
	assert.NotNil(t, gate(app, nil, nil))
}

func TestExecutePublishesAndReports(t *testing.T) {
	app, out := testApp(t, config.PublisherStdout, config.PublisherJSON)
	pub, err := openPublishing(context.Background(), app)
	require.NoError(t, err)
	defer pub.Close()

	src := &fakeScraper{
		runID:    "run-42",
		listings: []models.JobListing{listing("Go Developer"), listing("Go Developer"), listing("Go Intern")},
	}
	require.NoError(t, execute(context.Background(), app, src, scraper.Query{SearchTerm: "go"}, "run-42", pub, nil))

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "Title: Go Developer"), "duplicate is published once")
	assert.NotContains(t, text, "Go Intern")
	assert.Contains(t, text, "fake: 3 records, 1 skipped, 1 published (exhausted)")
	assert.Contains(t, text, "skipped page 0 #3: detail pane not visible")

	counts, err := pub.ledger.Counts(context.Background(), "run-42")
	require.NoError(t, err)
	assert.Equal(t, map[ledger.Status]int{ledger.Published: 1, ledger.Duplicate: 1, ledger.Excluded: 1}, counts)

	files, err := filepath.Glob(filepath.Join(app.Config.Publish.OutputDir, "job-search-*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

type countingStore map[string]int

func (c countingStore) CountBySource(_ context.Context, source string) (int, error) {
	return c[source], nil
}

func TestFinishReportsStoredListings(t *testing.T) {
	app, out := testApp(t)
	pub := &publishing{store: countingStore{"fake": 12}}

	report := scraper.NewReport("run-9", "fake", scraper.Query{SearchTerm: "go"}).Finish(scraper.Exhausted)
	require.NoError(t, pub.finish(context.Background(), app, report))
	assert.Contains(t, out.String(), "12 fake listings stored in Postgres")

	out.Reset()
	require.NoError(t, (&publishing{}).finish(context.Background(), app, report))
	assert.NotContains(t, out.String(), "stored in Postgres")
}

func TestExecuteJSONReportAndError(t *testing.T) {
	app, out := testApp(t, config.PublisherStdout)
	app.JSONOutput = true
	pub, err := openPublishing(context.Background(), app)
	require.NoError(t, err)
	defer pub.Close()

	src := &fakeScraper{runID: "run-7", err: errors.New("results never loaded")}
	err = execute(context.Background(), app, src, scraper.Query{SearchTerm: "go"}, "run-7", pub, nil)
	assert.EqualError(t, err, "fake: results never loaded")

	var report scraper.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "run-7", report.RunID)
	assert.Equal(t, scraper.Exhausted, report.Termination)
}

func TestExecuteRewritesWithAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<h2>Rewritten</h2>"}}]}`))
	}))
	defer srv.Close()

	app, _ := testApp(t, config.PublisherJSON)
	app.Config.AI = config.AIConfig{Enabled: true, APIKey: "key", Endpoint: srv.URL}
	pub, err := openPublishing(context.Background(), app)
	require.NoError(t, err)
	defer pub.Close()

	src := &fakeScraper{runID: "run-ai", listings: []models.JobListing{listing("Go Developer")}}
	require.NoError(t, execute(context.Background(), app, src, scraper.Query{SearchTerm: "go"}, "run-ai", pub, nil))

	files, err := filepath.Glob(filepath.Join(app.Config.Publish.OutputDir, "job-search-*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var saved []models.JobListing
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "<h2>Rewritten</h2>", saved[0].SEOContent)
}

func TestOpenPublishingRejectsWordPressWithoutPassword(t *testing.T) {
	keyring.MockInit()
	app, _ := testApp(t, config.PublisherWordPress)
	app.Config.WordPress.URL = "https://blog.example"
	app.Config.WordPress.Username = "editor"

	_, err := openPublishing(context.Background(), app)
	assert.ErrorContains(t, err, "no application password")
}

func TestSecretSetStoresPassword(t *testing.T) {
	keyring.MockInit()
	app, _ := testApp(t)
	app.Config.WordPress.Username = "editor"
	app.In = strings.NewReader("abcd efgh ijkl\n")

	require.NoError(t, (&SecretSetCmd{}).Run(app))
	got, err := secrets.Lookup("", "wordpress:editor")
	require.NoError(t, err)
	assert.Equal(t, "abcd efgh ijkl", got)

	require.NoError(t, (&SecretDeleteCmd{}).Run(app))
	got, err = secrets.Lookup("", "wordpress:editor")
	require.NoError(t, err)
	assert.Empty(t, got)

	app.In = strings.NewReader("")
	assert.Error(t, (&SecretSetCmd{}).Run(app))
}
