// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values, then validate

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Search     SearchConfig     `yaml:"search"`
	Browser    BrowserConfig    `yaml:"browser"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Publish    PublishConfig    `yaml:"publish"`
	WordPress  WordPressConfig  `yaml:"wordpress"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	HTTP       HTTPConfig       `yaml:"http"`
	API        APIConfig        `yaml:"api"`
	AI         AIConfig         `yaml:"ai"`

	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
}

type SearchConfig struct {
	Term        string `yaml:"term"`
	Location    string `yaml:"location"`
	MaxPages    int    `yaml:"max_pages"`
	MaxListings int    `yaml:"max_listings"`
}

type BrowserConfig struct {
	Headless      bool    `yaml:"headless"`
	SlowMo        float64 `yaml:"slow_mo"`
	UserAgent     string  `yaml:"user_agent"`
	Locale        string  `yaml:"locale"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	CookiesPath   string  `yaml:"cookies_path"`
	SelectorsPath string  `yaml:"selectors_path"`
	LockPath      string  `yaml:"lock_path"`
	ScreenshotDir string  `yaml:"screenshot_dir"`
}

type TimeoutsConfig struct {
	Navigation    time.Duration `yaml:"navigation"`
	Results       time.Duration `yaml:"results"`
	Detail        time.Duration `yaml:"detail"`
	Action        time.Duration `yaml:"action"`
	Field         time.Duration `yaml:"field"`
	ExpandSettle  time.Duration `yaml:"expand_settle"`
	InterListing  time.Duration `yaml:"inter_listing"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

type CheckpointConfig struct {
	Console bool `yaml:"console"`
	Remote  bool `yaml:"remote"`
	// Notify sends a Telegram message when a run is suspended.
	Notify bool `yaml:"notify"`
}

type PublishConfig struct {
	Publishers []string      `yaml:"publishers"`
	Spacing    time.Duration `yaml:"spacing"`
	Exclude    []string      `yaml:"exclude"`
	Require    []string      `yaml:"require"`
	CacheDir   string        `yaml:"cache_dir"`
	SeenTTL    time.Duration `yaml:"seen_ttl"`
	LedgerPath string        `yaml:"ledger_path"`
	OutputDir  string        `yaml:"output_dir"`
}

type WordPressConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Status   string `yaml:"status"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type HTTPConfig struct {
	Proxies  []string      `yaml:"proxies"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxPages int           `yaml:"max_pages"`
}

// AIConfig enables the SEO rewrite of each post through an OpenAI-compatible
// chat completions API (Groq by default).
type AIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Publisher names accepted in publish.publishers.
const (
	PublisherStdout    = "stdout"
	PublisherJSON      = "json"
	PublisherWordPress = "wordpress"
	PublisherTelegram  = "telegram"
	PublisherPostgres  = "postgres"
)

var knownPublishers = map[string]bool{
	PublisherStdout:    true,
	PublisherJSON:      true,
	PublisherWordPress: true,
	PublisherTelegram:  true,
	PublisherPostgres:  true,
}

// Load reads path (a missing file means defaults only), applies .env and
// environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Search.Term, "JOBPOST_SEARCH_TERM")
	setString(&c.Search.Location, "JOBPOST_LOCATION")
	setString(&c.Browser.CookiesPath, "JOBPOST_COOKIES_PATH")
	setString(&c.Browser.SelectorsPath, "JOBPOST_SELECTORS_PATH")
	setString(&c.API.Addr, "JOBPOST_API_ADDR")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.WordPress.URL, "WORDPRESS_URL")
	setString(&c.WordPress.Username, "WORDPRESS_USERNAME")
	setString(&c.WordPress.Password, "WORDPRESS_APP_PASSWORD")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.AI.APIKey, "GROQ_API_KEY")
	setList(&c.Publish.Publishers, "JOBPOST_PUBLISHERS")
	setList(&c.HTTP.Proxies, "JOBPOST_PROXIES")

	if v := strings.TrimSpace(os.Getenv("JOBPOST_HEADLESS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid JOBPOST_HEADLESS: %w", err)
		}
		c.Browser.Headless = b
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func orDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

func orString(s *string, def string) {
	if strings.TrimSpace(*s) == "" {
		*s = def
	}
}

func orInt(n *int, def int) {
	if *n <= 0 {
		*n = def
	}
}

func (c *Config) applyDefaults() {
	orInt(&c.Search.MaxPages, 1)

	orString(&c.Browser.Locale, "en-US")
	orInt(&c.Browser.Width, 1366)
	orInt(&c.Browser.Height, 768)
	orString(&c.Browser.CookiesPath, ".cookies/cookies.json")
	orString(&c.Browser.LockPath, ".cache/browser.lock")
	orString(&c.Browser.ScreenshotDir, "logs/screenshots")

	orDuration(&c.Timeouts.Navigation, 30*time.Second)
	orDuration(&c.Timeouts.Results, 15*time.Second)
	orDuration(&c.Timeouts.Detail, 5*time.Second)
	orDuration(&c.Timeouts.Action, 3*time.Second)
	orDuration(&c.Timeouts.Field, 2*time.Second)
	orDuration(&c.Timeouts.ExpandSettle, time.Second)
	orDuration(&c.Timeouts.InterListing, 2*time.Second)
	orInt(&c.Timeouts.RetryAttempts, 2)
	orDuration(&c.Timeouts.RetryDelay, 500*time.Millisecond)

	if len(c.Publish.Publishers) == 0 {
		c.Publish.Publishers = []string{PublisherStdout}
	}
	orDuration(&c.Publish.Spacing, 2*time.Second)
	orString(&c.Publish.CacheDir, ".cache")
	orDuration(&c.Publish.SeenTTL, 30*24*time.Hour)
	orString(&c.Publish.LedgerPath, ".cache/ledger.db")
	orString(&c.Publish.OutputDir, "output")

	orString(&c.WordPress.Status, "publish")

	orDuration(&c.HTTP.Timeout, 30*time.Second)
	orInt(&c.HTTP.MaxPages, 3)

	orString(&c.API.Addr, "127.0.0.1:8088")
}

// Validate checks that every selected publisher has what it needs.
func (c *Config) Validate() error {
	var errs []error
	for _, p := range c.Publish.Publishers {
		if !knownPublishers[p] {
			errs = append(errs, fmt.Errorf("unknown publisher %q", p))
		}
	}
	if c.Uses(PublisherWordPress) && (c.WordPress.URL == "" || c.WordPress.Username == "") {
		errs = append(errs, errors.New("wordpress publisher requires WORDPRESS_URL and WORDPRESS_USERNAME"))
	}
	if c.Uses(PublisherTelegram) || c.Checkpoint.Notify {
		if c.Telegram.Token == "" {
			errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
		}
		if c.Telegram.ChatID == 0 {
			errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required"))
		}
	}
	if c.Uses(PublisherPostgres) && c.DatabaseURL == "" {
		errs = append(errs, errors.New("postgres publisher requires DATABASE_URL"))
	}
	if c.AI.Enabled && c.AI.APIKey == "" {
		errs = append(errs, errors.New("ai rewrite requires GROQ_API_KEY"))
	}
	if c.Search.MaxListings < 0 {
		errs = append(errs, errors.New("search.max_listings must not be negative"))
	}
	return errors.Join(errs...)
}

// Uses reports whether publisher is enabled.
func (c *Config) Uses(publisher string) bool {
	for _, p := range c.Publish.Publishers {
		if p == publisher {
			return true
		}
	}
	return false
}
