package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	API      APIConfig      `yaml:"api"`
	News     NewsConfig     `yaml:"news"`
	Gates    GatesConfig    `yaml:"gates"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
	Journal  JournalConfig  `yaml:"journal"`
	Server   ServerConfig   `yaml:"server"`
}

// APIConfig holds external service credentials and endpoints
type APIConfig struct {
	Polygon  ProviderConfig `yaml:"polygon"`
	Assessor AssessorConfig `yaml:"assessor"`
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// AssessorConfig holds the news-risk assessor endpoint settings
type AssessorConfig struct {
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// NewsConfig holds the RSS feed list and freshness window
type NewsConfig struct {
	Feeds       []FeedConfig `yaml:"feeds"`
	MaxAgeHours float64      `yaml:"max_age_hours"`
}

// FeedConfig is one named RSS source
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// GatesConfig holds the execution gates applied after signal generation
type GatesConfig struct {
	BlockFriday  bool    `yaml:"block_friday"`
	VIXThreshold float64 `yaml:"vix_threshold"` // 0 disables the gate
}

// ScheduleConfig holds the evaluation window and poke minutes
type ScheduleConfig struct {
	Timezone    string `yaml:"timezone"`
	WindowStart string `yaml:"window_start"` // HH:MM, local to Timezone
	WindowEnd   string `yaml:"window_end"`
	PokeMinutes []int  `yaml:"poke_minutes"` // minutes-of-hour inside the window
}

// WebhookConfig holds per-tier execution URLs and the alert URL
type WebhookConfig struct {
	Aggressive   string `yaml:"aggressive"`
	Normal       string `yaml:"normal"`
	Conservative string `yaml:"conservative"`
	NoTrade      string `yaml:"no_trade"`
	Alert        string `yaml:"alert"`
}

// JournalConfig holds the decision journal settings
type JournalConfig struct {
	Path string `yaml:"path"` // empty disables persistence
}

// ServerConfig holds the HTTP surface settings
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Polygon: ProviderConfig{
				Key:       os.Getenv("POLYGON_API_KEY"),
				RateLimit: 5,
			},
			Assessor: AssessorConfig{
				Key:     os.Getenv("OPENAI_API_KEY"),
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
			},
		},
		News: NewsConfig{
			Feeds: []FeedConfig{
				{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex"},
				{Name: "CNBC", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=100003114"},
				{Name: "MarketWatch", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
			},
			MaxAgeHours: 18,
		},
		Gates: GatesConfig{
			BlockFriday:  true,
			VIXThreshold: 25,
		},
		Schedule: ScheduleConfig{
			Timezone:    "America/New_York",
			WindowStart: "14:30",
			WindowEnd:   "15:30",
			PokeMinutes: []int{30, 50, 10},
		},
		Journal: JournalConfig{
			Path: "volsignal.db",
		},
		Server: ServerConfig{
			Port: 8090,
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Override with environment variables if set
	if key := os.Getenv("POLYGON_API_KEY"); key != "" {
		cfg.API.Polygon.Key = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.API.Assessor.Key = key
	}
	if url := os.Getenv("WEBHOOK_URL_AGGRESSIVE"); url != "" {
		cfg.Webhooks.Aggressive = url
	}
	if url := os.Getenv("WEBHOOK_URL_NORMAL"); url != "" {
		cfg.Webhooks.Normal = url
	}
	if url := os.Getenv("WEBHOOK_URL_CONSERVATIVE"); url != "" {
		cfg.Webhooks.Conservative = url
	}
	if url := os.Getenv("WEBHOOK_URL_NO_TRADE"); url != "" {
		cfg.Webhooks.NoTrade = url
	}
	if url := os.Getenv("ALERT_WEBHOOK_URL"); url != "" {
		cfg.Webhooks.Alert = url
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.Polygon.Key == "" {
		return fmt.Errorf("POLYGON_API_KEY is required")
	}
	if c.API.Polygon.RateLimit < 1 {
		return fmt.Errorf("polygon rate_limit must be at least 1")
	}
	if len(c.News.Feeds) == 0 {
		return fmt.Errorf("at least one news feed is required")
	}
	if c.News.MaxAgeHours <= 0 {
		return fmt.Errorf("max_age_hours must be positive")
	}
	if _, err := parseClock(c.Schedule.WindowStart); err != nil {
		return fmt.Errorf("window_start: %w", err)
	}
	if _, err := parseClock(c.Schedule.WindowEnd); err != nil {
		return fmt.Errorf("window_end: %w", err)
	}
	for _, m := range c.Schedule.PokeMinutes {
		if m < 0 || m > 59 {
			return fmt.Errorf("poke minute %d out of range", m)
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}

// Clock is a minute-resolution time of day.
type Clock struct {
	Hour   int
	Minute int
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

func parseClock(s string) (Clock, error) {
	var c Clock
	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return Clock{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return Clock{}, fmt.Errorf("invalid time %q", s)
	}
	return c, nil
}

// WindowClocks returns the parsed evaluation window bounds. Call Validate
// first.
func (c *Config) WindowClocks() (start, end Clock) {
	start, _ = parseClock(c.Schedule.WindowStart)
	end, _ = parseClock(c.Schedule.WindowEnd)
	return start, end
}
