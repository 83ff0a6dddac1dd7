package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Querying Querying `yaml:"querying"`
	Mining   Mining   `yaml:"mining"`
	Archive  Archive  `yaml:"archive"`
	Network  Network  `yaml:"network"`

	// Credentials come from the environment only.
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`

	// HTTP server
	HTTPPort string `yaml:"-"`
	APIKey   string `yaml:"-"`
}

// Querying describes the upstream API.
type Querying struct {
	Host              string `yaml:"host"`
	TokenURL          string `yaml:"token_url"`
	ItemLimitPerQuery int    `yaml:"item_limit_per_query"`
}

// Mining holds the batch mining settings.
type Mining struct {
	ItemPerCategoryThreshold int      `yaml:"item_per_category_threshold"`
	Phrases                  []string `yaml:"phrases"`
	Workers                  int      `yaml:"workers"` // 0 means one per CPU
	DefaultMode              string   `yaml:"default_mode"`
}

// Archive selects where mined results are persisted.
type Archive struct {
	Backend string `yaml:"backend"` // "csv" or "sqlite"
	Dir     string `yaml:"dir"`
}

// Network tunes how politely the upstream is called.
type Network struct {
	RatePerSecond  float64 `yaml:"rate_per_second"`
	RateBurst      int     `yaml:"rate_burst"`
	DelayProfile   string  `yaml:"delay_profile"` // "none", "cautious", "normal", "aggressive"
	RespectRobots  bool    `yaml:"respect_robots"`
	ProxyFile      string  `yaml:"proxy_file"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Querying: Querying{
			Host:              "https://api.allegro.pl",
			TokenURL:          "https://allegro.pl/auth/oauth/token",
			ItemLimitPerQuery: 100,
		},
		Mining: Mining{
			ItemPerCategoryThreshold: 50,
			DefaultMode:              "new_file",
		},
		Archive: Archive{
			Backend: "csv",
			Dir:     "db",
		},
		Network: Network{
			RatePerSecond:  10,
			RateBurst:      runtime.NumCPU(),
			DelayProfile:   "none",
			TimeoutSeconds: 30,
		},
		HTTPPort: "8080",
	}
}

// LoadFile overlays settings from a YAML file. A missing file is not an
// error when optional is true.
func (c *Config) LoadFile(path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads .env file (if present) then overrides config from environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	c.ClientID = os.Getenv("CLIENT_ID")
	c.ClientSecret = os.Getenv("CLIENT_SECRET")

	if v := os.Getenv("MINER_HOST"); v != "" {
		c.Querying.Host = v
	}
	if v := os.Getenv("MINER_TOKEN_URL"); v != "" {
		c.Querying.TokenURL = v
	}
	if v := os.Getenv("MINER_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Querying.ItemLimitPerQuery = n
		}
	}
	if v := os.Getenv("MINER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Mining.ItemPerCategoryThreshold = n
		}
	}
	if v := os.Getenv("MINER_PHRASES"); v != "" {
		c.Mining.Phrases = splitList(v)
	}
	if v := os.Getenv("MINER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Mining.Workers = n
		}
	}
	if v := os.Getenv("MINER_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Network.RatePerSecond = f
		}
	}
	if v := os.Getenv("MINER_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Network.RateBurst = n
		}
	}
	if v := os.Getenv("MINER_DELAY_PROFILE"); v != "" {
		c.Network.DelayProfile = v
	}
	if v := os.Getenv("MINER_PROXIES"); v != "" {
		c.Network.ProxyFile = v
	}
	if v := os.Getenv("MINER_RESPECT_ROBOTS"); v != "" {
		c.Network.RespectRobots = v == "true"
	}
	if v := os.Getenv("MINER_ARCHIVE_BACKEND"); v != "" {
		c.Archive.Backend = v
	}
	if v := os.Getenv("MINER_ARCHIVE_DIR"); v != "" {
		c.Archive.Dir = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("MINER_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// Validate checks every setting a mining run depends on.
func (c *Config) Validate() error {
	var errs []error
	if err := validURL(c.Querying.Host); err != nil {
		errs = append(errs, fmt.Errorf("querying.host: %w", err))
	}
	if err := validURL(c.Querying.TokenURL); err != nil {
		errs = append(errs, fmt.Errorf("querying.token_url: %w", err))
	}
	if n := c.Querying.ItemLimitPerQuery; n < 1 || n > 100 {
		errs = append(errs, fmt.Errorf("querying.item_limit_per_query: %d outside 1..100", n))
	}
	if c.Mining.ItemPerCategoryThreshold < 0 {
		errs = append(errs, errors.New("mining.item_per_category_threshold: must not be negative"))
	}
	if c.Mining.Workers < 0 {
		errs = append(errs, errors.New("mining.workers: must not be negative"))
	}
	switch c.Mining.DefaultMode {
	case "append", "new_file":
	default:
		errs = append(errs, fmt.Errorf("mining.default_mode: unknown mode %q", c.Mining.DefaultMode))
	}
	if err := c.ValidateArchive(); err != nil {
		errs = append(errs, err)
	}
	if c.Network.RatePerSecond <= 0 {
		errs = append(errs, errors.New("network.rate_per_second: must be positive"))
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		errs = append(errs, errors.New("CLIENT_ID and CLIENT_SECRET must be set"))
	}
	return errors.Join(errs...)
}

// ValidateArchive checks only the archive settings, for commands that read
// archives without talking to the API.
func (c *Config) ValidateArchive() error {
	var errs []error
	switch c.Archive.Backend {
	case "csv", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("archive.backend: unknown backend %q", c.Archive.Backend))
	}
	if c.Archive.Dir == "" {
		errs = append(errs, errors.New("archive.dir: required"))
	}
	return errors.Join(errs...)
}

// WorkerCount resolves the configured worker count.
func (c *Config) WorkerCount() int {
	if c.Mining.Workers > 0 {
		return c.Mining.Workers
	}
	return runtime.NumCPU()
}

func validURL(raw string) error {
	if raw == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
