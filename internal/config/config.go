package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceName prefixes environment overrides, e.g. ISSUEBLOG_ADDR.
const ServiceName = "issueblog"

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type GitHub struct {
	API        string `yaml:"api"`
	Origin     string `yaml:"origin"`
	APIVersion string `yaml:"api_version"`
	Owner      string `yaml:"owner"`
	Repo       string `yaml:"repo"`
	Token      string `yaml:"token"`
	Exclude    []int  `yaml:"exclude"`
}

type Fetch struct {
	PageSize       int    `yaml:"page_size"`
	Delay          string `yaml:"delay"`
	MaxPages       int    `yaml:"max_pages"`
	MaxRecords     int    `yaml:"max_records"`
	MaxRetries     int    `yaml:"max_retries"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
	Timeout        string `yaml:"timeout"`
}

type Cache struct {
	TTL string `yaml:"ttl"`
	// Path of the SQLite snapshot store; empty keeps snapshots in memory only.
	Path     string `yaml:"path"`
	Articles int    `yaml:"articles"`
}

type Search struct {
	PerPage int `yaml:"per_page"`
}

type Labels struct {
	Order  []string `yaml:"order"`
	Hidden []string `yaml:"hidden"`
}

type Config struct {
	Addr       string `yaml:"addr"`
	DiagAddr   string `yaml:"diag_addr"`
	AdminToken string `yaml:"admin_token"`
	Debug      bool   `yaml:"debug"`
	GitHub     GitHub `yaml:"github"`
	Fetch      Fetch  `yaml:"fetch"`
	Cache      Cache  `yaml:"cache"`
	Search     Search `yaml:"search"`
	Labels     Labels `yaml:"labels"`
}

func (c *Config) Delay() time.Duration {
	return parseDuration(c.Fetch.Delay, 100*time.Millisecond)
}

func (c *Config) InitialBackoff() time.Duration {
	return parseDuration(c.Fetch.InitialBackoff, time.Second)
}

func (c *Config) MaxBackoff() time.Duration {
	return parseDuration(c.Fetch.MaxBackoff, 30*time.Second)
}

func (c *Config) FetchTimeout() time.Duration {
	return parseDuration(c.Fetch.Timeout, 2*time.Minute)
}

func (c *Config) CacheTTL() time.Duration {
	return parseDuration(c.Cache.TTL, time.Hour)
}

// ParseDuration accepts time.ParseDuration syntax plus "Nd" for days.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}

	return time.ParseDuration(s)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := ParseDuration(s)
	if err != nil {
		return def
	}

	return d
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}

	return &cfg, nil
}

// Load reads the embedded defaults, overlays the file at path (if any) and
// then the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Addr = getEnv(envKey("ADDR"), cfg.Addr)
	cfg.DiagAddr = getEnv(envKey("DIAG_ADDR"), cfg.DiagAddr)
	cfg.AdminToken = getEnv(envKey("ADMIN_TOKEN"), cfg.AdminToken)
	cfg.Debug = getEnvBool(envKey("DEBUG"), cfg.Debug)
	cfg.GitHub.API = getEnv(envKey("GITHUB_API"), cfg.GitHub.API)
	cfg.GitHub.Owner = getEnv(envKey("GITHUB_OWNER"), cfg.GitHub.Owner)
	cfg.GitHub.Repo = getEnv(envKey("GITHUB_REPO"), cfg.GitHub.Repo)
	cfg.Cache.Path = getEnv(envKey("CACHE_PATH"), cfg.Cache.Path)

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = getEnv("GITHUB_TOKEN", getEnv("GH_TOKEN", ""))
	}
	cfg.GitHub.Token = getEnv(envKey("GITHUB_TOKEN"), cfg.GitHub.Token)
}

func envKey(name string) string {
	return strings.ToUpper(ServiceName) + "_" + name
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}

func validate(cfg *Config) error {
	for name, raw := range map[string]string{"github.api": cfg.GitHub.API, "github.origin": cfg.GitHub.Origin} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", name, u.Scheme)
		}
	}

	if cfg.Fetch.PageSize <= 0 || cfg.Fetch.PageSize > 100 {
		return fmt.Errorf("fetch.page_size must be in 1..100, got %d", cfg.Fetch.PageSize)
	}
	if cfg.Fetch.MaxPages <= 0 {
		return fmt.Errorf("fetch.max_pages must be positive, got %d", cfg.Fetch.MaxPages)
	}
	if cfg.Fetch.MaxRecords <= 0 {
		return fmt.Errorf("fetch.max_records must be positive, got %d", cfg.Fetch.MaxRecords)
	}
	if cfg.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative, got %d", cfg.Fetch.MaxRetries)
	}
	if cfg.Search.PerPage <= 0 {
		return fmt.Errorf("search.per_page must be positive, got %d", cfg.Search.PerPage)
	}

	for name, raw := range map[string]string{
		"fetch.delay":           cfg.Fetch.Delay,
		"fetch.initial_backoff": cfg.Fetch.InitialBackoff,
		"fetch.max_backoff":     cfg.Fetch.MaxBackoff,
		"fetch.timeout":         cfg.Fetch.Timeout,
		"cache.ttl":             cfg.Cache.TTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

// RequireRepository reports whether owner and repo are set; commands that
// talk to the issue tracker call it before doing any work.
func (c *Config) RequireRepository() error {
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return fmt.Errorf("github.owner and github.repo are required (or %s and %s)",
			envKey("GITHUB_OWNER"), envKey("GITHUB_REPO"))
	}

	return nil
}
