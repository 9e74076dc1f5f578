// Package config loads settings for the tool server and the web demo.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// environment variables. Command-line flags are applied by each binary on top.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvConfigFile names the environment variable holding the TOML file path.
const EnvConfigFile = "BENKYOKAI_CONFIG"

// Duration is a time.Duration that decodes from TOML strings such as "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// GitHubConfig holds GitHub REST API settings.
type GitHubConfig struct {
	// Token is sent as "Authorization: token <Token>" when non-empty.
	Token string `toml:"token"`

	// Owner is the user or organization that owns every queried repository.
	Owner string `toml:"owner"`

	// APIURL is the REST API root.
	APIURL string `toml:"api_url"`
}

// ZipcloudConfig holds the postal-code search API settings.
type ZipcloudConfig struct {
	URL string `toml:"url"`
}

// HTTPClientConfig tunes outbound requests.
type HTTPClientConfig struct {
	Timeout    Duration `toml:"timeout"`
	MaxRetries int      `toml:"max_retries"`
}

// ToolsConfig tunes the tool registry.
type ToolsConfig struct {
	// StrictUpstreamErrors surfaces upstream failures as tool errors
	// instead of the default descriptive success string.
	StrictUpstreamErrors bool `toml:"strict_upstream_errors"`
}

// ServerConfig holds the MCP tool server transport settings.
type ServerConfig struct {
	// HTTPAddr switches the MCP server to streamable HTTP when non-empty.
	HTTPAddr    string `toml:"http_addr"`
	RateLimit   int    `toml:"rate_limit"` // requests per minute per IP, 0 disables
	MaxBodySize int64  `toml:"max_body_size"`
	MetricsAddr string `toml:"metrics_addr"`
}

// WebConfig holds the web demo settings.
type WebConfig struct {
	Addr        string   `toml:"addr"`
	SSRDelay    Duration `toml:"ssr_delay"`
	MetricsAddr string   `toml:"metrics_addr"`
	TimeZone    string   `toml:"time_zone"`
}

// Config is the complete configuration.
type Config struct {
	LogLevel string           `toml:"log_level"`
	GitHub   GitHubConfig     `toml:"github"`
	Zipcloud ZipcloudConfig   `toml:"zipcloud"`
	HTTP     HTTPClientConfig `toml:"http"`
	Tools    ToolsConfig      `toml:"tools"`
	Server   ServerConfig     `toml:"server"`
	Web      WebConfig        `toml:"web"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
		},
		Zipcloud: ZipcloudConfig{
			URL: "https://zipcloud.ibsnet.co.jp/api/search",
		},
		HTTP: HTTPClientConfig{
			Timeout:    Duration(30 * time.Second),
			MaxRetries: 3,
		},
		Server: ServerConfig{
			RateLimit:   60,
			MaxBodySize: 1 << 20,
		},
		Web: WebConfig{
			Addr:     "localhost:3000",
			SSRDelay: Duration(time.Second),
			TimeZone: "Asia/Tokyo",
		},
	}
}

// Load builds a Config from defaults, the TOML file at path (or at
// $BENKYOKAI_CONFIG when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("GITHUB_TOKEN", &c.GitHub.Token)
	str("GITHUB_OWNER", &c.GitHub.Owner)
	str("GITHUB_API_URL", &c.GitHub.APIURL)
	str("ZIPCLOUD_URL", &c.Zipcloud.URL)
	duration("HTTP_TIMEOUT", &c.HTTP.Timeout)
	integer("MAX_RETRIES", &c.HTTP.MaxRetries)
	boolean("STRICT_UPSTREAM_ERRORS", &c.Tools.StrictUpstreamErrors)
	str("MCP_HTTP_ADDR", &c.Server.HTTPAddr)
	integer("RATE_LIMIT", &c.Server.RateLimit)
	str("METRICS_ADDR", &c.Server.MetricsAddr)
	str("METRICS_ADDR", &c.Web.MetricsAddr)
	str("WEB_ADDR", &c.Web.Addr)
	duration("SSR_DELAY", &c.Web.SSRDelay)
	str("WEB_TIME_ZONE", &c.Web.TimeZone)

	return errors.Join(errs...)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	for name, raw := range map[string]string{"github.api_url": c.GitHub.APIURL, "zipcloud.url": c.Zipcloud.URL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw))
		}
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	if c.HTTP.MaxRetries < 1 {
		errs = append(errs, errors.New("http.max_retries must be at least 1"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, errors.New("server.max_body_size must be positive"))
	}
	if c.Web.SSRDelay < 0 {
		errs = append(errs, errors.New("web.ssr_delay must not be negative"))
	}
	if _, err := time.LoadLocation(c.Web.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("web.time_zone: %w", err))
	}

	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// HasGitHubToken returns true if GitHub requests will be authenticated.
func (c *Config) HasGitHubToken() bool {
	return c.GitHub.Token != ""
}

// NewLogger builds the process logger. Output goes to stderr because stdout
// carries the MCP stdio protocol.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := c.SlogLevel()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
