package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version this build reads and writes.
const CurrentVersion = 1

// DirName is the per-project directory holding config and the run ledger.
const DirName = ".chunkmap"

// Config represents the complete chunkmap configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Fetch     FetchConfig     `json:"fetch" mapstructure:"fetch"`
	Browser   BrowserConfig   `json:"browser" mapstructure:"browser"`
	Discovery DiscoveryConfig `json:"discovery" mapstructure:"discovery"`
	Output    OutputConfig    `json:"output" mapstructure:"output"`
	Ledger    LedgerConfig    `json:"ledger" mapstructure:"ledger"`
	Server    ServerConfig    `json:"server" mapstructure:"server"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// FetchConfig contains HTTP retrieval settings
type FetchConfig struct {
	UserAgent       string   `json:"userAgent" mapstructure:"userAgent"`
	TimeoutMs       int      `json:"timeoutMs" mapstructure:"timeoutMs"`
	MaxBodyBytes    int64    `json:"maxBodyBytes" mapstructure:"maxBodyBytes"`
	Concurrency     int      `json:"concurrency" mapstructure:"concurrency"`
	AcceptEncodings []string `json:"acceptEncodings" mapstructure:"acceptEncodings"`
}

// Timeout returns the per-request timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// BrowserConfig contains headless browser settings
type BrowserConfig struct {
	Enabled             bool   `json:"enabled" mapstructure:"enabled"`
	Headless            bool   `json:"headless" mapstructure:"headless"`
	Bin                 string `json:"bin" mapstructure:"bin"`
	ControlURL          string `json:"controlUrl" mapstructure:"controlUrl"`
	NavigationTimeoutMs int    `json:"navigationTimeoutMs" mapstructure:"navigationTimeoutMs"`
	SettleMs            int    `json:"settleMs" mapstructure:"settleMs"`
	ViewportWidth       int    `json:"viewportWidth" mapstructure:"viewportWidth"`
	ViewportHeight      int    `json:"viewportHeight" mapstructure:"viewportHeight"`
	RecordFrames        bool   `json:"recordFrames" mapstructure:"recordFrames"`
	FrameIntervalMs     int    `json:"frameIntervalMs" mapstructure:"frameIntervalMs"`
}

// NavigationTimeout returns the page navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Settle returns how long to wait after load for late scripts.
func (c BrowserConfig) Settle() time.Duration {
	return time.Duration(c.SettleMs) * time.Millisecond
}

// FrameInterval returns the delay between recorded frames.
func (c BrowserConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// DiscoveryConfig contains script discovery settings
type DiscoveryConfig struct {
	PriorityKeywords []string `json:"priorityKeywords" mapstructure:"priorityKeywords"`
	MaxScripts       int      `json:"maxScripts" mapstructure:"maxScripts"`
}

// OutputConfig contains artifact output settings
type OutputConfig struct {
	Dir            string `json:"dir" mapstructure:"dir"`
	KeepCompiled   bool   `json:"keepCompiled" mapstructure:"keepCompiled"`
	KeepSourceMaps bool   `json:"keepSourceMaps" mapstructure:"keepSourceMaps"`
}

// LedgerConfig contains crawl ledger settings
type LedgerConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr         string `json:"addr" mapstructure:"addr"`
	MaxBodyBytes int64  `json:"maxBodyBytes" mapstructure:"maxBodyBytes"`
	// TokenHash is a bcrypt hash; when set, requests need a matching bearer token.
	TokenHash string `json:"tokenHash,omitempty" mapstructure:"tokenHash"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultPriorityKeywords are the URL fragments that mark a script as a likely loader host.
var DefaultPriorityKeywords = []string{"runtime", "main", "app", "vendor", "manifest", "bundle"}

// DefaultUserAgent is sent with every request unless configured otherwise.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Fetch: FetchConfig{
			UserAgent:       DefaultUserAgent,
			TimeoutMs:       30000,
			MaxBodyBytes:    50 << 20,
			Concurrency:     4,
			AcceptEncodings: []string{"zstd", "gzip"},
		},
		Browser: BrowserConfig{
			Enabled:             true,
			Headless:            true,
			NavigationTimeoutMs: 30000,
			SettleMs:            2000,
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			RecordFrames:        false,
			FrameIntervalMs:     500,
		},
		Discovery: DiscoveryConfig{
			PriorityKeywords: append([]string(nil), DefaultPriorityKeywords...),
			MaxScripts:       0,
		},
		Output: OutputConfig{
			Dir:            "output",
			KeepCompiled:   true,
			KeepSourceMaps: true,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    filepath.Join(DirName, "ledger.db"),
		},
		Server: ServerConfig{
			Addr:         "localhost:8420",
			MaxBodyBytes: 10 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from <dir>/.chunkmap/config.json.
// A missing file yields the defaults; CHUNKMAP_* environment variables
// override both (e.g. CHUNKMAP_FETCH_TIMEOUTMS).
func LoadConfig(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, DirName))
	return load(v)
}

// LoadConfigFile loads configuration from an explicit file path.
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CHUNKMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so env overrides apply without a config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("fetch.userAgent", d.Fetch.UserAgent)
	v.SetDefault("fetch.timeoutMs", d.Fetch.TimeoutMs)
	v.SetDefault("fetch.maxBodyBytes", d.Fetch.MaxBodyBytes)
	v.SetDefault("fetch.concurrency", d.Fetch.Concurrency)
	v.SetDefault("fetch.acceptEncodings", d.Fetch.AcceptEncodings)

	v.SetDefault("browser.enabled", d.Browser.Enabled)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.bin", d.Browser.Bin)
	v.SetDefault("browser.controlUrl", d.Browser.ControlURL)
	v.SetDefault("browser.navigationTimeoutMs", d.Browser.NavigationTimeoutMs)
	v.SetDefault("browser.settleMs", d.Browser.SettleMs)
	v.SetDefault("browser.viewportWidth", d.Browser.ViewportWidth)
	v.SetDefault("browser.viewportHeight", d.Browser.ViewportHeight)
	v.SetDefault("browser.recordFrames", d.Browser.RecordFrames)
	v.SetDefault("browser.frameIntervalMs", d.Browser.FrameIntervalMs)

	v.SetDefault("discovery.priorityKeywords", d.Discovery.PriorityKeywords)
	v.SetDefault("discovery.maxScripts", d.Discovery.MaxScripts)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.keepCompiled", d.Output.KeepCompiled)
	v.SetDefault("output.keepSourceMaps", d.Output.KeepSourceMaps)

	v.SetDefault("ledger.enabled", d.Ledger.Enabled)
	v.SetDefault("ledger.path", d.Ledger.Path)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.maxBodyBytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.tokenHash", d.Server.TokenHash)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Save writes the configuration to <dir>/.chunkmap/config.json
func (c *Config) Save(dir string) error {
	configDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.json"), data, 0644)
}

var knownEncodings = map[string]bool{"gzip": true, "zstd": true, "identity": true}

var knownLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	if c.Fetch.TimeoutMs <= 0 {
		return &ConfigError{Field: "fetch.timeoutMs", Message: "must be positive"}
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return &ConfigError{Field: "fetch.maxBodyBytes", Message: "must be positive"}
	}
	if c.Fetch.Concurrency < 1 {
		return &ConfigError{Field: "fetch.concurrency", Message: "must be at least 1"}
	}
	for _, enc := range c.Fetch.AcceptEncodings {
		if !knownEncodings[strings.ToLower(enc)] {
			return &ConfigError{Field: "fetch.acceptEncodings", Message: "unsupported encoding " + enc}
		}
	}

	if c.Browser.Enabled {
		if c.Browser.NavigationTimeoutMs <= 0 {
			return &ConfigError{Field: "browser.navigationTimeoutMs", Message: "must be positive"}
		}
		if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
			return &ConfigError{Field: "browser.viewportWidth", Message: "viewport must be positive"}
		}
		if c.Browser.SettleMs < 0 {
			return &ConfigError{Field: "browser.settleMs", Message: "must not be negative"}
		}
	}
	if c.Browser.RecordFrames && c.Browser.FrameIntervalMs <= 0 {
		return &ConfigError{Field: "browser.frameIntervalMs", Message: "must be positive when recording"}
	}

	if c.Discovery.MaxScripts < 0 {
		return &ConfigError{Field: "discovery.maxScripts", Message: "must not be negative"}
	}
	if c.Output.Dir == "" {
		return &ConfigError{Field: "output.dir", Message: "must not be empty"}
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return &ConfigError{Field: "ledger.path", Message: "must not be empty when the ledger is enabled"}
	}
	if c.Server.Addr == "" {
		return &ConfigError{Field: "server.addr", Message: "must not be empty"}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return &ConfigError{Field: "server.maxBodyBytes", Message: "must be positive"}
	}
	if c.Server.TokenHash != "" && !strings.HasPrefix(c.Server.TokenHash, "$2") {
		return &ConfigError{Field: "server.tokenHash", Message: "must be a bcrypt hash"}
	}
	if c.Logging.Level != "" && !knownLevels[strings.ToLower(c.Logging.Level)] {
		return &ConfigError{Field: "logging.level", Message: "unknown level " + c.Logging.Level}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
