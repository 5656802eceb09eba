// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Strategy names in their fixed execution order.
const (
	StrategyTranscriptAPI = "transcript_api"
	StrategyInnertube     = "innertube"
	StrategyPageScrape    = "page_scrape"
	StrategyYtDLP         = "ytdlp"
	StrategyBrowser       = "browser"
	StrategyRelay         = "relay"
)

// StrategyOrder is the order strategies run in; configuration can only
// enable or disable entries, never reorder them.
var StrategyOrder = []string{
	StrategyTranscriptAPI,
	StrategyInnertube,
	StrategyPageScrape,
	StrategyYtDLP,
	StrategyBrowser,
	StrategyRelay,
}

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Extraction ExtractionConfig
	YtDLP      YtDLPConfig
	Browser    BrowserConfig
	Relay      RelayConfig
	Identity   IdentityConfig
	YouTube    YouTubeConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	RabbitMQ   RabbitMQConfig
	Auth       AuthConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	Version         string
}

// ExtractionConfig controls the fallback chain, its retry policy and the
// shared rate limiter.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ExtractionConfig struct {
	Strategies          []string
	MaxAttempts         int
	RateLimitBaseDelay  time.Duration
	RateLimitMaxDelay   time.Duration
	JitterMin           time.Duration
	JitterMax           time.Duration
	MinRequestInterval  time.Duration
	StrategyTimeout     time.Duration
	MetadataTimeout     time.Duration
	DefaultLanguage     string
	EnglishFallback     bool
	AnyLanguageFallback bool
}

// Enabled reports whether the named strategy is switched on.
func (c ExtractionConfig) Enabled(name string) bool {
	for _, s := range c.Strategies {
		if s == name {
			return true
		}
	}
	return false
}

// YtDLPConfig configures the yt-dlp subprocess strategy.
type YtDLPConfig struct {
	WorkDir string
}

// BrowserConfig configures the headless Chrome strategy.
type BrowserConfig struct {
	ChromePath string
	Headless   bool
	Timeout    time.Duration
	Cooldown   time.Duration
}

// RelayConfig configures the third-party relay API strategy.
type RelayConfig struct {
	BaseURL string
	APIKey  string
}

// IdentityConfig lists proxies and cookies rotated across outbound requests.
type IdentityConfig struct {
	Proxies []string
	Cookies []string
}

// YouTubeConfig contains YouTube Data API credentials and quota limits.
type YouTubeConfig struct {
	APIKey                string
	DailyQuota            int
	QuotaThresholdPercent int
}

// CacheConfig configures the Redis caption cache. An empty URL disables it.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Enabled        bool
	Host           string
	Name           string
	User           string
	Password       string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// DSN builds a PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?pool_max_conns=%d&pool_min_conns=%d&pool_max_conn_idle_time=%s&pool_max_conn_lifetime=%s",
		c.User, c.Password, c.Host, c.Port, c.Name,
		c.MaxConnections, c.MinConnections, c.MaxIdleTime, c.MaxLifetime)
}

// RabbitMQConfig contains RabbitMQ connection and queue configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// AuthConfig lists API keys accepted by the caption endpoints. An empty list
// leaves the API open.
type AuthConfig struct {
	APIKeys []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Container platforms inject PORT.
	_ = viper.BindEnv("server.port", "APP_SERVER_PORT", "PORT")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Extraction.MaxAttempts < 1 {
		return fmt.Errorf("extraction.maxattempts must be at least 1, got %d", c.Extraction.MaxAttempts)
	}
	if c.Extraction.JitterMax < c.Extraction.JitterMin {
		return fmt.Errorf("extraction.jittermax (%s) must not be below extraction.jittermin (%s)",
			c.Extraction.JitterMax, c.Extraction.JitterMin)
	}
	for _, name := range c.Extraction.Strategies {
		if !knownStrategy(name) {
			return fmt.Errorf("unknown extraction strategy %q", name)
		}
	}
	return nil
}

func knownStrategy(name string) bool {
	for _, s := range StrategyOrder {
		if s == name {
			return true
		}
	}
	return false
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 4000)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.readtimeout", 15*time.Second)
	viper.SetDefault("server.writetimeout", 150*time.Second)
	viper.SetDefault("server.requesttimeout", 120*time.Second)
	viper.SetDefault("server.version", "1.0.0")

	// Extraction
	viper.SetDefault("extraction.strategies", []string{
		StrategyTranscriptAPI,
		StrategyInnertube,
		StrategyPageScrape,
		StrategyYtDLP,
	})
	viper.SetDefault("extraction.maxattempts", 2)
	viper.SetDefault("extraction.ratelimitbasedelay", 2*time.Second)
	viper.SetDefault("extraction.ratelimitmaxdelay", 30*time.Second)
	viper.SetDefault("extraction.jittermin", 250*time.Millisecond)
	viper.SetDefault("extraction.jittermax", 1*time.Second)
	viper.SetDefault("extraction.minrequestinterval", 500*time.Millisecond)
	viper.SetDefault("extraction.strategytimeout", 45*time.Second)
	viper.SetDefault("extraction.metadatatimeout", 10*time.Second)
	viper.SetDefault("extraction.defaultlanguage", "ko")
	viper.SetDefault("extraction.englishfallback", true)
	viper.SetDefault("extraction.anylanguagefallback", true)

	// yt-dlp
	viper.SetDefault("ytdlp.workdir", "")

	// Browser
	viper.SetDefault("browser.chromepath", "")
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.timeout", 60*time.Second)
	viper.SetDefault("browser.cooldown", 500*time.Millisecond)

	// Relay
	viper.SetDefault("relay.baseurl", "")
	viper.SetDefault("relay.apikey", "")

	// Identity
	viper.SetDefault("identity.proxies", []string{})
	viper.SetDefault("identity.cookies", []string{})

	// YouTube
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.dailyquota", 10000)
	viper.SetDefault("youtube.quotathresholdpercent", 90)

	// Cache
	viper.SetDefault("cache.redisurl", "")
	viper.SetDefault("cache.ttl", 6*time.Hour)

	// Database
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "captions")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "youtube.captions")
	viper.SetDefault("rabbitmq.queue", "youtube.captions.extracted")
	viper.SetDefault("rabbitmq.routingkey", "captions.extracted")

	// Auth
	viper.SetDefault("auth.apikeys", []string{})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
