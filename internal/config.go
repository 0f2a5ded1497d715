package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Mpesa         MpesaConfig         `mapstructure:"mpesa"`
	Sermons       SermonsConfig       `mapstructure:"sermons"`
	Livestream    LivestreamConfig    `mapstructure:"livestream"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	GuestTokenSecret string        `mapstructure:"guest_token_secret"`
	GuestTokenTTL    time.Duration `mapstructure:"guest_token_ttl"`
}

// MpesaConfig carries the Daraja credentials. Either a static bearer token or
// a consumer key/secret pair must be present; the secret material is never
// logged.
type MpesaConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ShortCode      string        `mapstructure:"short_code"`
	Passkey        string        `mapstructure:"passkey"`
	ConsumerKey    string        `mapstructure:"consumer_key"`
	ConsumerSecret string        `mapstructure:"consumer_secret"`
	BearerToken    string        `mapstructure:"bearer_token"`
	CallbackURL    string        `mapstructure:"callback_url"`
	AmountCeiling  int64         `mapstructure:"amount_ceiling"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type SermonsConfig struct {
	YouTubeAPIKey       string `mapstructure:"youtube_api_key"`
	YouTubeChannelID    string `mapstructure:"youtube_channel_id"`
	FacebookPageID      string `mapstructure:"facebook_page_id"`
	FacebookAccessToken string `mapstructure:"facebook_access_token"`
	SyncSchedule        string `mapstructure:"sync_schedule"`
	MaxResults          int    `mapstructure:"max_results"`
}

type LivestreamConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type RateLimitConfig struct {
	StkPushRequests int           `mapstructure:"stkpush_requests"`
	StkPushWindow   time.Duration `mapstructure:"stkpush_window"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds the whole config from environment variables, used
// for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 3001),
			BaseURL:           getEnv("APP_URL", "http://localhost:3001"),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			GuestTokenSecret: getEnv("GUEST_TOKEN_SECRET", ""),
			GuestTokenTTL:    getEnvAsDuration("GUEST_TOKEN_TTL", time.Hour),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Mpesa: MpesaConfig{
			BaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ShortCode:      getEnv("MPESA_SHORTCODE", ""),
			Passkey:        getEnv("MPESA_PASSKEY", ""),
			ConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
			BearerToken:    getEnv("MPESA_BEARER_TOKEN", ""),
			CallbackURL:    getEnv("MPESA_CALLBACK_URL", ""),
			AmountCeiling:  int64(getEnvAsInt("MPESA_AMOUNT_CEILING", 150000)),
			Timeout:        getEnvAsDuration("MPESA_TIMEOUT", 20*time.Second),
		},
		Sermons: SermonsConfig{
			YouTubeAPIKey:       getEnv("YOUTUBE_API_KEY", ""),
			YouTubeChannelID:    getEnv("YOUTUBE_CHANNEL_ID", ""),
			FacebookPageID:      getEnv("FACEBOOK_PAGE_ID", ""),
			FacebookAccessToken: getEnv("FACEBOOK_ACCESS_TOKEN", ""),
			SyncSchedule:        getEnv("SERMON_SYNC_SCHEDULE", "0 14 * * SUN"),
			MaxResults:          getEnvAsInt("SERMON_MAX_RESULTS", 10),
		},
		Livestream: LivestreamConfig{
			PollInterval: getEnvAsDuration("LIVE_POLL_INTERVAL", 2*time.Minute),
		},
		RateLimit: RateLimitConfig{
			StkPushRequests: getEnvAsInt("STKPUSH_RATE_LIMIT", 5),
			StkPushWindow:   getEnvAsDuration("STKPUSH_RATE_WINDOW", 15*time.Minute),
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Mpesa.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("mpesa config: %v", err))
	}

	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rate limit config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.GuestTokenSecret) < 32 {
		return errors.New("guest token secret must be at least 32 characters")
	}
	return nil
}

func (c *MpesaConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.ShortCode == "" {
		return errors.New("short_code is required")
	}
	if c.Passkey == "" {
		return errors.New("passkey is required")
	}
	if c.BearerToken == "" && (c.ConsumerKey == "" || c.ConsumerSecret == "") {
		return errors.New("either bearer_token or consumer_key/consumer_secret is required")
	}
	if c.CallbackURL == "" {
		return errors.New("callback_url is required")
	}
	if c.AmountCeiling <= 0 {
		return errors.New("amount_ceiling must be positive")
	}
	return nil
}

func (c *RateLimitConfig) Validate() error {
	if c.StkPushRequests <= 0 {
		return errors.New("stkpush_requests must be positive")
	}
	if c.StkPushWindow <= 0 {
		return errors.New("stkpush_window must be positive")
	}
	return nil
}
