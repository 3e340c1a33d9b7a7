package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EventsBackendNone     = "none"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendPubSub   = "pubsub"
)

type Config struct {
	ServerPort int    `envconfig:"SERVER_PORT" default:"8080"`
	BaseURL    string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	Env        string `envconfig:"ENV" default:"production"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	Database DatabaseConfig
	Auth     AuthConfig
	Google   GoogleConfig
	Redis    RedisConfig
	Events   EventsConfig
}

type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"flashfeather"`
	Password string `envconfig:"DB_PASSWORD" default:"password"`
	DBName   string `envconfig:"DB_NAME" default:"flashfeather_db"`
	UseSSL   bool   `envconfig:"DB_USE_SSL" default:"false"`
}

// AuthConfig holds the token signing secret and lifetimes. TTLs are in seconds.
type AuthConfig struct {
	JWTSecret         string `envconfig:"JWT_SECRET" required:"true"`
	AccessTTLSeconds  int    `envconfig:"ACCESS_TOKEN_EXPIRE_SECONDS" default:"900"`
	RefreshTTLSeconds int    `envconfig:"REFRESH_TOKEN_EXPIRE_SECONDS" default:"604800"`
	CookieSecure      bool   `envconfig:"AUTH_COOKIE_SECURE" default:"true"`
}

func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLSeconds) * time.Second
}

func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLSeconds) * time.Second
}

type GoogleConfig struct {
	ClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	ClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	// RedirectURL defaults to BASE_URL + /api/auth/google/callback.
	RedirectURL string `envconfig:"GOOGLE_REDIRECT_URL"`
}

// Enabled reports whether Google login should be mounted.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// RedisConfig is optional; an empty Addr keeps OAuth state in a cookie.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type EventsConfig struct {
	Backend  string `envconfig:"EVENTS_BACKEND" default:"none"`
	Channel  string `envconfig:"EVENTS_CHANNEL" default:"auth.events"`
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `envconfig:"RABBITMQ_URL"`
	QueueDurable    bool   `envconfig:"RABBITMQ_QUEUE_DURABLE" default:"true"`
	QueueAutoDelete bool   `envconfig:"RABBITMQ_QUEUE_AUTO_DELETE" default:"false"`
	PrefetchCount   int    `envconfig:"RABBITMQ_PREFETCH_COUNT" default:"10"`
}

type PubSubConfig struct {
	ProjectID          string `envconfig:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `envconfig:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `envconfig:"PUBSUB_SUBSCRIPTION_SUFFIX" default:"-sub"`
}

// LoadConfig reads the environment (and .env in dev) into a validated Config.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if cfg.Google.RedirectURL == "" {
		cfg.Google.RedirectURL = strings.TrimRight(cfg.BaseURL, "/") + "/api/auth/google/callback"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		problems = append(problems, "JWT_SECRET must not be empty")
	}
	if c.Auth.AccessTTLSeconds <= 0 || c.Auth.RefreshTTLSeconds <= 0 {
		problems = append(problems, "token lifetimes must be positive")
	} else if c.Auth.AccessTTLSeconds >= c.Auth.RefreshTTLSeconds {
		problems = append(problems, "ACCESS_TOKEN_EXPIRE_SECONDS must be shorter than REFRESH_TOKEN_EXPIRE_SECONDS")
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		problems = append(problems, "GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		problems = append(problems, "BASE_URL must be a valid URL")
	}

	switch c.Events.Backend {
	case EventsBackendNone:
	case EventsBackendRabbitMQ:
		if c.Events.RabbitMQ.URL == "" {
			problems = append(problems, "RABBITMQ_URL is required when EVENTS_BACKEND=rabbitmq")
		}
	case EventsBackendPubSub:
		if c.Events.PubSub.ProjectID == "" {
			problems = append(problems, "PUBSUB_PROJECT_ID is required when EVENTS_BACKEND=pubsub")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown EVENTS_BACKEND %q", c.Events.Backend))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
