package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    Server
	Database  Database
	JWT       JWT
	Storage   Storage
	Rabbit    Rabbit
	Logger    LoggerMode
	Sentry    Sentry
	RateLimit RateLimit
	Claim     Claim
	Relay     Relay
}

type Server struct {
	Port           string
	Memory         bool
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Database struct {
	DSN          string
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

type JWT struct {
	Secret string
}

// Storage holds the S3 attachment bucket settings. An empty bucket disables
// attachments.
type Storage struct {
	Bucket     string
	Region     string
	Endpoint   string
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

type Rabbit struct {
	URL   string
	Queue string
}

type LoggerMode struct {
	Development bool
	Level       string
}

type Sentry struct {
	DSN         string
	Environment string
}

type RateLimit struct {
	RPS   float64
	Burst int
}

type Claim struct {
	ReadRetries   int `mapstructure:"read_retries"`
	EffectRetries int `mapstructure:"effect_retries"`
}

type Relay struct {
	Interval    time.Duration
	BatchSize   int `mapstructure:"batch_size"`
	MaxAttempts int `mapstructure:"max_attempts"`
	PublishRPS  int `mapstructure:"publish_rps"`
}

var ErrMissingSecret = errors.New("jwt.secret is required")
var ErrMissingDSN = errors.New("database.dsn is required unless server.memory is set")

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.memory", false)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presign_ttl", 15*time.Minute)
	v.SetDefault("rabbit.queue", "letter-events")
	v.SetDefault("logger.level", "info")
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("claim.read_retries", 3)
	v.SetDefault("claim.effect_retries", 3)
	v.SetDefault("relay.interval", 5*time.Second)
	v.SetDefault("relay.batch_size", 50)
	v.SetDefault("relay.max_attempts", 10)
	v.SetDefault("relay.publish_rps", 100)
}

// Load reads an optional YAML file at path and overlays LETTERBOX_* env vars.
// An empty path loads defaults and env only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("letterbox")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{"database.dsn", "jwt.secret", "storage.bucket", "storage.endpoint",
		"rabbit.url", "logger.development", "sentry.dsn", "sentry.environment"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingSecret
	}
	if c.Database.DSN == "" && !c.Server.Memory {
		return ErrMissingDSN
	}
	return nil
}
