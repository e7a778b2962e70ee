// Package config loads harvester settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Sternrassler/comic-harvester/pkg/harvest"
	"github.com/Sternrassler/comic-harvester/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Prefix is prepended to every variable name, e.g. HARVEST_BASE_URL.
const Prefix = "HARVEST"

// DefaultEnvFile is loaded by Load when no files are given.
const DefaultEnvFile = ".env"

type Config struct {
	// BaseURL maps to HARVEST_BASE_URL.
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	// CollectionSet is sent as the name of the list-collections request.
	CollectionSet string `envconfig:"COLLECTION_SET" default:"valiant"`

	CollectionsPath string `envconfig:"COLLECTIONS_PATH" default:"/comics"`
	ItemsPath       string `envconfig:"ITEMS_PATH" default:"/issues"`
	DetailsPath     string `envconfig:"DETAILS_PATH" default:"/details"`

	// MaxInFlight is the number of detail fetches allowed to perform I/O at once.
	MaxInFlight int `envconfig:"MAX_IN_FLIGHT" default:"5000"`

	// RequestsPerSecond paces detail fetches. Zero means unpaced.
	RequestsPerSecond float64 `envconfig:"REQUESTS_PER_SECOND" default:"0"`

	// RequestTimeout bounds each remote call. Zero means no timeout.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"0s"`

	UserAgent string `envconfig:"USER_AGENT" default:"comic-harvester/0.1.0"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	// OutputFormat is "text" or "json".
	OutputFormat string `envconfig:"OUTPUT_FORMAT" default:"text"`

	// RedisAddr enables the response cache when set.
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	// PushgatewayURL enables the metrics push at the end of a run.
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
}

// Load reads the given env files (default: .env, if present) and then
// processes the environment. Variables already set in the environment win
// over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			files = []string{DefaultEnvFile}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		log.Debug().Strs("files", files).Msg("Loaded env files")
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("HARVEST_BASE_URL is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("HARVEST_BASE_URL must be absolute (got %q)", c.BaseURL))
	}
	if c.CollectionSet == "" {
		errs = append(errs, errors.New("HARVEST_COLLECTION_SET is required"))
	}
	if c.MaxInFlight < 1 {
		errs = append(errs, fmt.Errorf("HARVEST_MAX_IN_FLIGHT must be >= 1 (got %d)", c.MaxInFlight))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("HARVEST_REQUESTS_PER_SECOND must be >= 0 (got %g)", c.RequestsPerSecond))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("HARVEST_REQUEST_TIMEOUT must be >= 0 (got %s)", c.RequestTimeout))
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("HARVEST_LOG_LEVEL: unknown level %q", c.LogLevel))
	}
	if _, err := harvest.ParseFormat(c.OutputFormat); err != nil {
		errs = append(errs, fmt.Errorf("HARVEST_OUTPUT_FORMAT: %w", err))
	}

	return errors.Join(errs...)
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.LogLevel)
	return logging.Config{
		Level:  level,
		Pretty: c.LogPretty,
		Output: os.Stderr,
	}
}

// Format returns the parsed report format.
func (c *Config) Format() harvest.Format {
	f, err := harvest.ParseFormat(c.OutputFormat)
	if err != nil {
		return harvest.FormatText
	}
	return f
}
