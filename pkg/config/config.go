// Package config loads the settings of the copurchase commands from a YAML
// file, an optional .env file and COPURCHASE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "COPURCHASE_"

// Cache backends
const (
	BackendSSTable  = "sstable"
	BackendPostgres = "postgres"
)

// Edges holds the location of each snapshot edge list
type Edges struct {
	EarlyMarch string `yaml:"early_march" validate:"required"`
	LateMarch  string `yaml:"late_march" validate:"required"`
	May        string `yaml:"may" validate:"required"`
	June       string `yaml:"june" validate:"required"`
}

// Cache selects where parsed products are kept between runs
type Cache struct {
	Backend string        `yaml:"backend" validate:"oneof=sstable postgres"`
	Refresh bool          `yaml:"refresh"`
	MaxAge  time.Duration `yaml:"max_age" validate:"gte=0"` // e.g. "168h"; zero never expires
}

// S3 holds the object store settings used for s3:// locations
type S3 struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Server holds the HTTP listener settings
type Server struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`
}

// Config is the complete configuration
type Config struct {
	Metadata    string `yaml:"metadata" validate:"required"`
	Edges       Edges  `yaml:"edges"`
	Table       string `yaml:"table" validate:"required"`
	DataDir     string `yaml:"data_dir" validate:"required"`
	Cache       Cache  `yaml:"cache"`
	DatabaseURL string `yaml:"database_url"`
	S3          S3     `yaml:"s3"`
	Workers     int    `yaml:"workers" validate:"gte=0"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	Server      Server `yaml:"server"`
	MaxDepth    int    `yaml:"max_depth" validate:"gte=1,lte=10"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
// File names are those of the SNAP Amazon datasets.
func DefaultConfig() *Config {
	return &Config{
		Metadata: "amazon-meta.txt.gz",
		Edges: Edges{
			EarlyMarch: "amazon0302.txt.gz",
			LateMarch:  "amazon0312.txt.gz",
			May:        "amazon0505.txt.gz",
			June:       "amazon0601.txt.gz",
		},
		Table:    "products",
		DataDir:  "./data",
		Cache:    Cache{Backend: BackendSSTable},
		LogLevel: "info",
		Server:   Server{Port: 8080},
		MaxDepth: 3,
	}
}

// EdgeLocations returns the edge list location of every snapshot by name
func (c *Config) EdgeLocations() map[string]string {
	return map[string]string{
		model.SnapshotEarlyMarch: c.Edges.EarlyMarch,
		model.SnapshotLateMarch:  c.Edges.LateMarch,
		model.SnapshotMay:        c.Edges.May,
		model.SnapshotJune:       c.Edges.June,
	}
}

// Level returns the configured log level
func (c *Config) Level() model.LogLevel {
	return model.ParseLogLevel(c.LogLevel)
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty), and the environment. A .env file in the working
// directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		model.DefaultLoggerInstance.Debug("No .env file found, using system environment variables")
	}

	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays COPURCHASE_* variables, highest priority
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"METADATA":          &c.Metadata,
		"EDGES_EARLY_MARCH": &c.Edges.EarlyMarch,
		"EDGES_LATE_MARCH":  &c.Edges.LateMarch,
		"EDGES_MAY":         &c.Edges.May,
		"EDGES_JUNE":        &c.Edges.June,
		"TABLE":             &c.Table,
		"DATA_DIR":          &c.DataDir,
		"CACHE_BACKEND":     &c.Cache.Backend,
		"DATABASE_URL":      &c.DatabaseURL,
		"S3_REGION":         &c.S3.Region,
		"S3_ENDPOINT":       &c.S3.Endpoint,
		"S3_ACCESS_KEY":     &c.S3.AccessKey,
		"S3_SECRET_KEY":     &c.S3.SecretKey,
		"LOG_LEVEL":         &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"WORKERS":     &c.Workers,
		"SERVER_PORT": &c.Server.Port,
		"MAX_DEPTH":   &c.MaxDepth,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %q is not an integer", EnvPrefix, key, v)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "CACHE_MAX_AGE"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCACHE_MAX_AGE: %q is not a duration", EnvPrefix, v)
		}
		c.Cache.MaxAge = d
	}

	if v, ok := lookup(EnvPrefix + "CACHE_REFRESH"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCACHE_REFRESH: %q is not a boolean", EnvPrefix, v)
		}
		c.Cache.Refresh = b
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Config)
		if c.Cache.Backend == BackendPostgres && c.DatabaseURL == "" {
			sl.ReportError(c.DatabaseURL, "DatabaseURL", "database_url", "required_for_postgres", "")
		}
	}, Config{})
	return v
}

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
