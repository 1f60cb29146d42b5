// Package config loads the server and engine configuration from the
// environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/hanpama/gqlexec/internal/executor"
)

const DefaultConfigPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Engine    EngineConfig    `yaml:"engine"`
}

type ServerConfig struct {
	ListenAddr      string        `envDefault:"localhost:8080" env:"LISTEN_ADDR" yaml:"listen_addr" validate:"hostname_port"`
	RequestTimeout  time.Duration `envDefault:"10s" env:"REQUEST_TIMEOUT" yaml:"request_timeout" validate:"min=0"`
	Pretty          bool          `envDefault:"false" env:"PRETTY_JSON" yaml:"pretty"`
	MaxBodyBytes    int64         `envDefault:"1048576" env:"MAX_BODY_BYTES" yaml:"max_body_bytes" validate:"min=0"`
	MetadataHeaders []string      `env:"METADATA_HEADERS" envSeparator:"," yaml:"metadata_headers"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," yaml:"cors_origins"`
}

type LogConfig struct {
	Level       string `envDefault:"info" env:"LOG_LEVEL" yaml:"level" validate:"oneof=debug info warn warning error fatal panic"`
	JSON        bool   `envDefault:"true" env:"JSON_LOG" yaml:"json"`
	Development bool   `envDefault:"false" env:"DEV_MODE" yaml:"development"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `env:"OTLP_ENDPOINT" yaml:"otlp_endpoint" validate:"omitempty,hostname_port"`
	ServiceName  string `envDefault:"gqlexec" env:"SERVICE_NAME" yaml:"service_name" validate:"required"`
}

// EngineConfig holds the execution quotas and the mapping cache size.
type EngineConfig struct {
	MaxDepth            int           `envDefault:"0" env:"ENGINE_MAX_DEPTH" yaml:"max_depth" validate:"min=0"`
	MaxOutputObjects    int           `envDefault:"0" env:"ENGINE_MAX_OUTPUT_OBJECTS" yaml:"max_output_objects" validate:"min=0"`
	MaxRequestTime      time.Duration `envDefault:"0s" env:"ENGINE_MAX_REQUEST_TIME" yaml:"max_request_time" validate:"min=0"`
	MaxErrors           int           `envDefault:"100" env:"ENGINE_MAX_ERRORS" yaml:"max_errors" validate:"min=0"`
	IgnoreNonNullFaults bool          `envDefault:"false" env:"ENGINE_IGNORE_NON_NULL_FAULTS" yaml:"ignore_non_null_faults"`
	MappingCacheSize    int64         `envDefault:"1024" env:"ENGINE_MAPPING_CACHE_SIZE" yaml:"mapping_cache_size" validate:"min=0"`
}

// ExecutorOptions converts the engine quotas into executor options.
func (c EngineConfig) ExecutorOptions() []executor.Option {
	return []executor.Option{
		executor.WithOptions(executor.Options{
			MaxDepth:            c.MaxDepth,
			MaxOutputObjects:    c.MaxOutputObjects,
			MaxRequestTime:      c.MaxRequestTime,
			MaxErrors:           c.MaxErrors,
			IgnoreNonNullFaults: c.IgnoreNonNullFaults,
		}),
	}
}

// LoadConfig reads .env files, the environment and then the YAML file at
// path, which overlays the environment. An empty path falls back to
// CONFIG_PATH and then DefaultConfigPath; a missing default file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	isDefault := path == ""
	if isDefault {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
		}
	case isDefault && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	if err := validator.New().Struct(c); err != nil {
		return nil, err
	}
	return &c, nil
}
