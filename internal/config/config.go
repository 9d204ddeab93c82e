// Package config loads the engine's runtime configuration from defaults, an
// optional YAML file and HONEYDEW_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/honeydew/review-engine/internal/domain"
)

// EnvPrefix is the prefix of environment variables that override configuration keys.
const EnvPrefix = "HONEYDEW_"

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path          string `koanf:"path" validate:"required"`
	BusyTimeoutMS int    `koanf:"busy_timeout_ms" validate:"gte=0"`
}

// ScalesConfig controls rating scale setup.
type ScalesConfig struct {
	// Fallback is the description of the scale used when a review names none.
	Fallback     string `koanf:"fallback" validate:"required"`
	SeedDefaults bool   `koanf:"seed_defaults"`
}

// LoggingConfig mirrors logging.Config for the file and env layers.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Config holds the engine's runtime configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Scales   ScalesConfig   `koanf:"scales"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "honeydew.db", BusyTimeoutMS: 5000},
		Scales:   ScalesConfig{Fallback: "Thumbs", SeedDefaults: true},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load layers defaults, the YAML file at path (skipped when path is empty) and
// the environment, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps HONEYDEW_DATABASE_BUSY_TIMEOUT_MS to database.busy_timeout_ms.
// The first underscore after the prefix separates the section from the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

// Validate checks every field and reports all problems in one ErrConfigInvalid.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.WrapEngineError(domain.ErrConfigInvalid.Code, domain.ErrConfigInvalid.Message, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			problems = append(problems, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return &domain.EngineError{
		Code:    domain.ErrConfigInvalid.Code,
		Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
	}
}
