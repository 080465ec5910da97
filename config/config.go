// Package config loads rxsavings settings from a YAML file, .env files and
// RXSAVINGS_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rxsavings/claims"
	"rxsavings/logging"
)

// DefaultFeePerRx is the dispensing fee, in dollars, added per prescription
// to the NADAC comparison line.
const DefaultFeePerRx = 10

// Config is the settings shared by the dashboard and loader tools.
type Config struct {
	DataDir     string            `yaml:"data_dir" env:"RXSAVINGS_DATA_DIR"`
	PGURL       string            `yaml:"pg_url" env:"RXSAVINGS_PG_URL"`
	Listen      string            `yaml:"listen" env:"RXSAVINGS_LISTEN"`
	LogLevel    string            `yaml:"log_level" env:"RXSAVINGS_LOG_LEVEL"`
	Development bool              `yaml:"development" env:"RXSAVINGS_DEVELOPMENT"`
	FeePerRx    int               `yaml:"fee_per_rx" env:"RXSAVINGS_FEE_PER_RX"`
	ClassNames  claims.ClassNames `yaml:"class_names"`
}

// Default returns the settings used for keys absent from every source.
func Default() Config {
	return Config{
		Listen:   ":8050",
		LogLevel: "info",
		FeePerRx: DefaultFeePerRx,
	}
}

// Classes returns the configured class display table, or the built-in one.
func (c *Config) Classes() claims.ClassNames {
	if len(c.ClassNames) == 0 {
		return claims.DefaultClassNames()
	}
	return c.ClassNames
}

// Validate rejects settings no tool can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.FeePerRx < 0 {
		errs = append(errs, fmt.Errorf("fee_per_rx: must be non-negative, got %d", c.FeePerRx))
	}
	if c.DataDir == "" && c.PGURL == "" {
		errs = append(errs, errors.New("data_dir or pg_url: one data source is required"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	for i, cn := range c.ClassNames {
		if cn.Code == "" {
			errs = append(errs, fmt.Errorf("class_names[%d]: code is required", i))
		}
	}
	return errors.Join(errs...)
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), .env files and the environment.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// godotenv never overwrites variables that are already set, so the first file
// to define a key wins. Missing files are ignored.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnvOverrides sets every field carrying an env tag whose variable is
// non-empty.
func applyEnvOverrides(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := range v.NumField() {
		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		val := strings.TrimSpace(os.Getenv(name))
		if val == "" {
			continue
		}

		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(val)
		case reflect.Int:
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			field.SetInt(int64(n))
		case reflect.Bool:
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			field.SetBool(b)
		}
	}
	return nil
}
