package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

// Config is the process level configuration read from the environment.
// Strategy parameters live in YAML files, see pkg/config.
type Config struct {
	LogLevel string
	LogDir   string

	Data struct {
		Dir string
	}

	Output struct {
		Dir string
	}

	Backtest struct {
		DefaultCapital float64
		Workers        int
	}

	Monitoring struct {
		MetricsAddr string
	}

	// Kite credentials are only carried for external download tooling.
	Kite struct {
		APIKey      string
		AccessToken string
	}
}

// Environment variable names
const (
	EnvDataDir        = "EOD_DATA_DIR"
	EnvOutputDir      = "EOD_OUTPUT_DIR"
	EnvDefaultCapital = "EOD_DEFAULT_CAPITAL"
	EnvLogLevel       = "EOD_LOG_LEVEL"
	EnvLogDir         = "EOD_LOG_DIR"
	EnvWorkers        = "EOD_WORKERS"
	EnvMetricsAddr    = "EOD_METRICS_ADDR"
	EnvKiteAPIKey     = "KITE_API_KEY"
	EnvKiteToken      = "KITE_ACCESS_TOKEN"
)

// LoadEnvFile loads path into the process environment. A missing file is
// not an error; variables already set are not overridden.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return bterrors.Wrap(err, bterrors.KindConfig, "config", "env", "cannot load "+path)
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnv(EnvLogLevel, "info"),
		LogDir:   getEnv(EnvLogDir, ""),
	}
	cfg.Data.Dir = getEnv(EnvDataDir, "data")
	cfg.Output.Dir = getEnv(EnvOutputDir, "results")
	cfg.Monitoring.MetricsAddr = getEnv(EnvMetricsAddr, "")
	cfg.Kite.APIKey = getEnv(EnvKiteAPIKey, "")
	cfg.Kite.AccessToken = getEnv(EnvKiteToken, "")

	var err error
	if cfg.Backtest.DefaultCapital, err = getEnvFloat(EnvDefaultCapital, 500000); err != nil {
		return nil, err
	}
	if cfg.Backtest.Workers, err = getEnvInt(EnvWorkers, runtime.NumCPU()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Backtest.DefaultCapital <= 0 {
		return bterrors.ConfigErrorf("config", "validate", "%s must be positive, got %g", EnvDefaultCapital, c.Backtest.DefaultCapital)
	}
	if c.Backtest.Workers <= 0 {
		return bterrors.ConfigErrorf("config", "validate", "%s must be positive, got %d", EnvWorkers, c.Backtest.Workers)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return bterrors.ConfigErrorf("config", "validate", "%s: unknown level %q", EnvLogLevel, c.LogLevel)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, bterrors.Wrap(err, bterrors.KindConfig, "config", "env", fmt.Sprintf("%s=%q", key, raw))
	}
	return v, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, bterrors.Wrap(err, bterrors.KindConfig, "config", "env", fmt.Sprintf("%s=%q", key, raw))
	}
	return v, nil
}
