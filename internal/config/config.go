package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
)

// Environment variables read by Load.
const (
	EnvPort             = "PORT"
	EnvSkyWalkingHost   = "SKYWALKING_HOST"
	EnvSkyWalkingPort   = "SKYWALKING_PORT"
	EnvSpanQueryTimeout = "SPANQUERY_TIMEOUT"
	EnvTracesTimeout    = "TRACES_TIMEOUT"
	EnvSpanQueryStep    = "SPANQUERY_STEP"
	EnvAllowedOrigins   = "CORS_ALLOWED_ORIGINS"
	EnvLogLevel         = "LOG_LEVEL"
)

// Load reads the optional env files (".env" when none are given) into the
// process environment and builds the configuration from it. Variables
// already set in the environment take precedence over the files.
func Load(logger *slog.Logger, envFiles ...string) (*domain.AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("env file not found, skipping", "file", f)
				continue
			}
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
		logger.Info("env file loaded", "file", f)
	}

	return FromEnv(os.LookupEnv)
}

// FromEnv builds the configuration from lookup, starting from DefaultConfig.
func FromEnv(lookup func(string) (string, bool)) (*domain.AppConfig, error) {
	cfg := domain.DefaultConfig()
	var err error

	if v, ok := nonEmpty(lookup, EnvPort); ok {
		if cfg.Server.Port, err = parsePort(v); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvPort, err)
		}
	}
	if v, ok := nonEmpty(lookup, EnvSkyWalkingHost); ok {
		cfg.Upstream.Host = v
	}
	if v, ok := nonEmpty(lookup, EnvSkyWalkingPort); ok {
		if cfg.Upstream.Port, err = parsePort(v); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSkyWalkingPort, err)
		}
	}
	if v, ok := nonEmpty(lookup, EnvSpanQueryTimeout); ok {
		if cfg.Upstream.SpanQueryTimeout, err = parseTimeout(v); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSpanQueryTimeout, err)
		}
	}
	if v, ok := nonEmpty(lookup, EnvTracesTimeout); ok {
		if cfg.Upstream.TracesTimeout, err = parseTimeout(v); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTracesTimeout, err)
		}
	}
	if v, ok := nonEmpty(lookup, EnvSpanQueryStep); ok {
		if cfg.Upstream.DefaultStep, err = domain.ParseStep(v); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSpanQueryStep, err)
		}
	}
	if v, ok := nonEmpty(lookup, EnvAllowedOrigins); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) == 0 {
			return nil, fmt.Errorf("%s: no origins in %q", EnvAllowedOrigins, v)
		}
		cfg.Server.AllowedOrigins = origins
	}
	if v, ok := nonEmpty(lookup, EnvLogLevel); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}

	return cfg, nil
}

func nonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func parsePort(v string) (int, error) {
	port, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", v)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// parseTimeout accepts a Go duration ("90s") or a bare number of milliseconds.
func parseTimeout(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %q", v)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %q", v)
	}
	return d, nil
}
