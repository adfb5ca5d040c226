package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "CREDITVAULT_LOG_LEVEL"
	EnvLogNoColor = "CREDITVAULT_LOG_NOCOLOR"
	EnvLogJSON    = "CREDITVAULT_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileCLI
	ProfileTest
)

// Config controls the process logger.
type Config struct {
	Level   zerolog.Level
	NoColor bool
	JSON    bool
	Out     io.Writer
}

func DefaultConfig(profile Profile) Config {
	cfg := Config{Level: zerolog.InfoLevel, Out: os.Stderr}
	switch profile {
	case ProfileCLI:
		cfg.Level = zerolog.WarnLevel
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.NoColor = true
	}
	return cfg
}

// New builds a logger for app from the profile defaults and the
// CREDITVAULT_LOG_* environment, and installs it as the global logger.
func New(app string, profile Profile) zerolog.Logger {
	cfg := DefaultConfig(profile)
	ApplyEnv(&cfg, os.Getenv)
	return Install(app, cfg)
}

// Install builds a logger from cfg and makes it the global logger.
func Install(app string, cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	logger := zerolog.New(out).Level(cfg.Level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// ApplyEnv overrides cfg from getenv. Unparseable values are ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if lvl, ok := ParseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
}

func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
