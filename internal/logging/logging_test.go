package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:   "debug",
		EnvLogNoColor: "true",
		EnvLogJSON:    "not-a-bool",
	}
	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnv(&cfg, func(k string) string { return env[k] })
	if cfg.Level != zerolog.DebugLevel || !cfg.NoColor || cfg.JSON {
		t.Fatalf("unexpected config %+v", cfg)
	}

	cfg = DefaultConfig(ProfileCLI)
	ApplyEnv(&cfg, func(string) string { return "" })
	if cfg.Level != zerolog.WarnLevel {
		t.Fatalf("empty env changed level to %v", cfg.Level)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"TRACE":   zerolog.TraceLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", raw, got, ok)
		}
	}
	if _, ok := ParseLevel("verbose"); ok {
		t.Fatalf("unknown level accepted")
	}
}

func TestInstall_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Install("vaultd", Config{Level: zerolog.InfoLevel, JSON: true, Out: &buf})
	logger.Debug().Msg("hidden")
	logger.Info().Str("fund", "0xabc").Msg("chartered")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["app"] != "vaultd" || line["fund"] != "0xabc" || line["message"] != "chartered" {
		t.Fatalf("unexpected line %v", line)
	}
}
