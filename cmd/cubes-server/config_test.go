package main

import (
	"testing"
	"time"
)

func TestConfigValidate_OK(t *testing.T) {
	c := &appConfig{
		listenAddr:      ":20000",
		logFormat:       "text",
		logLevel:        "info",
		clientTimeout:   5 * time.Second,
		cubeGridSteps:   30,
		logMetricsEvery: 0,
	}
	if err := c.validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badTimeout", func(c *appConfig) { c.clientTimeout = 0 }},
		{"badGrid", func(c *appConfig) { c.cubeGridSteps = 0 }},
	}
	for _, tc := range tests {
		base := &appConfig{
			listenAddr:    ":20000",
			logFormat:     "text",
			logLevel:      "info",
			clientTimeout: 5 * time.Second,
			cubeGridSteps: 30,
		}
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestApplyEnvOverrides_FlagWins(t *testing.T) {
	t.Setenv("CUBES_SERVER_LISTEN", ":9999")
	c := &appConfig{listenAddr: ":20000"}
	set := map[string]struct{}{"listen": {}}
	if err := applyEnvOverrides(c, set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.listenAddr != ":20000" {
		t.Fatalf("expected explicit flag to win, got %q", c.listenAddr)
	}
}

func TestApplyEnvOverrides_UsesEnvWhenUnset(t *testing.T) {
	t.Setenv("CUBES_SERVER_LISTEN", ":9999")
	c := &appConfig{listenAddr: ":20000"}
	if err := applyEnvOverrides(c, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.listenAddr != ":9999" {
		t.Fatalf("expected env override, got %q", c.listenAddr)
	}
}
