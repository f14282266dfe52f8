package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cubesim/cubes/internal/session"
)

type appConfig struct {
	listenAddr      string
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	clientTimeout   time.Duration
	cubeGridSteps   int
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":20000", "UDP listen address")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	clientTimeout := flag.Duration("client-timeout", session.DefaultTimeout, "How long a connected client may go silent before being dropped")
	cubeGridSteps := flag.Int("cube-grid", 30, "Side length of the non-player cube grid the world is seeded with")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default cubes-server-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.listenAddr = *listen
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.clientTimeout = *clientTimeout
	cfg.cubeGridSteps = *cubeGridSteps
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.clientTimeout <= 0 {
		return fmt.Errorf("client-timeout must be > 0")
	}
	if c.cubeGridSteps <= 0 {
		return fmt.Errorf("cube-grid must be > 0 (got %d)", c.cubeGridSteps)
	}
	return nil
}

// applyEnvOverrides maps CUBES_SERVER_* environment variables to config
// fields unless a corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["listen"]; !ok {
		if v, ok := get("CUBES_SERVER_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("CUBES_SERVER_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("CUBES_SERVER_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("CUBES_SERVER_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["client-timeout"]; !ok {
		if v, ok := get("CUBES_SERVER_CLIENT_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.clientTimeout = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CUBES_SERVER_CLIENT_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["cube-grid"]; !ok {
		if v, ok := get("CUBES_SERVER_CUBE_GRID"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.cubeGridSteps = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CUBES_SERVER_CUBE_GRID: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("CUBES_SERVER_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("CUBES_SERVER_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("CUBES_SERVER_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CUBES_SERVER_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	return firstErr
}
