package main

import (
	"errors"
	"flag"
	"fmt"
	"time"
)

type appConfig struct {
	serverAddr    string
	logFormat     string
	logLevel      string
	reportEvery   time.Duration
	holdLeft      bool
	holdRight     bool
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	server := flag.String("server", "127.0.0.1:20000", "Server UDP address to connect to")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	reportEvery := flag.Duration("report-interval", time.Second, "How often to log the latest received snapshot summary (headless demo path, no renderer)")
	holdLeft := flag.Bool("hold-left", false, "Continuously hold the Left input (demo traffic generator)")
	holdRight := flag.Bool("hold-right", false, "Continuously hold the Right input (demo traffic generator)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	cfg.serverAddr = *server
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.reportEvery = *reportEvery
	cfg.holdLeft = *holdLeft
	cfg.holdRight = *holdRight

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
	if c.serverAddr == "" {
		return errors.New("server address must not be empty")
	}
	return nil
}
