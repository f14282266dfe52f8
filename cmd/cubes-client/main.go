package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cubesim/cubes/internal/clientcore"
	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/netaddr"
	"github.com/cubesim/cubes/internal/world"
)

// Helper implementations moved to dedicated files: version.go, config.go, logger.go.
//
// This is a headless client: there is no renderer or input device here, only the wire
// protocol client driving a fixed tick and periodically logging what
// snapshot state it last decoded. -hold-left/-hold-right let it generate
// traffic on its own for exercising the server without a second operator.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("cubes-client %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	addr, err := netaddr.Parse(cfg.serverAddr)
	if err != nil {
		l.Error("server_address_error", "error", err)
		os.Exit(1)
	}

	c, err := clientcore.NewClient(clientcore.WithLogger(l))
	if err != nil {
		l.Error("client_init_error", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	c.Connect(addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	localInput := entity.Input{Left: cfg.holdLeft, Right: cfg.holdRight}

	l.Info("client_started", "server", cfg.serverAddr)
	runTickLoop(ctx, c, cfg, l, sigCh, localInput)
	l.Info("client_stopped")
}

func runTickLoop(ctx context.Context, c *clientcore.Client, cfg *appConfig, l *slog.Logger, sigCh chan os.Signal, localInput entity.Input) {
	ticker := time.NewTicker(world.TickDeltaTime)
	defer ticker.Stop()
	report := time.NewTicker(cfg.reportEvery)
	defer report.Stop()

	var tick uint64
	var lastState clientcore.State = -1
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			l.Info("shutdown_signal", "signal", sig.String())
			return
		case <-ticker.C:
			c.Frame(tick, localInput)
			tick++
			if st := c.Session().State; st != lastState {
				l.Info("connection_state_changed", "state", st.String())
				lastState = st
			}
		case <-report.C:
			snap, seq := c.Session().LatestSnapshot()
			if snap == nil {
				l.Info("snapshot_status", "received", false)
				continue
			}
			cube := snap.Cubes[0]
			l.Info("snapshot_status",
				"received", true,
				"sequence", seq,
				"cube0_x", cube.PositionX,
				"cube0_y", cube.PositionY,
				"cube0_z", cube.PositionZ,
				"cube0_interacting", cube.Interacting,
			)
		}
	}
}
