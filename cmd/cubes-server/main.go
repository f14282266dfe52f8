package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cubesim/cubes/internal/hub"
	"github.com/cubesim/cubes/internal/metrics"
	"github.com/cubesim/cubes/internal/physics/simtest"
	"github.com/cubesim/cubes/internal/session"
	"github.com/cubesim/cubes/internal/world"
)

// Helper implementations moved to dedicated files: version.go, config.go, logger.go, metrics_logger.go, mdns.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("cubes-server %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	srv, err := session.NewServer(cfg.listenAddr,
		session.WithLogger(l),
		session.WithTimeout(cfg.clientTimeout),
	)
	if err != nil {
		l.Error("listen_error", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	w := world.New(simtest.New(2*session.MaxClients+cfg.cubeGridSteps*cfg.cubeGridSteps), session.MaxClients)
	w.SetupCubes(cfg.cubeGridSteps)

	clients := hub.New(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg, clients)

	if cfg.mdnsEnable {
		port := 0
		if _, portStr, perr := net.SplitHostPort(srv.LocalAddr()); perr == nil {
			if p, aerr := strconv.Atoi(portStr); aerr == nil {
				port = p
			}
		}
		cleanupMDNS, merr := startMDNS(ctx, cfg, port)
		if merr != nil {
			l.Warn("mdns_start_failed", "error", merr)
		} else {
			l.Info("mdns_started", "service", mdnsServiceType, "port", port)
			defer cleanupMDNS()
		}
	}

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		httpSrv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = httpSrv.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l.Info("server_started", "listen", srv.LocalAddr(), "cube_grid", cfg.cubeGridSteps)
	runTickLoop(ctx, srv, w, l, sigCh)
	l.Info("server_stopped")
	cancel()
	wg.Wait()
}

// runTickLoop drives the fixed 240Hz core tick: apply each connected
// client's input for the tick, step the world, then every
// ticksPerServerFrame ticks (30Hz) push a fresh snapshot to every
// slot that is not disconnected.
func runTickLoop(ctx context.Context, srv *session.Server, w *world.World, l *slog.Logger, sigCh chan os.Signal) {
	const ticksPerServerFrame = 8 // 240Hz / 30Hz
	ticker := time.NewTicker(world.TickDeltaTime)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			l.Info("shutdown_signal", "signal", sig.String())
			return
		case <-ticker.C:
			now := time.Now()
			srv.Frame(tick)

			for i := 0; i < session.MaxClients; i++ {
				slot := srv.Slot(i)
				if slot.State != session.StateConnected {
					continue
				}
				in, forceReconnect := srv.InputForTick(i, tick, now)
				if forceReconnect {
					srv.Disconnect(i)
					continue
				}
				w.ApplyInput(i, in)
			}

			w.Step()

			if tick%ticksPerServerFrame == 0 {
				snap := w.Quantize()
				for i := 0; i < session.MaxClients; i++ {
					if srv.Slot(i).State == session.StateDisconnected {
						continue
					}
					if err := srv.SendSnapshot(i, snap, tick); err != nil {
						l.Warn("send_snapshot_error", "slot", i, "error", err)
					}
				}
			}

			tick++
		}
	}
}
