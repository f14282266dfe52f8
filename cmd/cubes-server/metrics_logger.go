package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cubesim/cubes/internal/hub"
	"github.com/cubesim/cubes/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup, clients *hub.View) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"packets_rx", snap.PacketsRx,
					"packets_tx", snap.PacketsTx,
					"malformed", snap.Malformed,
					"syncs", snap.Syncs,
					"brackets", snap.Brackets,
					"adjustments", snap.Adjustments,
					"dropped_inputs", snap.DroppedInputs,
					"forced_reconnects", snap.ForcedReconnects,
					"authority_transfers", snap.AuthorityTransfers,
					"active_clients", snap.ActiveClients,
					"errors", snap.Errors,
				)
				for _, c := range clients.Snapshot() {
					l.Debug("client_slot", "index", c.Index, "address", c.Address, "state", c.State.String())
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
