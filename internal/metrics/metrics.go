// Package metrics exposes Prometheus counters/gauges for the networking
// core plus a locally-mirrored atomic snapshot for cheap periodic logging,
// following the same promauto+atomic-mirror pattern as the CAN gateway
// this module grew out of, re-labeled for UDP wire packets instead of CAN
// frames.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/cubesim/cubes/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PacketsRx = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubes_packets_rx_total",
		Help: "Total packets received, by type.",
	}, []string{"type"})
	PacketsTx = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubes_packets_tx_total",
		Help: "Total packets sent, by type.",
	}, []string{"type"})
	MalformedPackets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cubes_malformed_packets_total",
		Help: "Total packets rejected as malformed (truncated, bad magic, unknown type).",
	})
	SyncCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cubes_sync_completions_total",
		Help: "Total times a client completed the clock sync phase.",
	})
	BracketCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cubes_bracket_completions_total",
		Help: "Total times a client completed the bracket phase.",
	})
	AdjustmentsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cubes_adjustments_applied_total",
		Help: "Total steady-state tick adjustments applied to a client.",
	})
	DroppedInputs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cubes_dropped_inputs_total",
		Help: "Total ticks for which no input was available from a connected client.",
	})
	ForcedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cubes_forced_reconnects_total",
		Help: "Total clients forced to reconnect after exceeding the dropped-input threshold.",
	})
	AuthorityTransfers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cubes_authority_transfers_total",
		Help: "Total cube authority transfers resolved by the BFS authority resolver.",
	})
	SnapshotBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cubes_snapshot_bytes",
		Help:    "Size in bytes of encoded snapshot packets.",
		Buckets: prometheus.ExponentialBuckets(16, 2, 12),
	})
	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cubes_active_clients",
		Help: "Current number of connected client slots.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cubes_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubes_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrSocketSend    = "socket_send"
	ErrSocketReceive = "socket_receive"
	ErrDecode        = "decode"
	ErrEncode        = "encode"
	ErrContext       = "context_cancelled"
)

// StartHTTP serves Prometheus metrics at /metrics (and readiness at
// /ready) on addr. It is the one background goroutine the core's
// single-threaded design permits, since it never touches simulation state.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, for cheap periodic structured-log summaries
// without round-tripping through the Prometheus registry.
var (
	localPacketsRx      uint64
	localPacketsTx      uint64
	localMalformed      uint64
	localSyncs          uint64
	localBrackets       uint64
	localAdjustments    uint64
	localDroppedInputs  uint64
	localForcedReconnect uint64
	localAuthorityXfer  uint64
	localErrors         uint64
	localActiveClients  uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	PacketsRx         uint64
	PacketsTx         uint64
	Malformed         uint64
	Syncs             uint64
	Brackets          uint64
	Adjustments       uint64
	DroppedInputs     uint64
	ForcedReconnects  uint64
	AuthorityTransfers uint64
	Errors            uint64
	ActiveClients     uint64
}

func Snap() Snapshot {
	return Snapshot{
		PacketsRx:          atomic.LoadUint64(&localPacketsRx),
		PacketsTx:           atomic.LoadUint64(&localPacketsTx),
		Malformed:           atomic.LoadUint64(&localMalformed),
		Syncs:               atomic.LoadUint64(&localSyncs),
		Brackets:            atomic.LoadUint64(&localBrackets),
		Adjustments:         atomic.LoadUint64(&localAdjustments),
		DroppedInputs:       atomic.LoadUint64(&localDroppedInputs),
		ForcedReconnects:    atomic.LoadUint64(&localForcedReconnect),
		AuthorityTransfers:  atomic.LoadUint64(&localAuthorityXfer),
		Errors:              atomic.LoadUint64(&localErrors),
		ActiveClients:       atomic.LoadUint64(&localActiveClients),
	}
}

func IncPacketsRx(packetType string) {
	PacketsRx.WithLabelValues(packetType).Inc()
	atomic.AddUint64(&localPacketsRx, 1)
}

func IncPacketsTx(packetType string) {
	PacketsTx.WithLabelValues(packetType).Inc()
	atomic.AddUint64(&localPacketsTx, 1)
}

func IncMalformed() {
	MalformedPackets.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncSync() {
	SyncCompletions.Inc()
	atomic.AddUint64(&localSyncs, 1)
}

func IncBracket() {
	BracketCompletions.Inc()
	atomic.AddUint64(&localBrackets, 1)
}

func IncAdjustment() {
	AdjustmentsApplied.Inc()
	atomic.AddUint64(&localAdjustments, 1)
}

func IncDroppedInput() {
	DroppedInputs.Inc()
	atomic.AddUint64(&localDroppedInputs, 1)
}

func IncForcedReconnect() {
	ForcedReconnects.Inc()
	atomic.AddUint64(&localForcedReconnect, 1)
}

func IncAuthorityTransfer() {
	AuthorityTransfers.Inc()
	atomic.AddUint64(&localAuthorityXfer, 1)
}

func ObserveSnapshotBytes(n int) {
	SnapshotBytes.Observe(float64(n))
}

func SetActiveClients(n int) {
	ActiveClients.Set(float64(n))
	atomic.StoreUint64(&localActiveClients, uint64(n))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers common error
// label series so the first real error doesn't pay first-touch
// registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrSocketSend, ErrSocketReceive, ErrDecode, ErrEncode, ErrContext} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
