package surgeguard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/oarkflow/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Guard wires the tailer, detector, alert sink, ledger and archive together
// and runs the feed to exhaustion or cancellation.
type Guard struct {
	cfg      *Config
	detector *Detector
	tailer   *Tailer
	ledger   *DetectionLedger
	store    AlertStore
	server   *StatusServer
	logger   *log.Logger
}

func NewGuard(cfg *Config) (*Guard, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if cfg.AccessLog == "" {
		return nil, fmt.Errorf("access log path is required")
	}

	logger := &log.DefaultLogger

	var sink AlertSink = NewFileAlertSink(cfg.AlertLog)

	store, err := newAlertStore(cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		sink = &archivingSink{next: sink, store: store, logger: logger}
	}

	ledger := NewDetectionLedger(cfg.LedgerTTL())

	detector := NewDetector(cfg.WindowSize, sink)
	detector.AttachLedger(ledger)

	tailer := NewTailer(cfg.AccessLog, NewParser(cfg.BucketInterval()), cfg.Follow)

	g := &Guard{
		cfg:      cfg,
		detector: detector,
		tailer:   tailer,
		ledger:   ledger,
		store:    store,
		logger:   logger,
	}
	if cfg.ListenAddr != "" {
		g.server = NewStatusServer(detector, ledger, store)
	}
	return g, nil
}

// newAlertStore picks the archive backend: sqlite when a path is set, redis
// when an address is set, none otherwise.
func newAlertStore(cfg *Config) (AlertStore, error) {
	switch {
	case cfg.SQLitePath != "":
		return NewSQLiteAlertStore(cfg.SQLitePath)
	case cfg.RedisAddr != "":
		return NewRedisAlertStore(cfg.RedisAddr, cfg.RedisPassword)
	default:
		return nil, nil
	}
}

// Detector exposes the underlying detector for read-only use.
func (g *Guard) Detector() *Detector { return g.detector }

// Run consumes the feed until exhaustion or cancellation. An alert-sink
// failure stops the run and is returned; the state transition that
// triggered the alert is not rolled back.
func (g *Guard) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if g.server != nil {
		go func() {
			if err := g.server.Listen(g.cfg.ListenAddr); err != nil {
				g.logger.Error().Err(err).Msg("status server stopped")
			}
		}()
		defer g.server.Shutdown()
	}
	if g.cfg.MetricsAddr != "" {
		go g.serveMetrics(ctx)
	}
	go g.cleanupLoop(ctx)

	records := make(chan Record, 1024)
	tailDone := make(chan error, 1)
	go func() { tailDone <- g.tailer.Run(ctx, records) }()

	g.logger.Info().
		Str("access_log", g.cfg.AccessLog).
		Int("window_size", g.cfg.WindowSize).
		Bool("follow", g.cfg.Follow).
		Msg("surge detection started")

	var procErr error
	for rec := range records {
		recordsProcessed.Inc()
		if err := g.detector.Process(rec.Address, rec.Label); err != nil {
			procErr = fmt.Errorf("alert write: %w", err)
			cancel()
			break
		}
	}
	for range records {
		// drain so the tailer can close the channel
	}
	tailErr := <-tailDone

	if g.store != nil {
		g.store.Close()
	}
	if procErr != nil {
		return procErr
	}
	if tailErr != nil && !errors.Is(tailErr, context.Canceled) {
		return tailErr
	}
	return nil
}

func (g *Guard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.ledger.Cleanup()
		}
	}
}

// serveMetrics exposes the prometheus registry on its own mux so the scrape
// endpoint can be firewalled separately from the status API.
func (g *Guard) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	srv := &http.Server{Addr: g.cfg.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	g.logger.Info().Str("addr", g.cfg.MetricsAddr).Msg("metrics endpoint active")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		g.logger.Error().Err(err).Msg("metrics server error")
	}
}
