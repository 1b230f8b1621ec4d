package surgeguard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/oarkflow/log"
)

// State is the detector status flag.
type State int

const (
	StateNormal State = iota
	StateAttack
)

func (s State) String() string {
	if s == StateAttack {
		return "attack"
	}
	return "normal"
}

// Detector consumes the (address, label) feed, rolls completed buckets into
// its history window on time-unit boundaries and drives the normal/attack
// state machine.
//
// Process must be called from a single goroutine; the snapshot accessors are
// safe to call concurrently with it.
type Detector struct {
	mu sync.RWMutex

	window       *Window
	current      *Bucket
	currentLabel string

	state       State
	requestBase TrafficStats // window stats, frozen at attack onset
	addressBase TrafficStats // per-address stats of the last retired bucket

	sink   AlertSink
	out    io.Writer
	ledger *DetectionLedger
	logger *log.Logger
}

func NewDetector(capacity int, sink AlertSink) *Detector {
	return &Detector{
		window: NewWindow(capacity),
		sink:   sink,
		out:    os.Stdout,
		logger: &log.DefaultLogger,
	}
}

// SetOutput redirects the per-bucket status lines (default os.Stdout).
func (d *Detector) SetOutput(w io.Writer) { d.out = w }

// SetLogger replaces the structured logger.
func (d *Detector) SetLogger(l *log.Logger) {
	if l != nil {
		d.logger = l
	}
}

// AttachLedger wires a ledger that records every attack-mode scan.
func (d *Detector) AttachLedger(l *DetectionLedger) { d.ledger = l }

// UnderAttack reports whether the detector is in the attack state.
func (d *Detector) UnderAttack() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state == StateAttack
}

// DetectorSnapshot is a point-in-time view of the detector for the status
// API.
type DetectorSnapshot struct {
	State          string       `json:"state"`
	UnderAttack    bool         `json:"under_attack"`
	CurrentLabel   string       `json:"current_label"`
	CurrentTotal   int          `json:"current_total"`
	WindowLen      int          `json:"window_len"`
	WindowCapacity int          `json:"window_capacity"`
	WindowStats    TrafficStats `json:"window_stats"`
}

func (d *Detector) Snapshot() DetectorSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := DetectorSnapshot{
		State:          d.state.String(),
		UnderAttack:    d.state == StateAttack,
		CurrentLabel:   d.currentLabel,
		WindowLen:      d.window.Len(),
		WindowCapacity: d.window.Capacity(),
		WindowStats:    d.window.CachedStats(),
	}
	if d.current != nil {
		snap.CurrentTotal = d.current.totalRequests
	}
	return snap
}

// Process consumes one feed record. Records must arrive in non-decreasing
// label order. The returned error reports alert-sink failures only; the
// detection state machine is never rolled back by them.
func (d *Detector) Process(address, label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		d.currentLabel = label
		d.current = NewBucket(label)
	}

	if label == d.currentLabel {
		d.current.Update(address)
		return nil
	}

	// Boundary crossed. The duplicate-label guard is defensive: under the
	// ordering assumption a retired label never comes back.
	if d.window.Contains(label) {
		return nil
	}

	var sinkErr error
	if d.window.Len() > 1 {
		sinkErr = d.scan()
	}

	fmt.Fprintf(d.out, "Timestamp: %s, Number of requests: %d, Attack: %t\n",
		d.currentLabel, d.current.totalRequests, d.state == StateAttack)

	d.window.RollIn(d.current)
	bucketsRetired.Inc()
	d.currentLabel = label
	d.current = NewBucket(label)
	return sinkErr
}

// scan evaluates the retiring current bucket and updates the state machine.
// The caller holds the lock and guarantees window.Len() > 1: a single-bucket
// window has zero deviation and would trip on any change at all.
func (d *Detector) scan() error {
	total := float64(d.current.totalRequests)

	if d.state == StateAttack {
		// Both baselines stay frozen for the duration of the attack.
		if total > d.requestBase.Threshold() && d.exceedsAddressBaseline() {
			return d.writeAlerts()
		}
		d.state = StateNormal
		underAttack.Set(0)
		d.logger.Info().Str("label", d.currentLabel).Msg("attack subsided")
		return nil
	}

	ws, err := d.window.RequestStats()
	if err != nil {
		return err
	}
	windowMeanRequests.Set(ws.Mean)

	// Re-baseline per-address statistics from the most recently retired
	// bucket before comparing, once per normal-mode scan.
	refreshed := d.refreshAddressBaseline()

	if total > ws.Threshold() && refreshed && d.exceedsAddressBaseline() {
		d.state = StateAttack
		d.requestBase = ws
		underAttack.Set(1)
		attacksDetected.Inc()
		d.logger.Warn().
			Str("label", d.currentLabel).
			Int("requests", d.current.totalRequests).
			Float64("window_mean", ws.Mean).
			Float64("window_stdev", ws.Stdev).
			Msg("traffic surge detected")
		return d.writeAlerts()
	}
	return nil
}

// refreshAddressBaseline replaces the per-address baseline with the address
// stats of the most recently retired bucket. A reference bucket with no
// recorded addresses keeps the old baseline and reports false, so the
// current scan treats the degenerate case as "no anomaly".
func (d *Detector) refreshAddressBaseline() bool {
	ref := d.window.Last()
	if ref == nil {
		return false
	}
	st, err := ref.AddressStats()
	if err != nil {
		d.logger.Warn().Str("label", ref.label).Msg("reference bucket has no addresses, skipping per-address check")
		return false
	}
	d.addressBase = st
	return true
}

// exceedsAddressBaseline reports whether any address in the retiring bucket
// is above the per-address baseline threshold.
func (d *Detector) exceedsAddressBaseline() bool {
	limit := d.addressBase.Threshold()
	for _, count := range d.current.addressCounts {
		if float64(count) > limit {
			return true
		}
	}
	return false
}

// writeAlerts emits every address above the per-address baseline threshold
// to the alert sink. Re-emission of the same address on successive scans is
// expected; a failed write does not stop the remaining addresses.
func (d *Detector) writeAlerts() error {
	limit := d.addressBase.Threshold()
	var offenders []Offender
	var errs []error
	for address, count := range d.current.addressCounts {
		if float64(count) <= limit {
			continue
		}
		offenders = append(offenders, Offender{Address: address, Requests: count})
		if err := d.sink.WriteAlert(address); err != nil {
			errs = append(errs, fmt.Errorf("alert for %s: %w", address, err))
			continue
		}
		alertsWritten.Inc()
	}
	if d.ledger != nil {
		d.ledger.Record(AttackEvent{
			Label:     d.currentLabel,
			Offenders: offenders,
			Threshold: limit,
		})
	}
	return errors.Join(errs...)
}
