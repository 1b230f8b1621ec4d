package surgeguard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Offender is one address flagged during an attack-mode scan.
type Offender struct {
	Address  string `json:"address"`
	Requests int    `json:"requests"`
}

// AttackEvent records one attack-mode scan and the addresses it flagged.
type AttackEvent struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Offenders []Offender `json:"offenders"`
	Threshold float64    `json:"threshold"`
	Recorded  time.Time  `json:"recorded"`
}

// DetectionSummary aggregates the unexpired events for the status API.
type DetectionSummary struct {
	ActiveEvents     int            `json:"activeEvents"`
	FlaggedAddresses map[string]int `json:"flaggedAddresses"`
	LastUpdated      time.Time      `json:"lastUpdated"`
}

// DetectionLedger keeps recent attack events in memory. Entries expire
// after the configured TTL; Cleanup reclaims them.
type DetectionLedger struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries []AttackEvent
}

func NewDetectionLedger(ttl time.Duration) *DetectionLedger {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DetectionLedger{ttl: ttl}
}

// Record stores an event, assigning it an ID and a timestamp. Events with
// no offenders are ignored.
func (l *DetectionLedger) Record(event AttackEvent) {
	if len(event.Offenders) == 0 {
		return
	}
	event.ID = uuid.NewString()
	event.Recorded = time.Now()
	l.mu.Lock()
	l.entries = append(l.entries, event)
	l.mu.Unlock()
}

// Snapshot returns the unexpired events, oldest first.
func (l *DetectionLedger) Snapshot() []AttackEvent {
	cutoff := time.Now().Add(-l.ttl)
	l.mu.RLock()
	defer l.mu.RUnlock()
	var events []AttackEvent
	for _, e := range l.entries {
		if e.Recorded.Before(cutoff) {
			continue
		}
		events = append(events, e)
	}
	return events
}

// Cleanup drops expired events.
func (l *DetectionLedger) Cleanup() {
	cutoff := time.Now().Add(-l.ttl)
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.Recorded.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

// Summary aggregates the unexpired events.
func (l *DetectionLedger) Summary() DetectionSummary {
	summary := DetectionSummary{
		FlaggedAddresses: make(map[string]int),
	}
	for _, event := range l.Snapshot() {
		summary.ActiveEvents++
		for _, o := range event.Offenders {
			summary.FlaggedAddresses[o.Address]++
		}
		if event.Recorded.After(summary.LastUpdated) {
			summary.LastUpdated = event.Recorded
		}
	}
	return summary
}
