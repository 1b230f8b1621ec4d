package surgeguard

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// sigmaMultiplier is the fixed anomaly threshold multiplier. It is not a
// tunable.
const sigmaMultiplier = 2.0

// TrafficStats is a mean and population standard deviation pair.
type TrafficStats struct {
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
}

// Threshold returns the anomaly cutoff for these stats: mean + 2 sigma.
func (s TrafficStats) Threshold() float64 {
	return s.Mean + sigmaMultiplier*s.Stdev
}

// Window is a fixed-capacity FIFO sequence of completed buckets, oldest
// first. It provides the statistical baseline for the detector.
type Window struct {
	capacity int
	buckets  []*Bucket

	// cached by the last RequestStats computation
	meanRequests  float64
	stdevRequests float64
}

func NewWindow(capacity int) *Window {
	return &Window{capacity: capacity}
}

// Len returns the number of completed buckets currently held.
func (w *Window) Len() int { return len(w.buckets) }

// Capacity returns the maximum number of buckets the window retains.
func (w *Window) Capacity() int { return w.capacity }

// Contains reports whether a held bucket carries the given label.
func (w *Window) Contains(label string) bool {
	for _, b := range w.buckets {
		if b.label == label {
			return true
		}
	}
	return false
}

// Last returns the most recently retired bucket, or nil when empty.
func (w *Window) Last() *Bucket {
	if len(w.buckets) == 0 {
		return nil
	}
	return w.buckets[len(w.buckets)-1]
}

// RollIn appends a completed bucket, evicting the oldest entry first when
// the window is full. The length never exceeds the capacity; eviction from
// an empty window is a no-op, so a capacity-0 window drops every bucket
// and simply stays empty.
func (w *Window) RollIn(b *Bucket) {
	if len(w.buckets) >= w.capacity && len(w.buckets) > 0 {
		w.buckets = w.buckets[1:]
	}
	if len(w.buckets) < w.capacity {
		w.buckets = append(w.buckets, b)
	}
}

// RequestStats computes the mean and population standard deviation of the
// per-bucket request totals, caching the result on the window. Returns
// ErrDegenerateStats when the window is empty.
func (w *Window) RequestStats() (TrafficStats, error) {
	if len(w.buckets) == 0 {
		return TrafficStats{}, ErrDegenerateStats
	}
	totals := make([]float64, len(w.buckets))
	for i, b := range w.buckets {
		totals[i] = float64(b.totalRequests)
	}
	mean, err := stats.Mean(totals)
	if err != nil {
		return TrafficStats{}, fmt.Errorf("window mean: %w", err)
	}
	sd, err := stats.StandardDeviationPopulation(totals)
	if err != nil {
		return TrafficStats{}, fmt.Errorf("window stdev: %w", err)
	}
	w.meanRequests, w.stdevRequests = mean, sd
	return TrafficStats{Mean: mean, Stdev: sd}, nil
}

// CachedStats returns the result of the last RequestStats computation.
func (w *Window) CachedStats() TrafficStats {
	return TrafficStats{Mean: w.meanRequests, Stdev: w.stdevRequests}
}
