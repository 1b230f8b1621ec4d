package surgeguard

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Bucket accumulates per-address request counts for a single time unit.
// It is mutated while its time unit is live and treated as read-only once
// rolled into the history window.
type Bucket struct {
	label         string
	addressCounts map[string]int
	totalRequests int
}

func NewBucket(label string) *Bucket {
	return &Bucket{
		label:         label,
		addressCounts: make(map[string]int),
	}
}

// Label returns the time-unit identifier this bucket represents.
func (b *Bucket) Label() string { return b.label }

// TotalRequests returns the number of requests recorded in this bucket.
func (b *Bucket) TotalRequests() int { return b.totalRequests }

// Count returns the request count recorded for address.
func (b *Bucket) Count(address string) int { return b.addressCounts[address] }

// Distinct returns the number of distinct addresses seen in this bucket.
func (b *Bucket) Distinct() int { return len(b.addressCounts) }

// Update records one request from address.
func (b *Bucket) Update(address string) {
	b.addressCounts[address]++
	b.totalRequests++
}

// AddressStats computes the mean and population standard deviation of the
// per-address request counts. Returns ErrDegenerateStats when the bucket
// has no recorded addresses.
func (b *Bucket) AddressStats() (TrafficStats, error) {
	if len(b.addressCounts) == 0 {
		return TrafficStats{}, ErrDegenerateStats
	}
	counts := make([]float64, 0, len(b.addressCounts))
	for _, c := range b.addressCounts {
		counts = append(counts, float64(c))
	}
	mean, err := stats.Mean(counts)
	if err != nil {
		return TrafficStats{}, fmt.Errorf("address mean: %w", err)
	}
	sd, err := stats.StandardDeviationPopulation(counts)
	if err != nil {
		return TrafficStats{}, fmt.Errorf("address stdev: %w", err)
	}
	return TrafficStats{Mean: mean, Stdev: sd}, nil
}
