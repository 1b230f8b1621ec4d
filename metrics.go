package surgeguard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surgeguard_records_processed_total",
		Help: "Total feed records consumed",
	})

	malformedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surgeguard_malformed_lines_total",
		Help: "Access-log lines that could not be parsed",
	})

	bucketsRetired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surgeguard_buckets_retired_total",
		Help: "Completed time units rolled into the history window",
	})

	attacksDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surgeguard_attacks_detected_total",
		Help: "Normal-to-attack state transitions",
	})

	alertsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surgeguard_alerts_written_total",
		Help: "Addresses written to the alert sink",
	})

	underAttack = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "surgeguard_under_attack",
		Help: "1 while the detector is in the attack state",
	})

	windowMeanRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "surgeguard_window_mean_requests",
		Help: "Mean requests per bucket over the history window",
	})
)
