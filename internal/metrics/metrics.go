// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package metrics holds the Prometheus collectors ProvStor exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

var (
	ingestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provstor_crate_ingests_total",
		Help: "Crate ingests by outcome",
	}, []string{"outcome"})

	ingestBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "provstor_crate_ingest_bytes",
		Help:    "Size of ingested crate archives",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	backtrackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provstor_backtrack_duration_seconds",
		Help:    "Time to reconstruct a provenance trace",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"outcome"})

	backtrackSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "provstor_backtrack_steps",
		Help:    "Number of actions in a provenance trace",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 500},
	})

	pathopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provstor_pathops_total",
		Help: "Recorded path operations by kind and outcome",
	}, []string{"op", "outcome"})
)

// Outcome labels an operation's result by error reason, or "success".
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	if code := provstorerr.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

// ObserveIngest records one crate ingest.
func ObserveIngest(size int, err error) {
	ingestsTotal.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		ingestBytes.Observe(float64(size))
	}
}

// ObserveBacktrack records one backtrack call.
func ObserveBacktrack(start time.Time, steps int, err error) {
	backtrackDuration.WithLabelValues(Outcome(err)).Observe(time.Since(start).Seconds())
	if err == nil {
		backtrackSteps.Observe(float64(steps))
	}
}

// ObservePathOp records one copy or move.
func ObservePathOp(op string, err error) {
	pathopsTotal.WithLabelValues(op, Outcome(err)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
