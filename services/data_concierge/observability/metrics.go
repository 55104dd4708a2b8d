// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability exposes the concierge's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// intentsTotal counts classified intents.
	// Labels: intent (the routing rule name)
	intentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data_concierge",
		Subsystem: "router",
		Name:      "intents_total",
		Help:      "Total classified intents by routing rule",
	}, []string{"intent"})

	// storeRequestSeconds measures backing-store call latency.
	// Labels: op (list, full, by_key)
	storeRequestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "data_concierge",
		Subsystem: "gateway",
		Name:      "store_request_seconds",
		Help:      "Backing store request latency in seconds",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"op"})

	// exportBytesTotal counts materialized export payload bytes.
	// Labels: format (csv, xlsx)
	exportBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data_concierge",
		Subsystem: "export",
		Name:      "bytes_total",
		Help:      "Total bytes of materialized exports by format",
	}, []string{"format"})
)

// Metrics satisfies the recorder interfaces of the gateway and the
// router. A nil or absent recorder disables observation, never the
// operation itself.
type Metrics struct{}

func NewMetrics() *Metrics { return &Metrics{} }

func (*Metrics) ObserveIntent(intent string) {
	intentsTotal.WithLabelValues(intent).Inc()
}

func (*Metrics) ObserveStoreRequest(op string, seconds float64) {
	storeRequestSeconds.WithLabelValues(op).Observe(seconds)
}

func (*Metrics) ObserveExport(format string, bytes int) {
	exportBytesTotal.WithLabelValues(format).Add(float64(bytes))
}
