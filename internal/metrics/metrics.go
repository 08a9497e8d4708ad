// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics defines the Prometheus collectors exposed by `ningprompt
// serve` on /metrics. They are registered on the default registry, so the
// CLI and TUI pay nothing unless something scrapes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for Generations.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTemplate = "template_missing"
)

var (
	// RequestsTotal counts HTTP requests by method, path, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ningprompt_http_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// Generations counts transformation calls by mode, delivery and outcome.
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ningprompt_generations_total",
		Help: "Prompt transformations attempted.",
	}, []string{"mode", "delivery", "outcome"})

	// GenerationDuration tracks end-to-end latency of one-shot transformations.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ningprompt_generation_duration_seconds",
		Help:    "Time from dispatch to decoded completion.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"mode"})

	// StreamFragments counts fragments relayed to streaming clients.
	StreamFragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ningprompt_stream_fragments_total",
		Help: "Text fragments relayed from streaming completions.",
	})

	// PromptChars tracks the distribution of input prompt lengths.
	PromptChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ningprompt_prompt_chars",
		Help:    "Number of characters in submitted prompts.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
)
