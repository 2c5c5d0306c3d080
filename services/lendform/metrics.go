package lendform

import "corefi/observability"

// Metrics exposes Prometheus collectors for lend submissions.
type Metrics = observability.LendFormMetrics

// NewMetrics returns the lazily initialised metrics registry.
func NewMetrics() *Metrics { return observability.LendForm() }
