// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package health probes the services ProvStor depends on.
package health

import (
	"context"
	"sync"
	"time"
)

// Status summarizes a report.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// Check is the point-in-time result of one probe. All fields are safe to
// serialize to JSON.
type Check struct {
	Name      string    `json:"name" yaml:"name"`
	Available bool      `json:"available" yaml:"available"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms" yaml:"latency_ms"`
	CheckedAt time.Time `json:"checked_at" yaml:"checked_at"`
}

// Report aggregates every check.
type Report struct {
	Status Status  `json:"status" yaml:"status"`
	Checks []Check `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// Probe returns nil when the dependency is reachable.
type Probe func(ctx context.Context) error

type probe struct {
	name string
	fn   Probe
}

// Checker runs named probes concurrently.
type Checker struct {
	probes  []probe
	timeout time.Duration
}

// NewChecker creates a Checker that bounds each probe by timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{timeout: timeout}
}

// Register adds a probe. Probes run in registration order in the report.
func (c *Checker) Register(name string, fn Probe) {
	c.probes = append(c.probes, probe{name: name, fn: fn})
}

// Run executes every probe and reports StatusDegraded if any failed.
func (c *Checker) Run(ctx context.Context) Report {
	checks := make([]Check, len(c.probes))
	var wg sync.WaitGroup
	for i, p := range c.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := p.fn(pctx)
			checks[i] = Check{
				Name:      p.name,
				Available: err == nil,
				LatencyMS: time.Since(start).Milliseconds(),
				CheckedAt: start.UTC(),
			}
			if err != nil {
				checks[i].Error = err.Error()
			}
		}()
	}
	wg.Wait()

	report := Report{Status: StatusOK, Checks: checks}
	for _, ch := range checks {
		if !ch.Available {
			report.Status = StatusDegraded
			break
		}
	}
	return report
}
