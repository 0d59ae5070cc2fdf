// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package pathops records file copies and moves as single-action crates.
package pathops

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/provstor-dev/provstor/internal/catalog"
	"github.com/provstor-dev/provstor/internal/metrics"
	"github.com/provstor-dev/provstor/internal/rocrate"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Result is what a recorded operation returns, shaped like a crate upload.
type Result struct {
	Result   string `json:"result" yaml:"result"`
	CrateURL string `json:"crate_url" yaml:"crate_url"`
}

// Service records path operations through the catalog.
type Service struct {
	catalog *catalog.Catalog
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to reject future timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(c *catalog.Catalog, opts ...Option) *Service {
	s := &Service{catalog: c, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Copy records that src was copied to dest at when (now if zero).
func (s *Service) Copy(ctx context.Context, src, dest string, when time.Time) (*Result, error) {
	return s.record(ctx, rocrate.OpCopy, src, dest, when)
}

// Move records that src was moved to dest at when (now if zero). A path
// can only be moved away once.
func (s *Service) Move(ctx context.Context, src, dest string, when time.Time) (*Result, error) {
	return s.record(ctx, rocrate.OpMove, src, dest, when)
}

func (s *Service) record(ctx context.Context, op rocrate.Op, src, dest string, when time.Time) (res *Result, err error) {
	defer func() { metrics.ObservePathOp(string(op), err) }()

	src, dest = strings.TrimSpace(src), strings.TrimSpace(dest)
	if src == "" || dest == "" {
		return nil, provstorerr.New(provstorerr.CodePathopsInputInvalid, "src and dest are required")
	}
	now := s.now()
	if when.IsZero() {
		when = now
	}
	if when.After(now) {
		return nil, provstorerr.New(provstorerr.CodePathopsWhenInFuture, "operation time is in the future",
			provstorerr.Field("when", when.Format(time.RFC3339)))
	}
	if !strings.HasPrefix(src, "file:/") {
		return nil, provstorerr.Errorf(provstorerr.CodeLookupLocatorUnsupported, "%s: only file: paths can be copied or moved", src)
	}

	graphs := s.catalog.Graphs()
	known, err := graphs.IsFile(ctx, src)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, provstorerr.Errorf(provstorerr.CodeLookupEntityNotFound, "file %q not found", src)
	}
	if op == rocrate.OpMove {
		next, err := graphs.NextMove(ctx, src)
		if err != nil {
			return nil, err
		}
		if next != "" {
			return nil, provstorerr.New(provstorerr.CodePathopsSrcAlreadyMoved,
				"file "+src+" was already moved to "+next, provstorerr.Field("src", src), provstorerr.Field("dest", next))
		}
	}

	info, err := graphs.FileInfo(ctx, src)
	if err != nil {
		return nil, err
	}
	archive, name, err := rocrate.PathOp{
		Op:       op,
		Src:      src,
		Dest:     dest,
		When:     when.UTC(),
		Checksum: info.SHA256,
		Size:     info.ContentSize,
	}.Build()
	if err != nil {
		return nil, err
	}
	s.logger.Info("recording path operation", "op", op, "src", src, "dest", dest, "crate", name)

	crateURL, err := s.catalog.Ingest(ctx, name, archive)
	if err != nil {
		return nil, err
	}
	return &Result{Result: "success", CrateURL: crateURL}, nil
}

// ParseWhen parses an operation timestamp given as RFC 3339 or as a
// seconds-precision local datetime without zone, which is read as UTC.
// Empty means now.
func ParseWhen(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, provstorerr.Errorf(provstorerr.CodePathopsInputInvalid, "invalid timestamp %q", raw)
}
