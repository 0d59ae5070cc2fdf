// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstor-dev/provstor/internal/metrics"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", metrics.Outcome(nil))
	assert.Equal(t, "error", metrics.Outcome(errors.New("plain")))
	assert.Equal(t, "crate.result.duplicate",
		metrics.Outcome(provstorerr.New(provstorerr.CodeCrateResultDuplicate, "dup")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	metrics.ObserveIngest(2048, nil)
	metrics.ObserveBacktrack(time.Now(), 3, nil)
	metrics.ObservePathOp("mv", provstorerr.New(provstorerr.CodePathopsSrcAlreadyMoved, "moved"))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `provstor_crate_ingests_total{outcome="success"}`)
	assert.Contains(t, out, "provstor_backtrack_duration_seconds_bucket")
	assert.Contains(t, out, `provstor_pathops_total{op="mv",outcome="pathops.src.already_moved"} 1`)
}
