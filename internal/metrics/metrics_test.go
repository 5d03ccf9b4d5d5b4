// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRecommendationOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		results  int
		degraded bool
		outcome  string
	}{
		{"results", "test_ok", 5, false, "ok"},
		{"empty", "test_empty", 0, false, "empty"},
		{"degraded wins over empty", "test_degraded", 0, true, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(RecommendationRequests.WithLabelValues(tt.strategy, tt.outcome))
			RecordRecommendation(tt.strategy, tt.results, tt.degraded, time.Millisecond)
			after := testutil.ToFloat64(RecommendationRequests.WithLabelValues(tt.strategy, tt.outcome))
			if after-before != 1 {
				t.Errorf("counter delta = %v, want 1", after-before)
			}
		})
	}
}

func TestRecordGraphQueryCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(GraphQueryErrors.WithLabelValues("test_op"))

	RecordGraphQuery("test_op", time.Millisecond, nil)
	RecordGraphQuery("test_op", time.Millisecond, errors.New("timeout"))

	after := testutil.ToFloat64(GraphQueryErrors.WithLabelValues("test_op"))
	if after-before != 1 {
		t.Errorf("error delta = %v, want 1", after-before)
	}
}

func TestRecordVectorQueryCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(VectorQueryErrors.WithLabelValues("test_search"))
	RecordVectorQuery("test_search", time.Millisecond, errors.New("closed"))
	after := testutil.ToFloat64(VectorQueryErrors.WithLabelValues("test_search"))
	if after-before != 1 {
		t.Errorf("error delta = %v, want 1", after-before)
	}
}

func TestRecordRebuild(t *testing.T) {
	RecordRebuild("test_index", time.Second, nil)
	if got := testutil.ToFloat64(RebuildLastSuccess.WithLabelValues("test_index")); got == 0 {
		t.Error("last success timestamp not set")
	}

	before := testutil.ToFloat64(RebuildErrors.WithLabelValues("test_index"))
	RecordRebuild("test_index", time.Second, errors.New("boom"))
	if after := testutil.ToFloat64(RebuildErrors.WithLabelValues("test_index")); after-before != 1 {
		t.Errorf("rebuild error delta = %v, want 1", after-before)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test", "200"))
	RecordAPIRequest("GET", "/test", 200, 10*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test", "200"))
	if after-before != 1 {
		t.Errorf("request delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}
