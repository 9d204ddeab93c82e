package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/honeydew/review-engine/internal/domain"
)

func TestResultLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ResultOK},
		{"sentinel", domain.ErrReviewNotFound, "-32013"},
		{"wrapped sentinel", fmt.Errorf("add review: %w", domain.ErrDuplicateReview), "-32040"},
		{"plain error", errors.New("disk full"), ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResultLabel(tt.err); got != tt.want {
				t.Errorf("ResultLabel(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestRecordMutation(t *testing.T) {
	before := testutil.ToFloat64(LedgerMutations.WithLabelValues("add_review", ResultOK))
	RecordMutation("add_review", 3*time.Millisecond, nil)
	after := testutil.ToFloat64(LedgerMutations.WithLabelValues("add_review", ResultOK))

	if after-before != 1 {
		t.Errorf("add_review ok counter delta = %v, want 1", after-before)
	}

	beforeErr := testutil.ToFloat64(LedgerMutations.WithLabelValues("remove_review", "-32013"))
	RecordMutation("remove_review", time.Millisecond, domain.ErrReviewNotFound)
	afterErr := testutil.ToFloat64(LedgerMutations.WithLabelValues("remove_review", "-32013"))

	if afterErr-beforeErr != 1 {
		t.Errorf("remove_review error counter delta = %v, want 1", afterErr-beforeErr)
	}
}

func TestRecordRecompute(t *testing.T) {
	replaced := RecomputeTotal.WithLabelValues("title", "replaced")
	removed := RecomputeTotal.WithLabelValues("title", "removed")
	r0, d0 := testutil.ToFloat64(replaced), testutil.ToFloat64(removed)

	RecordRecompute("title", false)
	RecordRecompute("title", true)
	RecordRecompute("title", true)

	if got := testutil.ToFloat64(replaced) - r0; got != 1 {
		t.Errorf("replaced delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(removed) - d0; got != 2 {
		t.Errorf("removed delta = %v, want 2", got)
	}
}

func TestMetricGathering(t *testing.T) {
	RecordMutation("update_review", time.Millisecond, nil)
	RecordRecompute("critic", false)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint: %v", err)
	}
	for _, p := range problems {
		t.Logf("metric lint problem: %s: %s", p.Metric, p.Text)
	}
}
