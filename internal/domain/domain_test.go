package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestEngineError_IsMatchesByCode(t *testing.T) {
	remessaged := NewEngineError(ErrScaleInUse.Code, "rating scale is the configured fallback")
	if !errors.Is(remessaged, ErrScaleInUse) {
		t.Error("re-messaged error should match its sentinel")
	}
	if errors.Is(remessaged, ErrOutletInUse) {
		t.Error("error matched a sentinel with another code")
	}

	wrapped := fmt.Errorf("add review: %w", ErrDuplicateReview)
	if !errors.Is(wrapped, ErrDuplicateReview) {
		t.Error("fmt-wrapped sentinel should still match")
	}
}

func TestWrapEngineError(t *testing.T) {
	err := WrapEngineError(ErrRecomputeFailed.Code, "recompute title 10", errors.New("disk full"))
	if !errors.Is(err, ErrRecomputeFailed) {
		t.Error("wrapped error should match ErrRecomputeFailed")
	}
	want := "engine error -32070: recompute title 10: disk full"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestReviewPatch_IsEmpty(t *testing.T) {
	if !(ReviewPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	score := 4.0
	if (ReviewPatch{NumericScore: &score}).IsEmpty() {
		t.Error("patch with a score should not be empty")
	}
}

func TestReviewPatch_ChangesIdentity(t *testing.T) {
	r := Review{FeatureID: 10, CriticID: 5}
	same, other := int64(10), int64(11)

	tests := []struct {
		name  string
		patch ReviewPatch
		want  bool
	}{
		{"no identity fields", ReviewPatch{}, false},
		{"same feature", ReviewPatch{FeatureID: &same}, false},
		{"other feature", ReviewPatch{FeatureID: &other}, true},
		{"other critic", ReviewPatch{CriticID: &other}, true},
	}
	for _, tt := range tests {
		if got := tt.patch.ChangesIdentity(r); got != tt.want {
			t.Errorf("%s: ChangesIdentity = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestReviewPatch_Apply(t *testing.T) {
	url := "https://example.com/a"
	r := Review{ID: 1, FeatureID: 10, CriticID: 5, ScaleID: 3, NumericScore: 7, Recommendation: RecommendUp, URL: &url}

	score := 2.0
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newURL := "https://example.com/b"
	got := ReviewPatch{NumericScore: &score, ReviewDate: &date, URL: &newURL}.Apply(r)

	if got.NumericScore != 2 || !got.ReviewDate.Equal(date) || *got.URL != newURL {
		t.Errorf("Apply = %+v", got)
	}
	if got.FeatureID != 10 || got.CriticID != 5 || got.ScaleID != 3 {
		t.Errorf("Apply changed untouched fields: %+v", got)
	}
	if got.Recommendation != RecommendUp {
		t.Errorf("Apply touched Recommendation: %s", got.Recommendation)
	}

	newURL = "mutated"
	if *got.URL != "https://example.com/b" {
		t.Error("Apply aliased the patch URL")
	}
	if *r.URL != url {
		t.Error("Apply modified the original review")
	}
}
