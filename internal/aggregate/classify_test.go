package aggregate

import (
	"testing"

	"github.com/honeydew/review-engine/internal/domain"
)

func TestSweetnessPct(t *testing.T) {
	tests := []struct {
		positive, total int
		want            float64
	}{
		{0, 0, 0},
		{1, 1, 100},
		{1, 2, 50},
		{0, 2, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{1, 6, 16.67},
	}
	for _, tt := range tests {
		if got := SweetnessPct(tt.positive, tt.total); got != tt.want {
			t.Errorf("SweetnessPct(%d, %d) = %v, want %v", tt.positive, tt.total, got, tt.want)
		}
	}
}

func TestCertify(t *testing.T) {
	tests := []struct {
		pct  float64
		want domain.Certification
	}{
		{100, domain.CertHoneyDew},
		{60, domain.CertHoneyDew},
		{59.99, domain.CertHoneyDont},
		{50, domain.CertHoneyDont},
		{0, domain.CertHoneyDont},
	}
	for _, tt := range tests {
		if got := Certify(tt.pct); got != tt.want {
			t.Errorf("Certify(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestTitleStatsFrom(t *testing.T) {
	got := TitleStatsFrom(10, domain.Tally{Total: 5, Positive: 3})
	want := domain.TitleStats{FeatureID: 10, TotalReviews: 5, PositiveReviews: 3, SweetnessPct: 60, Certification: domain.CertHoneyDew}
	if got != want {
		t.Errorf("TitleStatsFrom = %+v, want %+v", got, want)
	}

	c := CriticStatsFrom(5, domain.Tally{Total: 4, Positive: 1})
	if c.ReviewCount != 4 || c.SweetnessPct != 25 {
		t.Errorf("CriticStatsFrom = %+v, want count 4 sweetness 25", c)
	}
	o := OutletStatsFrom(2, domain.Tally{Total: 3, Positive: 3})
	if o.ReviewCount != 3 || o.SweetnessPct != 100 {
		t.Errorf("OutletStatsFrom = %+v, want count 3 sweetness 100", o)
	}
}
