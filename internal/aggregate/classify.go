package aggregate

import (
	"math"

	"github.com/honeydew/review-engine/internal/domain"
)

// CertificationThreshold is the sweetness at or above which a title is HoneyDew.
// It is independent of any rating scale's positive threshold.
const CertificationThreshold = 60.0

// SweetnessPct returns 100*positive/total rounded half away from zero to two decimals, or 0 when total is 0.
func SweetnessPct(positive, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(10000*float64(positive)/float64(total)) / 100
}

// Certify maps a title's sweetness to its badge.
func Certify(sweetnessPct float64) domain.Certification {
	if sweetnessPct >= CertificationThreshold {
		return domain.CertHoneyDew
	}
	return domain.CertHoneyDont
}

// TitleStatsFrom builds the stats row of a feature from its tally.
func TitleStatsFrom(featureID int64, t domain.Tally) domain.TitleStats {
	pct := SweetnessPct(t.Positive, t.Total)
	return domain.TitleStats{
		FeatureID:       featureID,
		TotalReviews:    t.Total,
		PositiveReviews: t.Positive,
		SweetnessPct:    pct,
		Certification:   Certify(pct),
	}
}

// CriticStatsFrom builds the stats row of a critic from its tally.
func CriticStatsFrom(criticID int64, t domain.Tally) domain.CriticStats {
	return domain.CriticStats{
		CriticID:     criticID,
		ReviewCount:  t.Total,
		SweetnessPct: SweetnessPct(t.Positive, t.Total),
	}
}

// OutletStatsFrom builds the stats row of an outlet from its tally.
func OutletStatsFrom(outletID int64, t domain.Tally) domain.OutletStats {
	return domain.OutletStats{
		OutletID:     outletID,
		ReviewCount:  t.Total,
		SweetnessPct: SweetnessPct(t.Positive, t.Total),
	}
}
