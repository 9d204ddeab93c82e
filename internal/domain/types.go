// Package domain defines the core types for the review aggregation engine.
package domain

import "time"

// DateLayout is the storage format for calendar dates.
const DateLayout = "2006-01-02"

// Recommendation is the binary classification of a single review.
type Recommendation string

const (
	RecommendUp   Recommendation = "UP"
	RecommendDown Recommendation = "DOWN"
)

// Certification is the qualitative badge of a title.
type Certification string

const (
	CertHoneyDew  Certification = "HoneyDew"
	CertHoneyDont Certification = "HoneyDont"
)

// RatingScale is a scoring scheme and the score at or above which a review counts as positive.
type RatingScale struct {
	ID                int64   `db:"id" json:"id"`
	Description       string  `db:"description" json:"description"`
	PositiveThreshold float64 `db:"positive_threshold" json:"positive_threshold"`
}

// Outlet is a publication that employs critics.
type Outlet struct {
	ID      int64   `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Country *string `db:"country" json:"country,omitempty"`
	URL     *string `db:"url" json:"url,omitempty"`
}

// Critic writes reviews for exactly one outlet.
type Critic struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	OutletID    int64     `json:"outlet_id"`
	IsTopCritic bool      `json:"is_top_critic"`
	JoinedDate  time.Time `json:"joined_date"`
}

// Feature is the catalog identity of a film or TV title.
type Feature struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	ReleaseYear *int   `db:"release_year" json:"release_year,omitempty"`
}

// Review is one critic's review of one feature.
// Recommendation is derived from NumericScore and the scale threshold and is never set by callers.
type Review struct {
	ID             int64          `json:"id"`
	FeatureID      int64          `json:"feature_id"`
	CriticID       int64          `json:"critic_id"`
	ScaleID        int64          `json:"scale_id"`
	NumericScore   float64        `json:"numeric_score"`
	Recommendation Recommendation `json:"recommendation"`
	ReviewDate     time.Time      `json:"review_date"`
	URL            *string        `json:"url,omitempty"`
}

// NewReview is the input for adding a review. A nil ScaleID selects the fallback scale.
type NewReview struct {
	FeatureID    int64     `validate:"required,gt=0"`
	CriticID     int64     `validate:"required,gt=0"`
	ScaleID      *int64    `validate:"omitempty,gt=0"`
	NumericScore float64   `validate:"gte=0"`
	ReviewDate   time.Time `validate:"required"`
	URL          *string   `validate:"omitempty,url"`
}

// ReviewPatch holds the fields to change on an existing review. Nil fields are left untouched.
type ReviewPatch struct {
	FeatureID    *int64     `validate:"omitempty,gt=0"`
	CriticID     *int64     `validate:"omitempty,gt=0"`
	ScaleID      *int64     `validate:"omitempty,gt=0"`
	NumericScore *float64   `validate:"omitempty,gte=0"`
	ReviewDate   *time.Time `validate:"omitempty"`
	URL          *string    `validate:"omitempty,url"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ReviewPatch) IsEmpty() bool {
	return p.FeatureID == nil && p.CriticID == nil && p.ScaleID == nil &&
		p.NumericScore == nil && p.ReviewDate == nil && p.URL == nil
}

// ChangesIdentity reports whether applying the patch to r moves it to another feature or critic.
func (p ReviewPatch) ChangesIdentity(r Review) bool {
	return (p.FeatureID != nil && *p.FeatureID != r.FeatureID) ||
		(p.CriticID != nil && *p.CriticID != r.CriticID)
}

// Apply returns a copy of r with the patch fields applied. Recommendation is not touched.
func (p ReviewPatch) Apply(r Review) Review {
	if p.FeatureID != nil {
		r.FeatureID = *p.FeatureID
	}
	if p.CriticID != nil {
		r.CriticID = *p.CriticID
	}
	if p.ScaleID != nil {
		r.ScaleID = *p.ScaleID
	}
	if p.NumericScore != nil {
		r.NumericScore = *p.NumericScore
	}
	if p.ReviewDate != nil {
		r.ReviewDate = *p.ReviewDate
	}
	if p.URL != nil {
		u := *p.URL
		r.URL = &u
	}
	return r
}

// TitleStats is the cached aggregate for one feature.
type TitleStats struct {
	FeatureID       int64         `db:"feature_id" json:"feature_id"`
	TotalReviews    int           `db:"total_reviews" json:"total_reviews"`
	PositiveReviews int           `db:"positive_reviews" json:"positive_reviews"`
	SweetnessPct    float64       `db:"sweetness_pct" json:"sweetness_pct"`
	Certification   Certification `db:"certification" json:"certification"`
}

// CriticStats is the cached aggregate for one critic.
type CriticStats struct {
	CriticID     int64   `db:"critic_id" json:"critic_id"`
	ReviewCount  int     `db:"review_count" json:"review_count"`
	SweetnessPct float64 `db:"sweetness_pct" json:"sweetness_pct"`
}

// OutletStats is the cached aggregate over all critics of one outlet.
type OutletStats struct {
	OutletID     int64   `db:"outlet_id" json:"outlet_id"`
	ReviewCount  int     `db:"review_count" json:"review_count"`
	SweetnessPct float64 `db:"sweetness_pct" json:"sweetness_pct"`
}

// Tally is the raw count pair a recompute reads from the review ledger.
type Tally struct {
	Total    int `db:"total"`
	Positive int `db:"positive"`
}

// AuditRecord is one committed ledger mutation.
type AuditRecord struct {
	ID         string `db:"id"`
	Operation  string `db:"operation"`
	ReviewID   int64  `db:"review_id"`
	FeatureID  int64  `db:"feature_id"`
	CriticID   int64  `db:"critic_id"`
	DetailJSON string `db:"detail_json"`
	CreatedAt  int64  `db:"created_at"`
}

// Drift is one cached stats row that disagrees with a recompute from the ledger.
type Drift struct {
	Kind   string `json:"kind"`
	Key    int64  `json:"key"`
	Cached string `json:"cached"`
	Actual string `json:"actual"`
}
