package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/honeydew/review-engine/internal/domain"
)

// Key kinds, also used as lock name prefixes and metric labels.
const (
	KindTitle  = "title"
	KindCritic = "critic"
	KindOutlet = "outlet"
)

// Keys is the set of statistics rows a ledger mutation affects.
type Keys struct {
	titles  map[int64]struct{}
	critics map[int64]struct{}
	outlets map[int64]struct{}
}

// NewKeys returns an empty key set.
func NewKeys() *Keys {
	return &Keys{
		titles:  make(map[int64]struct{}),
		critics: make(map[int64]struct{}),
		outlets: make(map[int64]struct{}),
	}
}

// AddTitle marks a feature's title stats as affected.
func (k *Keys) AddTitle(featureID int64) { k.titles[featureID] = struct{}{} }

// AddCritic marks a critic's stats as affected.
func (k *Keys) AddCritic(criticID int64) { k.critics[criticID] = struct{}{} }

// AddOutlet marks an outlet's stats as affected.
func (k *Keys) AddOutlet(outletID int64) { k.outlets[outletID] = struct{}{} }

// Merge adds every key of o to k.
func (k *Keys) Merge(o *Keys) {
	for id := range o.titles {
		k.AddTitle(id)
	}
	for id := range o.critics {
		k.AddCritic(id)
	}
	for id := range o.outlets {
		k.AddOutlet(id)
	}
}

// Titles returns the feature keys in ascending order.
func (k *Keys) Titles() []int64 { return sortedIDs(k.titles) }

// Critics returns the critic keys in ascending order.
func (k *Keys) Critics() []int64 { return sortedIDs(k.critics) }

// Outlets returns the outlet keys in ascending order.
func (k *Keys) Outlets() []int64 { return sortedIDs(k.outlets) }

// Len returns the total number of keys.
func (k *Keys) Len() int { return len(k.titles) + len(k.critics) + len(k.outlets) }

// LockNames returns one lock name per key, such as "title:10".
func (k *Keys) LockNames() []string {
	names := make([]string, 0, k.Len())
	for _, id := range k.Titles() {
		names = append(names, LockName(KindTitle, id))
	}
	for _, id := range k.Critics() {
		names = append(names, LockName(KindCritic, id))
	}
	for _, id := range k.Outlets() {
		names = append(names, LockName(KindOutlet, id))
	}
	return names
}

// LockName formats the lock name of one statistics key.
func LockName(kind string, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func sortedIDs(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OutletLookup maps a critic to the outlet it currently writes for.
type OutletLookup interface {
	OutletOf(ctx context.Context, q sqlx.QueryerContext, criticID int64) (int64, error)
}

// ReviewKeys derives the keys touched by inserting, changing or deleting the given reviews.
// An identity-changing update passes both the old and the new version.
func ReviewKeys(ctx context.Context, q sqlx.QueryerContext, outlets OutletLookup, reviews ...domain.Review) (*Keys, error) {
	k := NewKeys()
	for _, r := range reviews {
		k.AddTitle(r.FeatureID)
		k.AddCritic(r.CriticID)
		outletID, err := outlets.OutletOf(ctx, q, r.CriticID)
		if err != nil {
			return nil, err
		}
		k.AddOutlet(outletID)
	}
	return k, nil
}

// CriticRemovalKeys derives the keys touched by removing every review of a critic.
// features lists the distinct features the critic had reviewed.
func CriticRemovalKeys(ctx context.Context, q sqlx.QueryerContext, outlets OutletLookup, criticID int64, features []int64) (*Keys, error) {
	k := NewKeys()
	for _, f := range features {
		k.AddTitle(f)
	}
	k.AddCritic(criticID)
	outletID, err := outlets.OutletOf(ctx, q, criticID)
	if err != nil {
		return nil, err
	}
	k.AddOutlet(outletID)
	return k, nil
}

// FeatureRemovalKeys derives the keys touched by removing every review of a feature.
// critics lists the distinct critics who had reviewed it.
func FeatureRemovalKeys(ctx context.Context, q sqlx.QueryerContext, outlets OutletLookup, featureID int64, critics []int64) (*Keys, error) {
	k := NewKeys()
	k.AddTitle(featureID)
	for _, c := range critics {
		k.AddCritic(c)
		outletID, err := outlets.OutletOf(ctx, q, c)
		if err != nil {
			return nil, err
		}
		k.AddOutlet(outletID)
	}
	return k, nil
}
