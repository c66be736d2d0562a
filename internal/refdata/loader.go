// Package refdata assembles the immutable reference-data snapshot a pricing
// request runs against. Everything is fetched once per request, so a single
// computation stays internally consistent even if underlying tables change
// mid-flight. Pricing matrices and tax jurisdictions are served through a
// Redis read-through cache with an explicit admin invalidation hook; computed
// totals are never cached.
package refdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shadecraft/backend-blinds/internal/coupon"
	"github.com/shadecraft/backend-blinds/internal/lock"
	"github.com/shadecraft/backend-blinds/internal/obs"
	"github.com/shadecraft/backend-blinds/internal/pricing"
)

// ErrNotFound indicates a reference row is absent. Loader treats it as an
// empty result, not a failure.
var ErrNotFound = errors.New("reference row not found")

// Querier captures the read queries the loader needs.
type Querier interface {
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]pricing.Product, error)
	ListMatrixEntries(ctx context.Context, productID uuid.UUID) ([]pricing.MatrixEntry, error)
	ListSurchargeRules(ctx context.Context, productID uuid.UUID) ([]pricing.SurchargeRule, error)
	ListActiveDiscounts(ctx context.Context) ([]pricing.Discount, error)
	ListTierDiscounts(ctx context.Context) ([]pricing.TierDiscount, error)
	ListVolumeBreaks(ctx context.Context, productIDs []uuid.UUID) ([]pricing.VolumeBreak, error)
	GetJurisdictionByPostal(ctx context.Context, postal string) (pricing.Jurisdiction, error)
	GetStateDefaultRate(ctx context.Context, state string) (pricing.Jurisdiction, error)
	ListShippingRules(ctx context.Context) ([]pricing.ShippingRule, error)
}

// Request identifies what a snapshot must cover.
type Request struct {
	ProductIDs  []uuid.UUID
	Destination pricing.Destination
	CouponCode  string
	CustomerID  *uuid.UUID
}

// Loader builds pricing snapshots.
type Loader struct {
	Q       Querier
	Cache   *Cache
	Coupons *coupon.Service
	Locker  *lock.Locker
	Now     func() time.Time
}

const (
	matrixKeyPrefix = "refdata:matrix:"
	taxKeyPrefix    = "refdata:tax:"
	taxStatePrefix  = "refdata:tax:state:"
	fillLockPrefix  = "lock:refdata:"
	fillLockTTL     = 10 * time.Second
)

// Snapshot fetches all reference data for the request in one pass. Any fetch
// failure wraps pricing.ErrReferenceDataUnavailable so the engine fails fast
// instead of pricing against a partial view; the caller's context deadline
// propagates into every read.
func (l *Loader) Snapshot(ctx context.Context, req Request) (*pricing.Snapshot, error) {
	if l == nil || l.Q == nil {
		return nil, fmt.Errorf("loader not configured: %w", pricing.ErrReferenceDataUnavailable)
	}

	snap := &pricing.Snapshot{
		TakenAt:       l.now(),
		Products:      map[uuid.UUID]pricing.Product{},
		Matrices:      map[uuid.UUID][]pricing.MatrixEntry{},
		Surcharges:    map[uuid.UUID][]pricing.SurchargeRule{},
		TierDiscounts: map[string]pricing.TierDiscount{},
		VolumeBreaks:  map[uuid.UUID][]pricing.VolumeBreak{},
		Jurisdictions: map[string]pricing.Jurisdiction{},
		StateRates:    map[string]pricing.Jurisdiction{},
	}

	products, err := l.Q.ListProductsByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, unavailable("products", err)
	}
	for _, p := range products {
		snap.Products[p.ID] = p
	}

	for _, productID := range req.ProductIDs {
		entries, err := l.matrixEntries(ctx, productID)
		if err != nil {
			return nil, unavailable("pricing matrix", err)
		}
		snap.Matrices[productID] = entries

		rules, err := l.Q.ListSurchargeRules(ctx, productID)
		if err != nil {
			return nil, unavailable("surcharges", err)
		}
		snap.Surcharges[productID] = rules
	}

	if snap.Discounts, err = l.Q.ListActiveDiscounts(ctx); err != nil {
		return nil, unavailable("discounts", err)
	}
	tiers, err := l.Q.ListTierDiscounts(ctx)
	if err != nil {
		return nil, unavailable("tier discounts", err)
	}
	for _, t := range tiers {
		snap.TierDiscounts[t.Tier] = t
	}
	breaks, err := l.Q.ListVolumeBreaks(ctx, req.ProductIDs)
	if err != nil {
		return nil, unavailable("volume breaks", err)
	}
	for _, vb := range breaks {
		snap.VolumeBreaks[vb.ProductID] = append(snap.VolumeBreaks[vb.ProductID], vb)
	}

	if err := l.loadJurisdictions(ctx, snap, req.Destination); err != nil {
		return nil, err
	}

	if snap.ShippingRules, err = l.Q.ListShippingRules(ctx); err != nil {
		return nil, unavailable("shipping rules", err)
	}

	if code := strings.TrimSpace(req.CouponCode); code != "" && l.Coupons != nil {
		c, err := l.Coupons.Load(ctx, code, req.CustomerID)
		if err != nil {
			return nil, unavailable("coupon", err)
		}
		snap.Coupon = c
	}
	return snap, nil
}

// matrixEntries serves matrix rows cache-first. Refills are single-flighted
// across instances through the distributed lock so a popular product does not
// stampede the database when its key expires.
func (l *Loader) matrixEntries(ctx context.Context, productID uuid.UUID) ([]pricing.MatrixEntry, error) {
	key := matrixKeyPrefix + productID.String()
	var entries []pricing.MatrixEntry
	if hit, err := l.Cache.GetJSON(ctx, key, &entries); err == nil && hit {
		countCache(obs.RefdataCacheHits, "matrix")
		return entries, nil
	}
	countCache(obs.RefdataCacheMisses, "matrix")

	fill := func(ctx context.Context) error {
		if hit, err := l.Cache.GetJSON(ctx, key, &entries); err == nil && hit {
			return nil
		}
		var err error
		entries, err = l.Q.ListMatrixEntries(ctx, productID)
		if err != nil {
			return err
		}
		_ = l.Cache.SetJSON(ctx, key, entries)
		return nil
	}

	if l.Locker != nil {
		if err := l.Locker.WithLock(ctx, fillLockPrefix+key, fillLockTTL, fill); err == nil {
			return entries, nil
		}
	}
	// Lock unavailable (no Redis, contention timeout): read through directly.
	if err := fill(ctx); err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *Loader) loadJurisdictions(ctx context.Context, snap *pricing.Snapshot, dest pricing.Destination) error {
	postal := strings.TrimSpace(dest.PostalCode)
	if postal != "" {
		j, ok, err := l.jurisdiction(ctx, taxKeyPrefix+postal, func(ctx context.Context) (pricing.Jurisdiction, error) {
			return l.Q.GetJurisdictionByPostal(ctx, postal)
		})
		if err != nil {
			return unavailable("tax jurisdiction", err)
		}
		if ok {
			snap.Jurisdictions[postal] = j
		}
	}
	state := strings.ToUpper(strings.TrimSpace(dest.State))
	if state != "" {
		j, ok, err := l.jurisdiction(ctx, taxStatePrefix+state, func(ctx context.Context) (pricing.Jurisdiction, error) {
			return l.Q.GetStateDefaultRate(ctx, state)
		})
		if err != nil {
			return unavailable("state tax rate", err)
		}
		if ok {
			snap.StateRates[state] = j
		}
	}
	return nil
}

// jurisdiction reads one rate cache-first. Absent rows are not cached; the
// tax engine decides whether missing resolution is fatal.
func (l *Loader) jurisdiction(ctx context.Context, key string, fetch func(context.Context) (pricing.Jurisdiction, error)) (pricing.Jurisdiction, bool, error) {
	var j pricing.Jurisdiction
	if hit, err := l.Cache.GetJSON(ctx, key, &j); err == nil && hit {
		countCache(obs.RefdataCacheHits, "tax")
		return j, true, nil
	}
	countCache(obs.RefdataCacheMisses, "tax")

	j, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return pricing.Jurisdiction{}, false, nil
		}
		return pricing.Jurisdiction{}, false, err
	}
	_ = l.Cache.SetJSON(ctx, key, j)
	return j, true, nil
}

// InvalidateTax drops the cached rate for a postal code. Admin hook.
func (l *Loader) InvalidateTax(ctx context.Context, postal string) error {
	return l.Cache.Delete(ctx, taxKeyPrefix+strings.TrimSpace(postal))
}

// InvalidateStateRate drops the cached state default rate. Admin hook.
func (l *Loader) InvalidateStateRate(ctx context.Context, state string) error {
	return l.Cache.Delete(ctx, taxStatePrefix+strings.ToUpper(strings.TrimSpace(state)))
}

// InvalidateMatrix drops the cached pricing matrix for a product. Admin hook.
func (l *Loader) InvalidateMatrix(ctx context.Context, productID uuid.UUID) error {
	return l.Cache.Delete(ctx, matrixKeyPrefix+productID.String())
}

func (l *Loader) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

func unavailable(what string, err error) error {
	return fmt.Errorf("%s: %v: %w", what, err, pricing.ErrReferenceDataUnavailable)
}

func countCache(c *prometheus.CounterVec, dataset string) {
	if c != nil {
		c.WithLabelValues(dataset).Inc()
	}
}
