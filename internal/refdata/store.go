package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/shadecraft/backend-blinds/internal/pricing"
)

// Rows is the subset of pgx needed for read-only reference queries.
type Rows interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements Querier over Postgres.
type Store struct {
	DB Rows
}

// Percent columns hold admin-entered whole numbers (10 = 10%). The engine
// multiplies by fractions, so values convert here on load. Tax rate columns
// are already fractions and pass through untouched.
var percentBase = decimal.NewFromInt(100)

func fractionOf(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(percentBase)
}

func (s Store) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]pricing.Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, vendor_id, category_id, weight_per_sqft::text,
		       width_min::text, width_max::text, height_min::text, height_max::text
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.Product
	for rows.Next() {
		var p pricing.Product
		var weight, wMin, wMax, hMin, hMax string
		if err := rows.Scan(&p.ID, &p.Name, &p.VendorID, &p.CategoryID, &weight, &wMin, &wMax, &hMin, &hMax); err != nil {
			return nil, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&p.WeightPerSqFt:  weight,
			&p.WidthMinInches: wMin,
			&p.WidthMaxInches: wMax,
			&p.HeightMin:      hMin,
			&p.HeightMax:      hMax,
		}); err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s Store) ListMatrixEntries(ctx context.Context, productID uuid.UUID) ([]pricing.MatrixEntry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, width_min::text, width_max::text, height_min::text, height_max::text, base_price::text
		FROM pricing_matrix WHERE product_id = $1
		ORDER BY width_min, height_min`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.MatrixEntry
	for rows.Next() {
		var e pricing.MatrixEntry
		var wMin, wMax, hMin, hMax, price string
		if err := rows.Scan(&e.ProductID, &wMin, &wMax, &hMin, &hMax, &price); err != nil {
			return nil, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&e.WidthMin: wMin, &e.WidthMax: wMax,
			&e.HeightMin: hMin, &e.HeightMax: hMax,
			&e.BasePrice: price,
		}); err != nil {
			return nil, fmt.Errorf("matrix row for %s: %w", productID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s Store) ListSurchargeRules(ctx context.Context, productID uuid.UUID) ([]pricing.SurchargeRule, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, option_category, option_id, kind, amount::text, active
		FROM surcharge_rules WHERE product_id = $1`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.SurchargeRule
	for rows.Next() {
		var r pricing.SurchargeRule
		var amount string
		if err := rows.Scan(&r.ProductID, &r.Category, &r.OptionID, &r.Kind, &amount, &r.Active); err != nil {
			return nil, err
		}
		var err error
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("surcharge amount: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s Store) ListActiveDiscounts(ctx context.Context) ([]pricing.Discount, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, label, vendor_id, scope, kind, value::text, min_purchase::text,
		       stackable_with_coupons, stackable_with_discounts, valid_from, valid_to, active,
		       product_ids, category_ids
		FROM discounts WHERE active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.Discount
	for rows.Next() {
		var d pricing.Discount
		var vendorID pgtype.UUID
		var value, minPurchase string
		var validFrom, validTo pgtype.Timestamptz
		if err := rows.Scan(&d.ID, &d.Label, &vendorID, &d.Scope, &d.Kind, &value, &minPurchase,
			&d.StackableWithCoupons, &d.StackableWithDiscounts, &validFrom, &validTo, &d.Active,
			&d.ProductIDs, &d.CategoryIDs); err != nil {
			return nil, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&d.Value: value, &d.MinPurchase: minPurchase,
		}); err != nil {
			return nil, fmt.Errorf("discount %s: %w", d.ID, err)
		}
		if d.Kind == pricing.DiscountPercentage {
			d.Value = fractionOf(d.Value)
		}
		if vendorID.Valid {
			id := uuid.UUID(vendorID.Bytes)
			d.VendorID = &id
		}
		if validFrom.Valid {
			t := validFrom.Time
			d.ValidFrom = &t
		}
		if validTo.Valid {
			t := validTo.Time
			d.ValidTo = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s Store) ListTierDiscounts(ctx context.Context) ([]pricing.TierDiscount, error) {
	rows, err := s.DB.Query(ctx, `SELECT tier, percent::text, stackable_with_vendors FROM tier_discounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.TierDiscount
	for rows.Next() {
		var t pricing.TierDiscount
		var percent string
		if err := rows.Scan(&t.Tier, &percent, &t.StackableWithVendors); err != nil {
			return nil, err
		}
		var err error
		if t.Percent, err = decimal.NewFromString(percent); err != nil {
			return nil, fmt.Errorf("tier percent: %w", err)
		}
		t.Percent = fractionOf(t.Percent)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s Store) ListVolumeBreaks(ctx context.Context, productIDs []uuid.UUID) ([]pricing.VolumeBreak, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, min_qty, percent_off::text
		FROM volume_breaks WHERE product_id = ANY($1)`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.VolumeBreak
	for rows.Next() {
		var vb pricing.VolumeBreak
		var percentOff string
		if err := rows.Scan(&vb.ProductID, &vb.MinQty, &percentOff); err != nil {
			return nil, err
		}
		var err error
		if vb.PercentOff, err = decimal.NewFromString(percentOff); err != nil {
			return nil, fmt.Errorf("volume percent: %w", err)
		}
		vb.PercentOff = fractionOf(vb.PercentOff)
		out = append(out, vb)
	}
	return out, rows.Err()
}

const jurisdictionColumns = `postal_code, state, state_rate::text, county_rate::text,
	city_rate::text, special_rate::text, taxes_shipping`

func (s Store) GetJurisdictionByPostal(ctx context.Context, postal string) (pricing.Jurisdiction, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+jurisdictionColumns+` FROM tax_jurisdictions WHERE postal_code = $1`, postal)
	return scanJurisdiction(row)
}

func (s Store) GetStateDefaultRate(ctx context.Context, state string) (pricing.Jurisdiction, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+jurisdictionColumns+` FROM tax_jurisdictions WHERE state = $1 AND postal_code = ''`, state)
	return scanJurisdiction(row)
}

func scanJurisdiction(row pgx.Row) (pricing.Jurisdiction, error) {
	var j pricing.Jurisdiction
	var stateRate, countyRate, cityRate, specialRate string
	err := row.Scan(&j.PostalCode, &j.State, &stateRate, &countyRate, &cityRate, &specialRate, &j.TaxesShipping)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Jurisdiction{}, ErrNotFound
		}
		return pricing.Jurisdiction{}, err
	}
	if err := parseDecimals(map[*decimal.Decimal]string{
		&j.StateRate: stateRate, &j.CountyRate: countyRate,
		&j.CityRate: cityRate, &j.SpecialRate: specialRate,
	}); err != nil {
		return pricing.Jurisdiction{}, fmt.Errorf("jurisdiction %s: %w", j.PostalCode, err)
	}
	return j, nil
}

func (s Store) ListShippingRules(ctx context.Context) ([]pricing.ShippingRule, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, dest_zone, weight_min::text, weight_max::text, rate::text, free_over_subtotal::text, priority
		FROM shipping_rules ORDER BY priority, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.ShippingRule
	for rows.Next() {
		var r pricing.ShippingRule
		var weightMin, weightMax, rate string
		var freeOver *string
		if err := rows.Scan(&r.ID, &r.DestZone, &weightMin, &weightMax, &rate, &freeOver, &r.Priority); err != nil {
			return nil, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&r.WeightMin: weightMin, &r.WeightMax: weightMax, &r.Rate: rate,
		}); err != nil {
			return nil, fmt.Errorf("shipping rule %s: %w", r.ID, err)
		}
		if freeOver != nil {
			v, err := decimal.NewFromString(*freeOver)
			if err != nil {
				return nil, fmt.Errorf("shipping free-over: %w", err)
			}
			r.FreeOverSubtotal = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func parseDecimals(fields map[*decimal.Decimal]string) error {
	for dst, raw := range fields {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}
