package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OptionCategory identifies a configurable aspect of a window covering.
type OptionCategory string

const (
	OptionMaterial   OptionCategory = "material"
	OptionMount      OptionCategory = "mount"
	OptionControl    OptionCategory = "control"
	OptionHeadrail   OptionCategory = "headrail"
	OptionBottomRail OptionCategory = "bottom_rail"
)

// LineItem is one configured product plus quantity inside a cart. Dimensions are
// inches. The engine never mutates a LineItem.
type LineItem struct {
	ProductID uuid.UUID
	Qty       int
	Width     decimal.Decimal
	Height    decimal.Decimal
	Options   map[OptionCategory]uuid.UUID
}

// Product carries the catalog attributes the engine needs per line item.
type Product struct {
	ID             uuid.UUID
	Name           string
	VendorID       uuid.UUID
	CategoryID     uuid.UUID
	WeightPerSqFt  decimal.Decimal
	WidthMinInches decimal.Decimal
	WidthMaxInches decimal.Decimal
	HeightMin      decimal.Decimal
	HeightMax      decimal.Decimal
}

// MatrixEntry maps a width/height range to a base unit price for a product.
// Ranges are inclusive on both ends and must tile the product's dimension
// domain without overlaps.
type MatrixEntry struct {
	ProductID uuid.UUID
	WidthMin  decimal.Decimal
	WidthMax  decimal.Decimal
	HeightMin decimal.Decimal
	HeightMax decimal.Decimal
	BasePrice decimal.Decimal
}

// SurchargeKind distinguishes flat option surcharges from per-area ones.
type SurchargeKind string

const (
	SurchargeFlat    SurchargeKind = "flat"
	SurchargePerSqFt SurchargeKind = "per_sqft"
)

// SurchargeRule prices a single selectable option for a product.
type SurchargeRule struct {
	ProductID uuid.UUID
	Category  OptionCategory
	OptionID  uuid.UUID
	Kind      SurchargeKind
	Amount    decimal.Decimal
	Active    bool
}

// DiscountScope restricts which line items a discount touches.
type DiscountScope string

const (
	ScopeAll        DiscountScope = "all"
	ScopeProducts   DiscountScope = "specific_products"
	ScopeCategories DiscountScope = "specific_categories"
)

// DiscountKind is the value semantics of a discount.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// Discount is a vendor- or store-level promotion. VendorID scopes the discount to
// that vendor's line items when set. Value is a fraction for percentage kinds
// (0.10 = 10%); the stores convert the whole-number percent columns on load.
type Discount struct {
	ID                     uuid.UUID
	Label                  string
	VendorID               *uuid.UUID
	Scope                  DiscountScope
	Kind                   DiscountKind
	Value                  decimal.Decimal
	MinPurchase            decimal.Decimal
	StackableWithCoupons   bool
	StackableWithDiscounts bool
	ValidFrom              *time.Time
	ValidTo                *time.Time
	Active                 bool
	ProductIDs             []uuid.UUID
	CategoryIDs            []uuid.UUID
}

// Coupon is a limited-use code sharing the discount shape. TimesUsed and
// CustomerUses reflect the snapshot the engine was handed; the authoritative
// check-and-increment happens at confirmation inside the redemption transaction.
type Coupon struct {
	ID                    uuid.UUID
	Code                  string
	Discount
	UsageLimitTotal       *int32
	UsageLimitPerCustomer *int32
	TimesUsed             int32
	CustomerUses          int32
}

// TierDiscount is a customer-tier percentage applied after vendor discounts.
// Percent is a fraction (0.05 = 5%).
type TierDiscount struct {
	Tier                 string
	Percent              decimal.Decimal
	StackableWithVendors bool
}

// VolumeBreak reprices a product line once quantity reaches MinQty.
// PercentOff is a fraction (0.10 = 10%).
type VolumeBreak struct {
	ProductID  uuid.UUID
	MinQty     int
	PercentOff decimal.Decimal
}

// Jurisdiction holds the component tax rates for a postal code (or the state
// fallback). Rates are fractions, e.g. 0.08 for 8%.
type Jurisdiction struct {
	PostalCode    string
	State         string
	StateRate     decimal.Decimal
	CountyRate    decimal.Decimal
	CityRate      decimal.Decimal
	SpecialRate   decimal.Decimal
	TaxesShipping bool
}

// TotalRate is the combined jurisdiction rate.
func (j Jurisdiction) TotalRate() decimal.Decimal {
	return j.StateRate.Add(j.CountyRate).Add(j.CityRate).Add(j.SpecialRate)
}

// ShippingRule maps a destination zone and weight band to a flat rate. A rule
// with FreeOverSubtotal set waives the cost once the discounted subtotal
// reaches the threshold. Lower Priority wins when several bands match.
type ShippingRule struct {
	ID               uuid.UUID
	DestZone         string
	WeightMin        decimal.Decimal
	WeightMax        decimal.Decimal
	Rate             decimal.Decimal
	FreeOverSubtotal *decimal.Decimal
	Priority         int
}

// CustomerContext identifies the purchaser for tier and per-customer limits.
type CustomerContext struct {
	ID   *uuid.UUID
	Tier string
}

// Destination is where the order ships, driving tax and shipping resolution.
type Destination struct {
	PostalCode string
	State      string
	Zone       string
}

// Snapshot is the immutable reference-data view a single pricing request runs
// against. It is fetched once per request so the computation stays internally
// consistent even if the underlying tables change mid-flight. TakenAt doubles
// as the evaluation instant for validity windows, keeping a replay of the same
// snapshot byte-identical.
type Snapshot struct {
	TakenAt       time.Time
	Products      map[uuid.UUID]Product
	Matrices      map[uuid.UUID][]MatrixEntry
	Surcharges    map[uuid.UUID][]SurchargeRule
	Discounts     []Discount
	TierDiscounts map[string]TierDiscount
	VolumeBreaks  map[uuid.UUID][]VolumeBreak
	Coupon        *Coupon
	Jurisdictions map[string]Jurisdiction
	StateRates    map[string]Jurisdiction
	ShippingRules []ShippingRule
}

// PricedLine is the full-precision result of pricing one line item.
type PricedLine struct {
	Item      LineItem
	Product   Product
	UnitPrice decimal.Decimal
	Surcharge decimal.Decimal
	AreaSqFt  decimal.Decimal
	Total     decimal.Decimal
}

// AppliedDiscount records one discount the stack resolver kept. Coupon marks
// the entry that came from the coupon code, so redemption bookkeeping never
// has to infer it from the label.
type AppliedDiscount struct {
	Label  string
	Amount decimal.Decimal
	Coupon bool
}

// DiscountResult is the outcome of the discount stack resolution.
// CouponAmount is the post-clamp dollar value the coupon contributed, zero
// when no coupon entry survived.
type DiscountResult struct {
	Total        decimal.Decimal
	Applied      []AppliedDiscount
	CouponAmount decimal.Decimal
}

// Adjustment is one named step in the audit trail: a signed amount and the
// running total after applying it. Amounts are rendered as strings so the JSON
// form is exact.
type Adjustment struct {
	Label   string          `json:"label"`
	Amount  decimal.Decimal `json:"amount"`
	Running decimal.Decimal `json:"running"`
}

// Breakdown is the itemized, auditable result of a pricing run. Every figure
// is rounded to cents exactly once, by the assembler. Persisting it alongside
// the order lets an invoice be re-derived from the same inputs.
type Breakdown struct {
	Currency       string          `json:"currency"`
	Lines          []PricedLine    `json:"-"`
	CouponDiscount decimal.Decimal `json:"-"`
	Adjustments    []Adjustment    `json:"adjustments"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountTotal  decimal.Decimal `json:"discountTotal"`
	Tax            decimal.Decimal `json:"tax"`
	Shipping       decimal.Decimal `json:"shipping"`
	GrandTotal     decimal.Decimal `json:"grandTotal"`
}
