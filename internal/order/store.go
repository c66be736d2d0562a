// Package order persists confirmed orders together with the exact price
// breakdown the customer accepted. The breakdown is stored as JSON so the
// quoted adjustments survive later changes to matrices, rates, or rules.
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Status values an order can carry.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCanceled  = "CANCELED"
)

// Order is a persisted confirmed order.
type Order struct {
	ID            uuid.UUID
	CustomerID    *uuid.UUID
	Status        string
	Currency      string
	CouponCode    *string
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	GrandTotal    decimal.Decimal
	DestState     string
	DestPostal    string
	Breakdown     json.RawMessage
	CreatedAt     time.Time
}

// Item is one configured line on an order.
type Item struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	WidthInches  decimal.Decimal
	HeightInches decimal.Decimal
	Options      json.RawMessage
	Qty          int32
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
}

// InsertOrderParams carries a new order and its items into the store.
type InsertOrderParams struct {
	ID            uuid.UUID
	CustomerID    *uuid.UUID
	Currency      string
	CouponCode    *string
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	GrandTotal    decimal.Decimal
	DestState     string
	DestPostal    string
	Breakdown     json.RawMessage
	Items         []Item
}

// DBTX is satisfied by both pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists orders in Postgres.
type Store struct {
	DB DBTX
}

// WithTx rebinds the store to a transaction.
func (s Store) WithTx(tx pgx.Tx) Store {
	return Store{DB: tx}
}

// InsertOrder writes the order row and all of its items. Callers run it inside
// a transaction so a failed item insert rolls the whole order back.
func (s Store) InsertOrder(ctx context.Context, arg InsertOrderParams) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, status, currency, coupon_code,
			subtotal, discount_total, tax, shipping, grand_total,
			dest_state, dest_postal, breakdown
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11, $12, $13)`,
		arg.ID, arg.CustomerID, StatusConfirmed, arg.Currency, arg.CouponCode,
		arg.Subtotal.String(), arg.DiscountTotal.String(), arg.Tax.String(),
		arg.Shipping.String(), arg.GrandTotal.String(),
		arg.DestState, arg.DestPostal, arg.Breakdown)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for _, item := range arg.Items {
		_, err := s.DB.Exec(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, width_inches, height_inches,
				options, qty, unit_price, line_total
			) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8::numeric, $9::numeric)`,
			item.ID, arg.ID, item.ProductID,
			item.WidthInches.String(), item.HeightInches.String(),
			item.Options, item.Qty, item.UnitPrice.String(), item.LineTotal.String())
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

const orderColumns = `id, customer_id, status, currency, coupon_code,
	subtotal::text, discount_total::text, tax::text, shipping::text, grand_total::text,
	dest_state, dest_postal, breakdown, created_at`

// GetOrder loads a stored order with its items.
func (s Store) GetOrder(ctx context.Context, id uuid.UUID) (Order, []Item, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	var o Order
	var subtotal, discount, tax, shipping, grand string
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.Currency, &o.CouponCode,
		&subtotal, &discount, &tax, &shipping, &grand,
		&o.DestState, &o.DestPostal, &o.Breakdown, &o.CreatedAt)
	if err != nil {
		return Order{}, nil, err
	}
	for dst, raw := range map[*decimal.Decimal]string{
		&o.Subtotal: subtotal, &o.DiscountTotal: discount,
		&o.Tax: tax, &o.Shipping: shipping, &o.GrandTotal: grand,
	} {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return Order{}, nil, fmt.Errorf("order %s: %w", id, err)
		}
		*dst = v
	}

	rows, err := s.DB.Query(ctx, `
		SELECT id, order_id, product_id, width_inches::text, height_inches::text,
		       options, qty, unit_price::text, line_total::text
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var width, height, unit, total string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &width, &height,
			&it.Options, &it.Qty, &unit, &total); err != nil {
			return Order{}, nil, err
		}
		for dst, raw := range map[*decimal.Decimal]string{
			&it.WidthInches: width, &it.HeightInches: height,
			&it.UnitPrice: unit, &it.LineTotal: total,
		} {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return Order{}, nil, fmt.Errorf("order item: %w", err)
			}
			*dst = v
		}
		items = append(items, it)
	}
	return o, items, rows.Err()
}

// UpdateOrderStatus transitions an order. Only used by the cancel flow.
func (s Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.DB.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	return err
}
