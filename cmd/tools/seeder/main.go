package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Seeds a development database with a small but complete reference-data set:
// two vendors, two products with pricing matrices, option surcharges, the
// discount stack, tax jurisdictions, shipping rules, and a handful of coupons.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	statements := []string{
		`INSERT INTO products (id, name, vendor_id, category_id, weight_per_sqft,
			width_min, width_max, height_min, height_max)
		 VALUES
			('11111111-1111-1111-1111-111111111111', 'Cordless Cellular Shade',
			 'aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa', 'cccccccc-cccc-cccc-cccc-cccccccccccc',
			 0.40, 12, 96, 12, 120),
			('11111111-1111-1111-1111-222222222222', 'Premium Roller Shade',
			 'bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb', 'cccccccc-cccc-cccc-cccc-cccccccccccc',
			 0.55, 18, 120, 18, 144)
		 ON CONFLICT (id) DO NOTHING`,

		`INSERT INTO pricing_matrix (product_id, width_min, width_max, height_min, height_max, base_price)
		 VALUES
			('11111111-1111-1111-1111-111111111111', 12, 48, 12, 60, 120.00),
			('11111111-1111-1111-1111-111111111111', 12, 48, 60.001, 120, 155.00),
			('11111111-1111-1111-1111-111111111111', 48.001, 96, 12, 60, 170.00),
			('11111111-1111-1111-1111-111111111111', 48.001, 96, 60.001, 120, 210.00),
			('11111111-1111-1111-1111-222222222222', 18, 60, 18, 72, 145.00),
			('11111111-1111-1111-1111-222222222222', 18, 60, 72.001, 144, 190.00),
			('11111111-1111-1111-1111-222222222222', 60.001, 120, 18, 72, 205.00),
			('11111111-1111-1111-1111-222222222222', 60.001, 120, 72.001, 144, 260.00)
		 ON CONFLICT DO NOTHING`,

		`INSERT INTO surcharge_rules (product_id, option_category, option_id, kind, amount, active)
		 VALUES
			('11111111-1111-1111-1111-111111111111', 'material', 'dddddddd-0000-0000-0000-000000000001', 'per_sqft', 0.50, true),
			('11111111-1111-1111-1111-111111111111', 'control',  'dddddddd-0000-0000-0000-000000000002', 'flat', 25.00, true),
			('11111111-1111-1111-1111-222222222222', 'material', 'dddddddd-0000-0000-0000-000000000003', 'per_sqft', 0.75, true),
			('11111111-1111-1111-1111-222222222222', 'mount',    'dddddddd-0000-0000-0000-000000000004', 'flat', 15.00, true)
		 ON CONFLICT DO NOTHING`,

		`INSERT INTO discounts (id, label, vendor_id, scope, kind, value, min_purchase,
			stackable_with_coupons, stackable_with_discounts, active)
		 VALUES
			('eeeeeeee-0000-0000-0000-000000000001', 'Vendor Spring Sale',
			 'aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa', 'all', 'percentage', 10, 0, true, true, true),
			('eeeeeeee-0000-0000-0000-000000000002', 'Premium Launch',
			 'bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb', 'all', 'fixed', 20, 100, false, true, true)
		 ON CONFLICT (id) DO NOTHING`,

		`INSERT INTO tier_discounts (tier, percent, stackable_with_vendors)
		 VALUES ('trade', 5, true), ('pro', 8, false)
		 ON CONFLICT (tier) DO NOTHING`,

		`INSERT INTO volume_breaks (product_id, min_qty, percent_off)
		 VALUES
			('11111111-1111-1111-1111-111111111111', 5, 5),
			('11111111-1111-1111-1111-111111111111', 10, 10)
		 ON CONFLICT DO NOTHING`,

		`INSERT INTO tax_jurisdictions (postal_code, state, state_rate, county_rate, city_rate, special_rate, taxes_shipping)
		 VALUES
			('98101', 'WA', 0.065, 0.015, 0.021, 0.002, true),
			('97205', 'OR', 0, 0, 0, 0, false),
			('', 'WA', 0.065, 0, 0, 0, true),
			('', 'CA', 0.0725, 0, 0, 0, false)
		 ON CONFLICT DO NOTHING`,

		`INSERT INTO shipping_rules (id, dest_zone, weight_min, weight_max, rate, free_over_subtotal, priority)
		 VALUES
			('ffffffff-0000-0000-0000-000000000001', '*', 0, 50, 15.00, 300.00, 100),
			('ffffffff-0000-0000-0000-000000000002', '*', 50.001, 200, 45.00, NULL, 100),
			('ffffffff-0000-0000-0000-000000000003', 'AK', 0, 200, 95.00, NULL, 10),
			('ffffffff-0000-0000-0000-000000000004', 'HI', 0, 200, 95.00, NULL, 10)
		 ON CONFLICT (id) DO NOTHING`,

		`INSERT INTO coupons (id, code, label, scope, kind, value, min_purchase,
			stackable_with_discounts, usage_limit_total, usage_limit_per_customer, active)
		 VALUES
			('99999999-0000-0000-0000-000000000001', 'SPRING10', '10 dollars off', 'all', 'fixed', 10, 50, true, NULL, 1, true),
			('99999999-0000-0000-0000-000000000002', 'VIP25', '25 percent off', 'all', 'percentage', 25, 200, false, 100, 1, true)
		 ON CONFLICT (id) DO NOTHING`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Seed statement failed: %v\n%s", err, stmt)
		}
	}

	log.Println("Seed data applied")
}
