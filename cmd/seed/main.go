package main

import (
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"kart-commerce/internal/config"
	"kart-commerce/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type seedVariant struct {
	id    string
	name  string
	price *decimal.Decimal
	stock int
}

type seedProduct struct {
	id       string
	name     string
	price    decimal.Decimal
	category string
	stock    int
	variants []seedVariant
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

var catalogue = []seedProduct{
	{id: "P001", name: "Waffle with Berries", price: price("6.50"), category: "Waffle", stock: 100},
	{id: "P002", name: "Vanilla Bean Creme Brulee", price: price("7.00"), category: "Creme Brulee", stock: 80},
	{id: "P003", name: "Macaron Mix of Five", price: price("8.00"), category: "Macaron", stock: 60},
	{id: "P004", name: "Classic Tiramisu", price: price("5.50"), category: "Tiramisu", stock: 40},
	{id: "P005", name: "Pistachio Baklava", price: price("4.00"), category: "Baklava", stock: 120},
	{
		id: "P006", name: "Lemon Meringue Pie", price: price("5.00"), category: "Pie",
		variants: []seedVariant{
			{id: "P006-SLICE", name: "Slice", stock: 50},
			{id: "P006-WHOLE", name: "Whole pie", price: pricePtr("32.00"), stock: 5},
		},
	},
	{
		id: "P007", name: "Red Velvet Cake", price: price("4.50"), category: "Cake",
		variants: []seedVariant{
			{id: "P007-SLICE", name: "Slice", stock: 30},
			{id: "P007-WHOLE", name: "Whole cake", price: pricePtr("38.00"), stock: 3},
		},
	},
	{id: "P008", name: "Salted Caramel Brownie", price: price("5.50"), category: "Brownie", stock: 0},
}

// couponBases places each code in a chosen subset of files. Codes present in
// two or more files are accepted at checkout.
var couponBases = map[string][]string{
	"couponbase1.gz": {"HAPPYHRS", "FIFTYOFF1", "ALLTHREE1", "ONLYONE111", "SUMMER2024"},
	"couponbase2.gz": {"HAPPYHRS", "FIFTYOFF1", "ALLTHREE1", "ONLYTWO222", "WINTER2024"},
	"couponbase3.gz": {"WINTER2024", "SUMMER2024", "ALLTHREE1", "ONLYTHREE3", "SPRING2024"},
}

func main() {
	couponDir := flag.String("coupons", "data/coupons", "directory the coupon bases are written to")
	skipDB := flag.Bool("skip-db", false, "only write coupon bases")
	flag.Parse()

	if err := run(*couponDir, *skipDB); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(couponDir string, skipDB bool) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := writeCouponBases(couponDir, logger); err != nil {
		return err
	}
	if skipDB {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger = config.NewLogger(cfg.Logger)

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	return seedCatalogue(ctx, pool, logger)
}

// seedCatalogue upserts every product and variant in one batch. Stock is
// reset to the seeded level.
func seedCatalogue(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	batch := &pgx.Batch{}
	for _, p := range catalogue {
		batch.Queue(`
			INSERT INTO products (id, name, price, category, stock)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category,
				stock = EXCLUDED.stock, updated_at = NOW()`,
			p.id, p.name, p.price, p.category, p.stock)

		for _, v := range p.variants {
			batch.Queue(`
				INSERT INTO product_variants (id, product_id, name, price, stock)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name, price = EXCLUDED.price, stock = EXCLUDED.stock, updated_at = NOW()`,
				v.id, p.id, v.name, v.price, v.stock)
		}
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed catalogue: %w", err)
	}

	logger.Info().Int("products", len(catalogue)).Msg("catalogue seeded")
	return nil
}

func writeCouponBases(dir string, logger zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	for name, codes := range couponBases {
		path := filepath.Join(dir, name)
		if err := writeCouponFile(path, codes); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.Info().Str("file", path).Int("codes", len(codes)).Msg("coupon base written")
	}
	return nil
}

func writeCouponFile(path string, codes []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	for _, code := range codes {
		if _, err := fmt.Fprintln(gz, code); err != nil {
			return err
		}
	}
	return gz.Close()
}
