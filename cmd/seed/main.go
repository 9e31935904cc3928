// Package main seeds a development database with a user, locations,
// products and opening stock.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/identity"
	corenumerator "pharmaerp/internal/core/numerator"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/infrastructure/config"
	"pharmaerp/internal/infrastructure/numerator"
	"pharmaerp/internal/infrastructure/storage/postgres"
	"pharmaerp/internal/infrastructure/storage/postgres/catalog_repo"
	"pharmaerp/internal/infrastructure/storage/postgres/document_repo"
	"pharmaerp/internal/infrastructure/storage/postgres/register_repo"
	"pharmaerp/pkg/logger"
)

type seedProduct struct {
	code         string
	name         string
	schedule     catalog.Schedule
	unitsPerPack int64
	taxRate      string
	reorderLevel int64
}

var demoProducts = []seedProduct{
	{"PCM500", "Paracetamol 500mg", catalog.ScheduleOTC, 10, "12", 50},
	{"AMX250", "Amoxicillin 250mg", catalog.ScheduleH, 10, "12", 30},
	{"ALP025", "Alprazolam 0.25mg", catalog.ScheduleH1, 15, "12", 10},
	{"ORS", "Oral Rehydration Salts", catalog.ScheduleOTC, 1, "5", 20},
}

func main() {
	var (
		configPath   string
		invoiceStart int64
	)
	flag.StringVar(&configPath, "config", "", "Path to config.toml")
	flag.Int64Var(&invoiceStart, "invoice-start", 0, "Continue invoice numbering from this value (0 keeps the current counter)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, cfg.PoolConfig())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	userID, err := seedUser(ctx, pool, "admin")
	if err != nil {
		log.Fatalw("failed to seed user", "error", err)
	}

	locationID, err := seedLocation(ctx, pool, "MAIN", "Main Store")
	if err != nil {
		log.Fatalw("failed to seed location", "error", err)
	}
	if _, err := seedLocation(ctx, pool, "BR1", "Branch 1"); err != nil {
		log.Fatalw("failed to seed location", "error", err)
	}

	productIDs := make([]id.ID, 0, len(demoProducts))
	for _, p := range demoProducts {
		pid, err := seedProductRow(ctx, pool, p)
		if err != nil {
			log.Fatalw("failed to seed product", "code", p.code, "error", err)
		}
		productIDs = append(productIDs, pid)
	}
	log.Infow("catalog seeded", "products", len(productIDs))

	if invoiceStart > 0 {
		next, err := numerator.New(pool).AdvanceNextNumber(ctx, corenumerator.DocInvoice, invoiceStart)
		if err != nil {
			log.Fatalw("failed to advance invoice counter", "error", err)
		}
		log.Infow("invoice counter advanced", "requested", invoiceStart, "next_number", next)
	}

	var stocked bool
	if err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inventory_movements WHERE location_id = $1)`, locationID,
	).Scan(&stocked); err != nil {
		log.Fatalw("failed to check stock", "error", err)
	}
	if stocked {
		log.Info("opening stock already present, skipping receipt")
		return
	}

	grn, err := bookOpeningStock(ctx, cfg, pool, identity.Verified(userID, "admin"), locationID, productIDs)
	if err != nil {
		log.Fatalw("failed to book opening stock", "error", err)
	}
	log.Infow("opening stock booked", "receipt_no", grn.ReceiptNo, "lines", len(grn.Lines))
}

func seedUser(ctx context.Context, pool *postgres.Pool, username string) (id.ID, error) {
	var userID id.ID
	err := pool.QueryRow(ctx, `
		INSERT INTO users (id, username) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET is_active = TRUE
		RETURNING id`, id.New(), username,
	).Scan(&userID)
	return userID, err
}

func seedLocation(ctx context.Context, pool *postgres.Pool, code, name string) (id.ID, error) {
	var locationID id.ID
	err := pool.QueryRow(ctx, `
		INSERT INTO locations (id, code, name) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, id.New(), code, name,
	).Scan(&locationID)
	return locationID, err
}

func seedProductRow(ctx context.Context, pool *postgres.Pool, p seedProduct) (id.ID, error) {
	var productID id.ID
	err := pool.QueryRow(ctx, `
		INSERT INTO products (id, code, name, schedule, units_per_pack, base_unit_step, tax_rate, reorder_level)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING id`,
		id.New(), p.code, p.name, string(p.schedule),
		decimal.NewFromInt(p.unitsPerPack), decimal.RequireFromString(p.taxRate), decimal.NewFromInt(p.reorderLevel),
	).Scan(&productID)
	return productID, err
}

// bookOpeningStock receives two batches per product through the receipt service,
// so the seed exercises the same ledger path as a real goods receipt.
func bookOpeningStock(
	ctx context.Context,
	cfg *config.Config,
	pool *postgres.Pool,
	actor *identity.Actor,
	locationID id.ID,
	productIDs []id.ID,
) (*receipt.GoodsReceipt, error) {
	txManager := postgres.NewTxManager(pool, cfg.Database.StatementTimeout)
	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		return nil, err
	}
	svc := receipt.NewService(
		document_repo.NewGoodsReceiptRepo(txManager),
		txManager,
		catalog.NewService(catalog_repo.NewRepo(txManager)),
		inventory.NewLedger(register_repo.NewLedgerRepo(txManager)),
		numerator.New(pool),
		audit.NewRecorder(auditStore),
	)

	now := time.Now().UTC().Truncate(24 * time.Hour)
	in := receipt.Receipt{LocationID: locationID, SupplierName: "Opening balance"}
	for i, pid := range productIDs {
		in.Lines = append(in.Lines,
			receipt.Line{
				ProductID:  pid,
				BatchNo:    fmt.Sprintf("OB-%02d-A", i+1),
				ExpiryDate: now.AddDate(0, 2, 0),
				Unit:       receipt.UnitPack,
				Qty:        decimal.NewFromInt(5),
			},
			receipt.Line{
				ProductID:  pid,
				BatchNo:    fmt.Sprintf("OB-%02d-B", i+1),
				ExpiryDate: now.AddDate(1, 0, 0),
				Unit:       receipt.UnitPack,
				Qty:        decimal.NewFromInt(20),
			},
		)
	}
	return svc.ReceiveStock(ctx, actor, in)
}
