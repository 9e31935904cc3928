//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/identity"
	"pharmaerp/internal/domain/alerts"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/compliance"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/domain/sales"
	"pharmaerp/internal/infrastructure/migration"
	"pharmaerp/internal/infrastructure/notify"
	"pharmaerp/internal/infrastructure/numerator"
	"pharmaerp/internal/infrastructure/storage/postgres"
	"pharmaerp/internal/infrastructure/storage/postgres/catalog_repo"
	"pharmaerp/internal/infrastructure/storage/postgres/document_repo"
	"pharmaerp/internal/infrastructure/storage/postgres/register_repo"
	"pharmaerp/pkg/logger"
)

// stack is a migrated database with the services wired as in cmd/server.
type stack struct {
	pool    *postgres.Pool
	txm     *postgres.TxManager
	ledger  *inventory.Ledger
	sales   *sales.Service
	receipt *receipt.Service
	actor   *identity.Actor
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pharmaerp_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	dsn := startPostgres(t)

	m, err := migration.New(dsn, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	txm := postgres.NewTxManager(pool, 10*time.Second)
	auditStore, err := postgres.NewAuditStore(txm)
	require.NoError(t, err)

	cat := catalog.NewService(catalog_repo.NewRepo(txm))
	ledger := inventory.NewLedger(register_repo.NewLedgerRepo(txm))
	gen := numerator.New(pool)
	recorder := audit.NewRecorder(auditStore)
	queue := notify.NewQueue(nil, postgres.NewOutboxPublisher(txm), time.Hour)

	userID := id.New()
	_, err = pool.Exec(ctx, `INSERT INTO users (id, username) VALUES ($1, 'pharmacist')`, userID)
	require.NoError(t, err)

	return &stack{
		pool:   pool,
		txm:    txm,
		ledger: ledger,
		sales: sales.NewService(sales.ServiceConfig{
			Repo:       document_repo.NewSalesInvoiceRepo(txm),
			TxManager:  txm,
			Catalog:    cat,
			Inventory:  ledger,
			Allocator:  inventory.NewAllocator(ledger),
			Numerator:  gen,
			Compliance: compliance.NewService(register_repo.NewComplianceRepo(txm)),
			Observer: alerts.NewEvaluator(ledger, queue, alerts.Config{
				LowStockThreshold: decimal.NewFromInt(500),
				NearExpiryDays:    90,
				Recipient:         "store-manager",
				Channel:           "log",
			}),
			Audit: recorder,
		}),
		receipt: receipt.NewService(document_repo.NewGoodsReceiptRepo(txm), txm, cat, ledger, gen, recorder),
		actor:   identity.Verified(userID, "pharmacist"),
	}
}

func (s *stack) seedLocationAndProduct(t *testing.T) (locationID, productID id.ID) {
	t.Helper()
	ctx := context.Background()
	locationID, productID = id.New(), id.New()

	_, err := s.pool.Exec(ctx, `INSERT INTO locations (id, code, name) VALUES ($1, 'MAIN', 'Main Store')`, locationID)
	require.NoError(t, err)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO products (id, code, name, schedule, units_per_pack, base_unit_step, tax_rate, reorder_level)
		VALUES ($1, 'PCM500', 'Paracetamol 500mg', $2, 10, 1, 12, 0)`,
		productID, string(catalog.ScheduleOTC))
	require.NoError(t, err)
	return locationID, productID
}

type recordingHandler struct {
	mu   sync.Mutex
	msgs []*postgres.OutboxMessage
}

func (h *recordingHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return nil
}

func TestIntegration_ReceiveSellCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()
	s := newStack(t)
	locationID, productID := s.seedLocationAndProduct(t)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	grn, err := s.receipt.ReceiveStock(ctx, s.actor, receipt.Receipt{
		LocationID:   locationID,
		SupplierName: "Acme Pharma",
		Lines: []receipt.Line{
			{ProductID: productID, BatchNo: "A", ExpiryDate: today.AddDate(0, 1, 0), Unit: receipt.UnitPack, Qty: decimal.NewFromInt(5)},
			{ProductID: productID, BatchNo: "B", ExpiryDate: today.AddDate(1, 0, 0), Unit: receipt.UnitPack, Qty: decimal.NewFromInt(20)},
		},
	})
	require.NoError(t, err)
	require.Len(t, grn.Lines, 2)
	early, late := grn.Lines[0].BatchID, grn.Lines[1].BatchID

	res, err := s.sales.CreateAndPost(ctx, s.actor, sales.Draft{
		LocationID:   locationID,
		CustomerName: "Walk-in",
		Lines: []sales.DraftLine{{
			ProductID:   productID,
			UOM:         sales.UOMBase,
			Qty:         decimal.NewFromInt(60),
			RatePerBase: decimal.RequireFromString("2.50"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, sales.StatusPosted, res.Status)

	inv, err := s.sales.GetInvoice(ctx, res.InvoiceID)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 2, "first-expired batch is drained before the next")
	assert.Equal(t, early, inv.Lines[0].BatchID)
	assert.True(t, inv.Lines[0].QtyBase.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, late, inv.Lines[1].BatchID)
	assert.True(t, inv.Lines[1].QtyBase.Equal(decimal.NewFromInt(10)))

	onHand, err := s.ledger.StockOnHand(ctx, locationID, late)
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.NewFromInt(190)), "got %s", onHand)

	// low stock and near expiry alerts reach the outbox and are relayed once
	handler := &recordingHandler{}
	relay := postgres.NewOutboxRelay(s.txm, 10, handler)
	delivered, err := relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	delivered, err = relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)

	_, err = s.sales.CancelInvoice(ctx, s.actor, res.InvoiceID)
	require.NoError(t, err)

	total, err := s.ledger.OnHandByProduct(ctx, productID, locationID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(250)), "got %s", total)
}

func TestIntegration_InsufficientStockRollsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()
	s := newStack(t)
	locationID, productID := s.seedLocationAndProduct(t)

	_, err := s.receipt.ReceiveStock(ctx, s.actor, receipt.Receipt{
		LocationID: locationID,
		Lines: []receipt.Line{
			{ProductID: productID, BatchNo: "A", ExpiryDate: time.Now().AddDate(1, 0, 0), Unit: receipt.UnitBase, Qty: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	inv, err := s.sales.CreateInvoice(ctx, s.actor, sales.Draft{
		LocationID: locationID,
		Lines: []sales.DraftLine{{
			ProductID:   productID,
			UOM:         sales.UOMBase,
			Qty:         decimal.NewFromInt(6),
			RatePerBase: decimal.NewFromInt(1),
		}},
	})
	require.NoError(t, err)

	_, err = s.sales.PostInvoice(ctx, s.actor, inv.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock), "got %v", err)

	stored, err := s.sales.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusDraft, stored.Status)

	total, err := s.ledger.OnHandByProduct(ctx, productID, locationID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(5)))
}

func TestIntegration_ConcurrentPostsNeverOversell(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()
	s := newStack(t)
	locationID, productID := s.seedLocationAndProduct(t)

	_, err := s.receipt.ReceiveStock(ctx, s.actor, receipt.Receipt{
		LocationID: locationID,
		Lines: []receipt.Line{
			{ProductID: productID, BatchNo: "A", ExpiryDate: time.Now().AddDate(1, 0, 0), Unit: receipt.UnitBase, Qty: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)

	const buyers = 5
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		posted int
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.sales.CreateAndPost(ctx, s.actor, sales.Draft{
				LocationID: locationID,
				Lines: []sales.DraftLine{{
					ProductID:   productID,
					UOM:         sales.UOMBase,
					Qty:         decimal.NewFromInt(3),
					RatePerBase: decimal.NewFromInt(1),
				}},
			})
			if err == nil {
				mu.Lock()
				posted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, posted)
	total, err := s.ledger.OnHandByProduct(ctx, productID, locationID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(1)), "got %s", total)
}
