// Package register_repo provides PostgreSQL implementations for the stock ledger and the compliance registers.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/internal/infrastructure/storage/postgres"
)

const (
	movementsTable = "inventory_movements"
	batchesTable   = "batch_lots"
)

var movementColumns = postgres.ExtractDBColumns[inventory.Movement]()

// LedgerRepo implements inventory.Repository.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ inventory.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new stock ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func movementValues(m inventory.Movement) []any {
	return []any{
		m.ID, m.LocationID, m.BatchID, m.QtyChangeBase, m.Reason,
		m.RefDocType, m.RefDocID, m.CreatedAt,
	}
}

// InsertMovements appends movements.
func (r *LedgerRepo) InsertMovements(ctx context.Context, movements []inventory.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementValues(m))
		}
		inserter := postgres.NewBatchInserter(r.txManager)
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementValues(m)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

func (r *LedgerRepo) sumQuery(where squirrel.Sqlizer) squirrel.SelectBuilder {
	return r.builder.
		Select("COALESCE(SUM(m.qty_change_base), 0)").
		From(movementsTable + " m").
		Where(where)
}

func (r *LedgerRepo) scanSum(ctx context.Context, q squirrel.SelectBuilder) (types.Quantity, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build select: %w", err)
	}

	var total types.Quantity
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("sum movements: %w", err)
	}
	return total, nil
}

// SumQuantity returns on-hand for a batch at a location.
func (r *LedgerRepo) SumQuantity(ctx context.Context, locationID, batchID id.ID) (types.Quantity, error) {
	return r.scanSum(ctx, r.sumQuery(squirrel.Eq{"m.location_id": locationID, "m.batch_id": batchID}))
}

// SumByProduct returns on-hand across all batches of a product at a location.
func (r *LedgerRepo) SumByProduct(ctx context.Context, productID, locationID id.ID) (types.Quantity, error) {
	q := r.sumQuery(squirrel.Eq{"m.location_id": locationID, "b.product_id": productID}).
		Join(batchesTable + " b ON b.id = m.batch_id")
	return r.scanSum(ctx, q)
}

// LockBatches takes row locks on batches in ascending id order.
// Must be called inside a transaction; locks are held until it ends.
func (r *LedgerRepo) LockBatches(ctx context.Context, batchIDs []id.ID) error {
	ids := id.SortedUnique(batchIDs)
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.builder.
		Select("id").
		From(batchesTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock: %w", err)
	}

	var locked []id.ID
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &locked, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("lock batches: %w", err), "batch", ids[0].String())
	}
	return nil
}

// batchStockRow is a batch lot joined with its on-hand quantity.
type batchStockRow struct {
	catalog.BatchLot
	Available types.Quantity `db:"available"`
}

// ListBatchStock returns ACTIVE batches of a product with positive on-hand at a location.
func (r *LedgerRepo) ListBatchStock(ctx context.Context, productID, locationID id.ID) ([]inventory.BatchStock, error) {
	sql, args, err := r.builder.
		Select("b.id", "b.product_id", "b.batch_no", "b.mfg_date", "b.expiry_date", "b.status", "b.created_at",
			"SUM(m.qty_change_base) AS available").
		From(batchesTable + " b").
		Join(movementsTable + " m ON m.batch_id = b.id").
		Where(squirrel.Eq{"b.product_id": productID, "m.location_id": locationID, "b.status": catalog.BatchActive}).
		GroupBy("b.id").
		Having("SUM(m.qty_change_base) > 0").
		OrderBy("b.expiry_date", "b.batch_no", "b.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []batchStockRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list batch stock: %w", err)
	}

	out := make([]inventory.BatchStock, 0, len(rows))
	for _, row := range rows {
		out = append(out, inventory.BatchStock{Batch: row.BatchLot, Available: row.Available})
	}
	return out, nil
}

// ListMovementsByRef returns movements written for a document, oldest first.
func (r *LedgerRepo) ListMovementsByRef(ctx context.Context, refDocType string, refDocID id.ID) ([]inventory.Movement, error) {
	sql, args, err := r.builder.
		Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"ref_doc_type": refDocType, "ref_doc_id": refDocID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []inventory.Movement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}
