package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaerp/internal/domain/transfer"
	"pharmaerp/internal/infrastructure/storage/postgres"
)

const (
	transfersTable     = "stock_transfers"
	transferLinesTable = "stock_transfer_lines"
)

var transferLineColumns = postgres.ExtractDBColumns[transfer.TransferLine]()

// StockTransferRepo implements transfer.Repository.
type StockTransferRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ transfer.Repository = (*StockTransferRepo)(nil)

// NewStockTransferRepo creates a new stock transfer repository.
func NewStockTransferRepo(txManager *postgres.TxManager) *StockTransferRepo {
	return &StockTransferRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the transfer header and its lines.
func (r *StockTransferRepo) Create(ctx context.Context, t *transfer.StockTransfer) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder.Insert(transfersTable).SetMap(postgres.StructToMap(t)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return postgres.MapError(fmt.Errorf("insert stock transfer: %w", err), "stock transfer", t.TransferNo)
		}

		rows := make([][]any, 0, len(t.Lines))
		for _, l := range t.Lines {
			rows = append(rows, []any{l.ID, l.TransferID, l.LineNo, l.BatchID, l.QtyBase})
		}
		if _, err := postgres.NewBatchInserter(r.txManager).CopyFromSlice(ctx, transferLinesTable, transferLineColumns, rows); err != nil {
			return fmt.Errorf("copy transfer lines: %w", err)
		}
		return nil
	})
}
