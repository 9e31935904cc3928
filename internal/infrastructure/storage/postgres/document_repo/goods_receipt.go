package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/infrastructure/storage/postgres"
)

const (
	receiptsTable     = "goods_receipts"
	receiptLinesTable = "goods_receipt_lines"
)

var receiptLineColumns = postgres.ExtractDBColumns[receipt.ReceiptLine]()

// GoodsReceiptRepo implements receipt.Repository.
type GoodsReceiptRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ receipt.Repository = (*GoodsReceiptRepo)(nil)

// NewGoodsReceiptRepo creates a new goods receipt repository.
func NewGoodsReceiptRepo(txManager *postgres.TxManager) *GoodsReceiptRepo {
	return &GoodsReceiptRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the receipt header and its lines.
func (r *GoodsReceiptRepo) Create(ctx context.Context, grn *receipt.GoodsReceipt) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder.Insert(receiptsTable).SetMap(postgres.StructToMap(grn)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return postgres.MapError(fmt.Errorf("insert goods receipt: %w", err), "goods receipt", grn.ReceiptNo)
		}

		rows := make([][]any, 0, len(grn.Lines))
		for _, l := range grn.Lines {
			rows = append(rows, []any{l.ID, l.ReceiptID, l.LineNo, l.ProductID, l.BatchID, l.QtyBase})
		}
		if _, err := postgres.NewBatchInserter(r.txManager).CopyFromSlice(ctx, receiptLinesTable, receiptLineColumns, rows); err != nil {
			return fmt.Errorf("copy receipt lines: %w", err)
		}
		return nil
	})
}
