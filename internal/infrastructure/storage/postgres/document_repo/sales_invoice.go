// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/sales"
	"pharmaerp/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable = "sales_invoices"
	linesTable    = "sales_invoice_lines"
	paymentsTable = "sales_payments"
)

var (
	invoiceColumns = postgres.ExtractDBColumns[sales.Invoice]()
	lineColumns    = postgres.ExtractDBColumns[sales.Line]()
	paymentColumns = postgres.ExtractDBColumns[sales.Payment]()
)

// invoiceImmutable are the columns Update never writes.
var invoiceImmutable = map[string]struct{}{
	"id":         {},
	"invoice_no": {},
	"created_at": {},
	"created_by": {},
	"version":    {},
}

// SalesInvoiceRepo implements sales.Repository.
type SalesInvoiceRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ sales.Repository = (*SalesInvoiceRepo)(nil)

// NewSalesInvoiceRepo creates a new sales invoice repository.
func NewSalesInvoiceRepo(txManager *postgres.TxManager) *SalesInvoiceRepo {
	return &SalesInvoiceRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func lineValues(l sales.Line) []any {
	return []any{
		l.ID, l.InvoiceID, l.LineNo, l.ProductID, l.BatchID, l.SoldUOM,
		l.QtyBase, l.RatePerBase, l.DiscountAmount, l.TaxPercent, l.TaxAmount, l.LineTotal,
	}
}

// Create inserts the header and its lines.
func (r *SalesInvoiceRepo) Create(ctx context.Context, inv *sales.Invoice) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		data := postgres.StructToMap(inv)
		sql, args, err := r.builder.Insert(invoicesTable).SetMap(data).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return postgres.MapError(fmt.Errorf("insert invoice: %w", err), "invoice", inv.InvoiceNo)
		}

		if len(inv.Lines) == 0 {
			return nil
		}
		rows := make([][]any, 0, len(inv.Lines))
		for _, l := range inv.Lines {
			rows = append(rows, lineValues(l))
		}
		inserter := postgres.NewBatchInserter(r.txManager)
		if _, err := inserter.CopyFromSlice(ctx, linesTable, lineColumns, rows); err != nil {
			return fmt.Errorf("copy invoice lines: %w", err)
		}
		return nil
	})
}

func (r *SalesInvoiceRepo) headerQuery(invoiceID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(invoiceColumns...).
		From(invoicesTable).
		Where(squirrel.Eq{"id": invoiceID})
}

func (r *SalesInvoiceRepo) getHeader(ctx context.Context, q squirrel.SelectBuilder, invoiceID id.ID) (*sales.Invoice, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var inv sales.Invoice
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &inv, sql, args...); err != nil {
		return nil, postgres.MapError(err, "invoice", invoiceID.String())
	}
	return &inv, nil
}

// GetByID returns the invoice header.
func (r *SalesInvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*sales.Invoice, error) {
	return r.getHeader(ctx, r.headerQuery(invoiceID), invoiceID)
}

// GetForUpdateNoWait locks the header row without waiting.
// A held lock fails with SQLSTATE 55P03, surfaced as ConcurrentModification.
func (r *SalesInvoiceRepo) GetForUpdateNoWait(ctx context.Context, invoiceID id.ID) (*sales.Invoice, error) {
	return r.getHeader(ctx, r.headerQuery(invoiceID).Suffix("FOR UPDATE NOWAIT"), invoiceID)
}

// updateQuery writes the mutable columns, expecting the previous version.
func (r *SalesInvoiceRepo) updateQuery(inv *sales.Invoice) squirrel.UpdateBuilder {
	data := postgres.StructToMap(inv)
	set := make(map[string]any, len(data))
	for col, val := range data {
		if _, skip := invoiceImmutable[col]; skip {
			continue
		}
		set[col] = val
	}

	return r.builder.Update(invoicesTable).
		SetMap(set).
		Set("version", inv.Version).
		Where(squirrel.Eq{"id": inv.ID}).
		Where(squirrel.Eq{"version": inv.Version - 1})
}

// Update writes the header with optimistic locking.
// The caller bumps Version before calling.
func (r *SalesInvoiceRepo) Update(ctx context.Context, inv *sales.Invoice) error {
	sql, args, err := r.updateQuery(inv).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("invoice", inv.ID.String()).
			WithDetail("expected_version", inv.Version-1)
	}
	return nil
}

// Delete removes the header together with lines and payments.
func (r *SalesInvoiceRepo) Delete(ctx context.Context, invoiceID id.ID) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		queries := make([]postgres.BatchQuery, 0, 3)
		for _, table := range []string{paymentsTable, linesTable} {
			sql, args, err := r.builder.Delete(table).Where(squirrel.Eq{"invoice_id": invoiceID}).ToSql()
			if err != nil {
				return fmt.Errorf("build delete: %w", err)
			}
			queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
		}
		if _, err := postgres.NewBatchExecutor(r.txManager).ExecuteBatch(ctx, queries); err != nil {
			return fmt.Errorf("delete invoice children: %w", err)
		}

		sql, args, err := r.builder.Delete(invoicesTable).Where(squirrel.Eq{"id": invoiceID}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NewNotFound("invoice", invoiceID.String())
		}
		return nil
	})
}

// GetLines returns the lines ordered by line number.
func (r *SalesInvoiceRepo) GetLines(ctx context.Context, invoiceID id.ID) ([]sales.Line, error) {
	sql, args, err := r.builder.Select(lineColumns...).
		From(linesTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var lines []sales.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	return lines, nil
}

// lineAmountQueries builds one UPDATE per line.
func (r *SalesInvoiceRepo) lineAmountQueries(lines []sales.Line) ([]postgres.BatchQuery, error) {
	queries := make([]postgres.BatchQuery, 0, len(lines))
	for _, l := range lines {
		sql, args, err := r.builder.Update(linesTable).
			Set("tax_amount", l.TaxAmount).
			Set("line_total", l.LineTotal).
			Where(squirrel.Eq{"id": l.ID}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	return queries, nil
}

// UpdateLineAmounts writes tax_amount and line_total in one round-trip.
func (r *SalesInvoiceRepo) UpdateLineAmounts(ctx context.Context, lines []sales.Line) error {
	if len(lines) == 0 {
		return nil
	}
	queries, err := r.lineAmountQueries(lines)
	if err != nil {
		return err
	}
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := postgres.NewBatchExecutor(r.txManager).ExecuteBatch(ctx, queries); err != nil {
			return fmt.Errorf("update line amounts: %w", err)
		}
		return nil
	})
}

// GetPayments returns payments in the order received.
func (r *SalesInvoiceRepo) GetPayments(ctx context.Context, invoiceID id.ID) ([]sales.Payment, error) {
	sql, args, err := r.builder.Select(paymentColumns...).
		From(paymentsTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("received_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var payments []sales.Payment
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &payments, sql, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// AddPayment inserts a payment row.
func (r *SalesInvoiceRepo) AddPayment(ctx context.Context, p sales.Payment) error {
	sql, args, err := r.builder.Insert(paymentsTable).
		Columns(paymentColumns...).
		Values(p.ID, p.InvoiceID, p.Amount, p.Mode, p.ReceivedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// SumPayments returns the total received against an invoice.
func (r *SalesInvoiceRepo) SumPayments(ctx context.Context, invoiceID id.ID) (types.Money, error) {
	sql, args, err := r.builder.Select("COALESCE(SUM(amount), 0)").
		From(paymentsTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build select: %w", err)
	}

	var total types.Money
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}
