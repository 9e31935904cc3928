package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/compliance"
	"pharmaerp/internal/infrastructure/storage/postgres"
)

const complianceTable = "compliance_register"

var complianceColumns = postgres.ExtractDBColumns[compliance.Entry]()

// ComplianceRepo implements compliance.Repository.
type ComplianceRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ compliance.Repository = (*ComplianceRepo)(nil)

// NewComplianceRepo creates a new register repository.
func NewComplianceRepo(txManager *postgres.TxManager) *ComplianceRepo {
	return &ComplianceRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ComplianceRepo) insertQuery(entries []compliance.Entry) squirrel.InsertBuilder {
	q := r.builder.Insert(complianceTable).Columns(complianceColumns...)
	for _, e := range entries {
		q = q.Values(e.ID, e.InvoiceID, e.LineID, e.ProductID, e.BatchID,
			e.Schedule, e.Register, e.QtyBase, e.PrescriptionID, e.CreatedAt)
	}
	return q
}

// CreateEntries writes register rows.
func (r *ComplianceRepo) CreateEntries(ctx context.Context, entries []compliance.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	sql, args, err := r.insertQuery(entries).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert register entries: %w", err)
	}
	return nil
}

// ListByInvoice returns the register rows of an invoice.
func (r *ComplianceRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]compliance.Entry, error) {
	sql, args, err := r.builder.
		Select(complianceColumns...).
		From(complianceTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []compliance.Entry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list register entries: %w", err)
	}
	return out, nil
}
