package memstore

import (
	"context"
	"sort"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain/sales"
)

// SalesRepo implements sales.Repository.
type SalesRepo struct {
	s *Store
}

var _ sales.Repository = (*SalesRepo)(nil)

// Sales returns the invoice repository.
func (s *Store) Sales() *SalesRepo {
	return &SalesRepo{s: s}
}

func headerCopy(inv *sales.Invoice) *sales.Invoice {
	c := *inv
	c.Lines = nil
	c.Payments = nil
	return &c
}

func (r *SalesRepo) Create(ctx context.Context, inv *sales.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.invoices[inv.ID]; exists {
		return apperror.NewDuplicate("invoice", "id", inv.ID.String())
	}
	for _, other := range r.s.invoices {
		if other.InvoiceNo == inv.InvoiceNo {
			return apperror.NewDuplicate("invoice", "invoice_no", inv.InvoiceNo)
		}
	}

	r.s.invoices[inv.ID] = headerCopy(inv)
	r.s.lines[inv.ID] = append([]sales.Line(nil), inv.Lines...)
	r.s.onRollback(ctx, func() {
		delete(r.s.invoices, inv.ID)
		delete(r.s.lines, inv.ID)
	})
	return nil
}

func (r *SalesRepo) GetByID(_ context.Context, invoiceID id.ID) (*sales.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	return headerCopy(inv), nil
}

func (r *SalesRepo) GetForUpdateNoWait(ctx context.Context, invoiceID id.ID) (*sales.Invoice, error) {
	st := txFrom(ctx)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv, ok := r.s.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	if holder := r.s.invoiceTxn[invoiceID]; holder != nil && holder != st {
		return nil, apperror.NewConcurrentModification("invoice", invoiceID.String())
	}
	if st != nil {
		r.s.invoiceTxn[invoiceID] = st
	}
	return headerCopy(inv), nil
}

// LockInvoice holds the invoice row lock for the transaction in ctx,
// so tests can simulate a concurrent poster.
func (r *SalesRepo) LockInvoice(ctx context.Context, invoiceID id.ID) error {
	_, err := r.GetForUpdateNoWait(ctx, invoiceID)
	return err
}

func (r *SalesRepo) Update(ctx context.Context, inv *sales.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(FaultInvoiceUpdate); err != nil {
		return err
	}
	prev, ok := r.s.invoices[inv.ID]
	if !ok {
		return apperror.NewNotFound("invoice", inv.ID.String())
	}
	r.s.invoices[inv.ID] = headerCopy(inv)
	r.s.onRollback(ctx, func() { r.s.invoices[inv.ID] = prev })
	return nil
}

func (r *SalesRepo) Delete(ctx context.Context, invoiceID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[invoiceID]
	if !ok {
		return apperror.NewNotFound("invoice", invoiceID.String())
	}
	lines, payments := r.s.lines[invoiceID], r.s.payments[invoiceID]

	delete(r.s.invoices, invoiceID)
	delete(r.s.lines, invoiceID)
	delete(r.s.payments, invoiceID)
	r.s.onRollback(ctx, func() {
		r.s.invoices[invoiceID] = inv
		r.s.lines[invoiceID] = lines
		if payments != nil {
			r.s.payments[invoiceID] = payments
		}
	})
	return nil
}

func (r *SalesRepo) GetLines(_ context.Context, invoiceID id.ID) ([]sales.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := append([]sales.Line(nil), r.s.lines[invoiceID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNo < lines[j].LineNo })
	return lines, nil
}

func (r *SalesRepo) UpdateLineAmounts(ctx context.Context, lines []sales.Line) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range lines {
		stored := r.s.lines[l.InvoiceID]
		for i := range stored {
			if stored[i].ID != l.ID {
				continue
			}
			prev := stored[i]
			stored[i].TaxAmount = l.TaxAmount
			stored[i].LineTotal = l.LineTotal
			idx := i
			r.s.onRollback(ctx, func() { stored[idx] = prev })
		}
	}
	return nil
}

func (r *SalesRepo) GetPayments(_ context.Context, invoiceID id.ID) ([]sales.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]sales.Payment(nil), r.s.payments[invoiceID]...), nil
}

func (r *SalesRepo) AddPayment(ctx context.Context, p sales.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invoices[p.InvoiceID]; !ok {
		return apperror.NewNotFound("invoice", p.InvoiceID.String())
	}
	r.s.payments[p.InvoiceID] = append(r.s.payments[p.InvoiceID], p)
	r.s.onRollback(ctx, func() {
		kept := r.s.payments[p.InvoiceID][:0]
		for _, other := range r.s.payments[p.InvoiceID] {
			if other.ID != p.ID {
				kept = append(kept, other)
			}
		}
		r.s.payments[p.InvoiceID] = kept
	})
	return nil
}

func (r *SalesRepo) SumPayments(_ context.Context, invoiceID id.ID) (types.Money, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := types.Zero()
	for _, p := range r.s.payments[invoiceID] {
		total = total.Add(p.Amount)
	}
	return total, nil
}
