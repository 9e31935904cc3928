package memstore

import (
	"context"
	"sort"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/compliance"
	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/domain/transfer"
)

// ComplianceRepo implements compliance.Repository.
type ComplianceRepo struct{ s *Store }

var _ compliance.Repository = (*ComplianceRepo)(nil)

// Compliance returns the register repository.
func (s *Store) Compliance() *ComplianceRepo { return &ComplianceRepo{s: s} }

func (r *ComplianceRepo) CreateEntries(ctx context.Context, entries []compliance.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(FaultComplianceCreate); err != nil {
		return err
	}
	before := len(r.s.entries)
	r.s.entries = append(r.s.entries, entries...)
	r.s.onRollback(ctx, func() { r.s.entries = r.s.entries[:before] })
	return nil
}

func (r *ComplianceRepo) ListByInvoice(_ context.Context, invoiceID id.ID) ([]compliance.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []compliance.Entry
	for _, e := range r.s.entries {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

// AuditStore implements audit.Store.
type AuditStore struct{ s *Store }

var _ audit.Store = (*AuditStore)(nil)

// Audit returns the audit store.
func (s *Store) Audit() *AuditStore { return &AuditStore{s: s} }

func (a *AuditStore) Insert(_ context.Context, log audit.Log) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if err := a.s.fault(FaultAuditInsert); err != nil {
		return err
	}
	a.s.audits = append(a.s.audits, log)
	return nil
}

func (a *AuditStore) History(_ context.Context, table string, recordID id.ID, limit int) ([]audit.Log, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	var out []audit.Log
	for i := len(a.s.audits) - 1; i >= 0 && len(out) < limit; i-- {
		if a.s.audits[i].TableName == table && a.s.audits[i].RecordID == recordID {
			out = append(out, a.s.audits[i])
		}
	}
	return out, nil
}

// ReceiptRepo implements receipt.Repository.
type ReceiptRepo struct{ s *Store }

var _ receipt.Repository = (*ReceiptRepo)(nil)

// Receipts returns the goods receipt repository.
func (s *Store) Receipts() *ReceiptRepo { return &ReceiptRepo{s: s} }

func (r *ReceiptRepo) Create(ctx context.Context, grn *receipt.GoodsReceipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *grn
	c.Lines = append([]receipt.ReceiptLine(nil), grn.Lines...)
	r.s.receipts[grn.ID] = &c
	r.s.onRollback(ctx, func() { delete(r.s.receipts, grn.ID) })
	return nil
}

// Get returns a stored receipt.
func (r *ReceiptRepo) Get(receiptID id.ID) (*receipt.GoodsReceipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	grn, ok := r.s.receipts[receiptID]
	if !ok {
		return nil, apperror.NewNotFound("goods receipt", receiptID.String())
	}
	c := *grn
	return &c, nil
}

// TransferRepo implements transfer.Repository.
type TransferRepo struct{ s *Store }

var _ transfer.Repository = (*TransferRepo)(nil)

// Transfers returns the stock transfer repository.
func (s *Store) Transfers() *TransferRepo { return &TransferRepo{s: s} }

func (r *TransferRepo) Create(ctx context.Context, t *transfer.StockTransfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *t
	c.Lines = append([]transfer.TransferLine(nil), t.Lines...)
	r.s.transfers[t.ID] = &c
	r.s.onRollback(ctx, func() { delete(r.s.transfers, t.ID) })
	return nil
}

// Count returns the number of stored transfers.
func (r *TransferRepo) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.transfers)
}

// Users implements identity.Resolver over registered users.
type Users struct{ s *Store }

// Users returns the user resolver.
func (s *Store) Users() *Users { return &Users{s: s} }

// Add registers a user.
func (u *Users) Add(userID id.ID, username string) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.users[userID] = username
}

func (u *Users) Exists(_ context.Context, userID id.ID) (bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	_, ok := u.s.users[userID]
	return ok, nil
}

// AuditLogs returns all audit rows in insertion order.
func (s *Store) AuditLogs() []audit.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Log(nil), s.audits...)
}

// ComplianceEntries returns all register rows.
func (s *Store) ComplianceEntries() []compliance.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]compliance.Entry(nil), s.entries...)
}

// MovementCount returns the number of ledger rows.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

// BatchLockOrder returns batch ids in the order their row locks were first taken.
func (s *Store) BatchLockOrder() []id.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]id.ID(nil), s.lockOrder...)
}

// InvoiceNumbers returns stored invoice numbers in ascending order.
func (s *Store) InvoiceNumbers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, inv.InvoiceNo)
	}
	sort.Strings(out)
	return out
}
