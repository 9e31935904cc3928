// Package memstore is an in-memory implementation of every repository,
// used to test domain services without PostgreSQL.
//
// Writes made inside RunInTransaction are undone on rollback, invoice rows
// honor NOWAIT locking and batch rows block like FOR UPDATE until the holding
// transaction ends. Uncommitted writes are visible to other transactions.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/compliance"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/domain/sales"
	"pharmaerp/internal/domain/transfer"
)

// Fault points that can be made to fail with InjectFault.
const (
	FaultLedgerInsert     = "ledger.insert"
	FaultComplianceCreate = "compliance.create"
	FaultAuditInsert      = "audit.insert"
	FaultInvoiceUpdate    = "invoice.update"
	FaultOutboxInsert     = "outbox.insert"
)

// Store holds all in-memory tables.
type Store struct {
	mu   sync.Mutex
	cond *sync.Cond
	seq  atomic.Uint64

	products   map[id.ID]*catalog.Product
	batches    map[id.ID]*catalog.BatchLot
	movements  []inventory.Movement
	invoices   map[id.ID]*sales.Invoice
	lines      map[id.ID][]sales.Line
	payments   map[id.ID][]sales.Payment
	entries    []compliance.Entry
	receipts   map[id.ID]*receipt.GoodsReceipt
	transfers  map[id.ID]*transfer.StockTransfer
	audits     []audit.Log
	users      map[id.ID]string
	outbox     []OutboxRow
	faults     map[string]error
	invoiceTxn map[id.ID]*txState
	batchTxn   map[id.ID]*txState
	lockOrder  []id.ID
}

// New creates an empty store.
func New() *Store {
	s := &Store{
		products:   make(map[id.ID]*catalog.Product),
		batches:    make(map[id.ID]*catalog.BatchLot),
		invoices:   make(map[id.ID]*sales.Invoice),
		lines:      make(map[id.ID][]sales.Line),
		payments:   make(map[id.ID][]sales.Payment),
		receipts:   make(map[id.ID]*receipt.GoodsReceipt),
		transfers:  make(map[id.ID]*transfer.StockTransfer),
		users:      make(map[id.ID]string),
		faults:     make(map[string]error),
		invoiceTxn: make(map[id.ID]*txState),
		batchTxn:   make(map[id.ID]*txState),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// InjectFault makes the named operation fail with err until cleared with a nil err.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// fault must be called with mu held.
func (s *Store) fault(op string) error {
	return s.faults[op]
}

// txState is an open transaction: its undo log and held locks.
type txState struct {
	id   uint64
	undo []func()
}

type txKey struct{}

func txFrom(ctx context.Context) *txState {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st
	}
	return nil
}

// onRollback registers an undo step for the transaction in ctx.
// Must be called with mu held. Outside a transaction writes are final.
func (s *Store) onRollback(ctx context.Context, fn func()) {
	if st := txFrom(ctx); st != nil {
		st.undo = append(st.undo, fn)
	}
}

// release drops every lock held by st. Must be called with mu held.
func (s *Store) release(st *txState) {
	for k, holder := range s.invoiceTxn {
		if holder == st {
			delete(s.invoiceTxn, k)
		}
	}
	for k, holder := range s.batchTxn {
		if holder == st {
			delete(s.batchTxn, k)
		}
	}
	s.cond.Broadcast()
}
