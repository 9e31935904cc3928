package memstore

import (
	"context"

	"pharmaerp/internal/core/tx"
)

// TxManager implements tx.Manager over the store.
type TxManager struct {
	s *Store
}

var _ tx.Manager = (*TxManager)(nil)

// TxManager returns the store's transaction manager.
func (s *Store) TxManager() *TxManager {
	return &TxManager{s: s}
}

// RunInTransaction runs fn in a transaction; nested calls join the outer one.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	st := &txState{id: m.s.seq.Add(1)}
	err := fn(context.WithValue(ctx, txKey{}, st))

	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err != nil {
		for i := len(st.undo) - 1; i >= 0; i-- {
			st.undo[i]()
		}
	}
	st.undo = nil
	m.s.release(st)
	return err
}

// RunInSavepoint undoes only fn's writes when fn fails.
func (m *TxManager) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	st := txFrom(ctx)
	if st == nil {
		return m.RunInTransaction(ctx, fn)
	}

	m.s.mu.Lock()
	mark := len(st.undo)
	m.s.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.s.mu.Lock()
		for i := len(st.undo) - 1; i >= mark; i-- {
			st.undo[i]()
		}
		st.undo = st.undo[:mark]
		m.s.mu.Unlock()
		return err
	}
	return nil
}
