// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/infrastructure/storage/postgres"
)

// baseRepo holds what every catalog table needs: a table, its columns and the tx manager.
type baseRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
}

func newBaseRepo[T any](txManager *postgres.TxManager, tableName, entityName string) baseRepo[T] {
	return baseRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *baseRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *baseRepo[T]) selectQuery() squirrel.SelectBuilder {
	return r.Builder().Select(r.selectCols...).From(r.tableName)
}

// getOne scans a single row matching where.
func (r *baseRepo[T]) getOne(ctx context.Context, where squirrel.Sqlizer, key any) (*T, error) {
	sql, args, err := r.selectQuery().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out T
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, postgres.MapError(err, r.entityName, key)
		}
		return nil, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return &out, nil
}

// getMany returns the rows with the given ids; missing ids are simply absent.
func (r *baseRepo[T]) getMany(ctx context.Context, ids []id.ID) ([]*T, error) {
	ids = id.SortedUnique(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	sql, args, err := r.selectQuery().Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []*T
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return out, nil
}

// insert writes entity using its "db" tags, limited to the table's columns.
func (r *baseRepo[T]) insert(ctx context.Context, entity *T) error {
	data := postgres.StructToMap(entity)
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", r.tableName, err), r.entityName, data["id"])
	}
	return nil
}
