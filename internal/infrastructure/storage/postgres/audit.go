package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const (
	auditTable = "audit_log"

	// defaultCompressThreshold is the payload size above which zstd is used
	defaultCompressThreshold = 10 * 1024
)

// auditPayload is the serialized before/after pair.
type auditPayload struct {
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`
}

// auditRow is an audit_log row.
type auditRow struct {
	audit.Log
	Payload           []byte          `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
}

// AuditStore persists audit rows, compressing large payloads.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Store = (*AuditStore)(nil)

// NewAuditStore creates a new audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// encode serializes before/after and compresses them past the threshold.
func (s *AuditStore) encode(log audit.Log) (plain, compressed []byte, algo CompressionAlgo, err error) {
	raw, err := json.Marshal(auditPayload{Before: log.Before, After: log.After})
	if err != nil {
		return nil, nil, CompressionNone, fmt.Errorf("marshal audit payload: %w", err)
	}
	if len(raw) > s.compressThreshold {
		return nil, s.encoder.EncodeAll(raw, nil), CompressionZstd, nil
	}
	return raw, nil, CompressionNone, nil
}

// decode restores before/after from a stored row.
func (s *AuditStore) decode(row *auditRow) error {
	raw := row.Payload
	if row.CompressionAlgo == CompressionZstd && len(row.PayloadCompressed) > 0 {
		decompressed, err := s.decoder.DecodeAll(row.PayloadCompressed, nil)
		if err != nil {
			return fmt.Errorf("decompress audit payload: %w", err)
		}
		raw = decompressed
	}
	if len(raw) == 0 {
		return nil
	}
	var p auditPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("unmarshal audit payload: %w", err)
	}
	row.Before, row.After = p.Before, p.After
	return nil
}

// Insert appends one audit row.
func (s *AuditStore) Insert(ctx context.Context, log audit.Log) error {
	plain, compressed, algo, err := s.encode(log)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert(auditTable).
		Columns("id", "actor_id", "action", "table_name", "record_id",
			"payload", "payload_compressed", "compression_algo", "created_at").
		Values(log.ID, log.ActorID, log.Action, log.TableName, log.RecordID,
			plain, compressed, algo, log.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// History returns the latest rows for a record, newest first.
func (s *AuditStore) History(ctx context.Context, table string, recordID id.ID, limit int) ([]audit.Log, error) {
	query, args, err := sq.Select("id", "actor_id", "action", "table_name", "record_id",
		"payload", "payload_compressed", "compression_algo", "created_at").
		From(auditTable).
		Where(sq.Eq{"table_name": table, "record_id": recordID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}

	logs := make([]audit.Log, 0, len(rows))
	for i := range rows {
		if err := s.decode(&rows[i]); err != nil {
			return nil, err
		}
		logs = append(logs, rows[i].Log)
	}
	return logs, nil
}
