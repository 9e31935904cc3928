package postgres

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRow_Outcome(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	stored := idempotencyRow{
		UserID:      "u-1",
		Operation:   "POST /api/v1/invoices/:id/post",
		RequestHash: "h-1",
		Status:      IdempotencyStatusPending,
		UpdatedAt:   now.Add(-10 * time.Second),
	}

	tests := []struct {
		name     string
		mutate   func(r *idempotencyRow)
		want     acquireOutcome
		mismatch bool
	}{
		{"fresh insert", func(r *idempotencyRow) { r.Inserted = true }, outcomeAcquired, false},
		{"finished success replays", func(r *idempotencyRow) { r.Status = IdempotencyStatusSuccess }, outcomeReplay, false},
		{"finished failure replays", func(r *idempotencyRow) { r.Status = IdempotencyStatusFailed }, outcomeReplay, false},
		{"pending in flight", func(r *idempotencyRow) {}, outcomeBusy, false},
		{"pending and stale", func(r *idempotencyRow) { r.UpdatedAt = now.Add(-2 * time.Minute) }, outcomeReclaim, false},
		{"other user", func(r *idempotencyRow) { r.UserID = "u-2" }, 0, true},
		{"other route", func(r *idempotencyRow) { r.Operation = "DELETE /api/v1/invoices/:id" }, 0, true},
		{"other body", func(r *idempotencyRow) { r.RequestHash = "h-2"; r.Status = IdempotencyStatusSuccess }, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := stored
			tt.mutate(&row)
			got, err := row.outcome("u-1", "POST /api/v1/invoices/:id/post", "h-1", now, DefaultIdempotencyStaleAfter)
			if tt.mismatch {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errIdempotencyMismatch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdempotencyRow_ReplayDefaults(t *testing.T) {
	replay := idempotencyRow{Response: []byte(`{"ok":true}`)}.replay()
	assert.Equal(t, http.StatusOK, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
	assert.JSONEq(t, `{"ok":true}`, string(replay.Body))

	kept := idempotencyRow{StatusCode: http.StatusNoContent, ContentType: "text/plain"}.replay()
	assert.Equal(t, http.StatusNoContent, kept.StatusCode)
	assert.Equal(t, "text/plain", kept.ContentType)
}

func TestBuildAcquireKey(t *testing.T) {
	now := time.Now().UTC()
	query, args, err := buildAcquireKey("k-1", "u-1", "POST /x", "h", now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Contains(t, query, "INSERT INTO idempotency_keys")
	assert.Contains(t, query, "GREATEST(idempotency_keys.expires_at, EXCLUDED.expires_at)")
	assert.Contains(t, query, "(xmax = 0) AS inserted")
	assert.NotContains(t, query, "updated_at = ", "a conflicting acquire must not refresh the stale clock")
	require.Len(t, args, 8)
	assert.Equal(t, IdempotencyStatusPending, args[3])
}

func TestBuildReclaimKey(t *testing.T) {
	now := time.Now().UTC()
	query, args, err := buildReclaimKey("k-1", now, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Contains(t, query, "UPDATE idempotency_keys SET updated_at = $1")
	assert.Contains(t, query, "updated_at < $")
	assert.Len(t, args, 4)
}

func TestBuildFinishKey(t *testing.T) {
	query, args, err := buildFinishKey("k-1", IdempotencyStatusFailed, http.StatusConflict, "application/json", []byte(`{}`), time.Now())
	require.NoError(t, err)
	assert.Contains(t, query, "UPDATE idempotency_keys SET status = $1")
	assert.Contains(t, query, "WHERE idempotency_key = $6")
	assert.Equal(t, IdempotencyStatusFailed, args[0])
	assert.Equal(t, http.StatusConflict, args[2])
}

func TestMarshalReplayBody(t *testing.T) {
	body, err := marshalReplayBody(nil)
	require.NoError(t, err)
	assert.Nil(t, body)

	body, err = marshalReplayBody(map[string]string{"invoice_no": "INV-00001"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"invoice_no":"INV-00001"}`, string(body))

	_, err = marshalReplayBody(make(chan int))
	assert.Error(t, err)
}
