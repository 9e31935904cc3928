package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaerp/internal/core/id"
	"pharmaerp/internal/domain/audit"
)

func TestAuditStore_PayloadCompression(t *testing.T) {
	store, err := NewAuditStore(nil)
	require.NoError(t, err)

	t.Run("small payload stays plain", func(t *testing.T) {
		log := audit.Log{ID: id.New(), After: map[string]any{"status": "POSTED"}}

		plain, compressed, algo, err := store.encode(log)
		require.NoError(t, err)
		assert.Equal(t, CompressionNone, algo)
		assert.Nil(t, compressed)

		row := auditRow{Payload: plain, CompressionAlgo: algo}
		require.NoError(t, store.decode(&row))
		assert.Equal(t, "POSTED", row.After["status"])
		assert.Nil(t, row.Before)
	})

	t.Run("large payload is compressed", func(t *testing.T) {
		big := strings.Repeat("x", defaultCompressThreshold+1)
		log := audit.Log{ID: id.New(), Before: map[string]any{"note": big}}

		plain, compressed, algo, err := store.encode(log)
		require.NoError(t, err)
		assert.Equal(t, CompressionZstd, algo)
		assert.Nil(t, plain)
		assert.Less(t, len(compressed), defaultCompressThreshold)

		row := auditRow{PayloadCompressed: compressed, CompressionAlgo: algo}
		require.NoError(t, store.decode(&row))
		assert.Equal(t, big, row.Before["note"])
	})

	t.Run("empty payload decodes to nothing", func(t *testing.T) {
		row := auditRow{CompressionAlgo: CompressionNone}
		require.NoError(t, store.decode(&row))
		assert.Nil(t, row.Before)
		assert.Nil(t, row.After)
	})
}
