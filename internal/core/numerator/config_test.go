package numerator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPrefix(t *testing.T) {
	tests := map[string]string{
		DocInvoice:  "INV-",
		DocPO:       "PO-",
		DocGRN:      "GRN-",
		DocTransfer: "TR-",
		"RETURN":    "RETURN-",
	}
	for docType, want := range tests {
		t.Run(docType, func(t *testing.T) {
			assert.Equal(t, want, DefaultPrefix(docType))
		})
	}
}

func TestConfig_Resolve(t *testing.T) {
	three := 3

	t.Run("stored values", func(t *testing.T) {
		prefix, padding := ForType(DocInvoice).Resolve("INV-", 5)
		assert.Equal(t, "INV-", prefix)
		assert.Equal(t, 5, padding)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := Config{DocumentType: DocInvoice, Prefix: "S/", Padding: &three}
		prefix, padding := cfg.Resolve("INV-", 5)
		assert.Equal(t, "S/", prefix)
		assert.Equal(t, 3, padding)
	})

	t.Run("initial values", func(t *testing.T) {
		assert.Equal(t, "GRN-", ForType(DocGRN).InitialPrefix())
		assert.Equal(t, DefaultPadding, ForType(DocGRN).InitialPadding())
		cfg := Config{DocumentType: DocGRN, Prefix: "R-", Padding: &three}
		assert.Equal(t, "R-", cfg.InitialPrefix())
		assert.Equal(t, 3, cfg.InitialPadding())
	})
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INV-00001", Format("INV-", 5, 1))
	assert.Equal(t, "INV-123456", Format("INV-", 5, 123456))
	assert.Equal(t, "TR-7", Format("TR-", 0, 7))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "INVOICE", Config{DocumentType: " invoice "}.Normalize().DocumentType)
}
