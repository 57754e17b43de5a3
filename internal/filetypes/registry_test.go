package filetypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.NotEmpty(t, r.List())

	pdf, ok := r.Lookup("application/pdf")
	require.True(t, ok)
	assert.True(t, pdf.Convertible)
}

func TestRegistry_Detect(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		name     string
		fileName string
		declared string
		wantMIME string
		wantOK   bool
	}{
		{"declared type wins", "scan.bin", "image/png", "image/png", true},
		{"parameters ignored", "a.pdf", "application/pdf; charset=binary", "application/pdf", true},
		{"extension fallback", "Etude.MXL", "application/octet-stream", "application/vnd.recordare.musicxml", true},
		{"unknown", "notes.docx", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, ok := r.Detect(tt.fileName, tt.declared)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantMIME, ft.MIME)
			}
		})
	}
}

func TestParse_RejectsMissingMIME(t *testing.T) {
	_, err := Parse([]byte("types:\n  - label: broken\n"))
	assert.Error(t, err)
}
