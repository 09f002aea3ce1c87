package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChunkConfig_Validate tests accepted and rejected window configurations
func TestChunkConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChunkConfig
		wantErr bool
	}{
		{
			name: "defaults are valid",
			cfg:  DefaultChunkConfig(),
		},
		{
			name: "zero overlap is valid",
			cfg:  ChunkConfig{ChunkSize: 10, OverlapSize: 0},
		},
		{
			name: "overlap one below size is valid",
			cfg:  ChunkConfig{ChunkSize: 10, OverlapSize: 9, Unit: ChunkUnitTokens},
		},
		{
			name:    "overlap equal to size",
			cfg:     ChunkConfig{ChunkSize: 1000, OverlapSize: 1000},
			wantErr: true,
		},
		{
			name:    "overlap above size",
			cfg:     ChunkConfig{ChunkSize: 100, OverlapSize: 150},
			wantErr: true,
		},
		{
			name:    "zero chunk size",
			cfg:     ChunkConfig{ChunkSize: 0},
			wantErr: true,
		},
		{
			name:    "negative chunk size",
			cfg:     ChunkConfig{ChunkSize: -5},
			wantErr: true,
		},
		{
			name:    "negative overlap",
			cfg:     ChunkConfig{ChunkSize: 10, OverlapSize: -1},
			wantErr: true,
		},
		{
			name:    "unknown unit",
			cfg:     ChunkConfig{ChunkSize: 10, OverlapSize: 1, Unit: "words"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidChunkConfig))
				return
			}
			assert.NoError(t, err)
		})
	}
}

// TestDefaultChunkConfig tests the default windows
func TestDefaultChunkConfig(t *testing.T) {
	cfg := DefaultChunkConfig()

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.OverlapSize)
	assert.Equal(t, ChunkUnitChars, cfg.Unit)
	assert.Equal(t, 900, cfg.Step())
}

// TestChunkConfig_EffectiveUnit tests the empty unit fallback
func TestChunkConfig_EffectiveUnit(t *testing.T) {
	assert.Equal(t, ChunkUnitChars, ChunkConfig{}.EffectiveUnit())
	assert.Equal(t, ChunkUnitTokens, ChunkConfig{Unit: ChunkUnitTokens}.EffectiveUnit())
}

// TestIngestResult_Partial tests partial success detection
func TestIngestResult_Partial(t *testing.T) {
	tests := []struct {
		name     string
		result   IngestResult
		expected bool
	}{
		{"all succeeded", IngestResult{ChunkCount: 3}, false},
		{"all failed", IngestResult{FailedCount: 3}, false},
		{"some failed", IngestResult{ChunkCount: 2, FailedCount: 1}, true},
		{"empty document", IngestResult{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.Partial())
		})
	}
}

// TestIngestResult_Total tests the window count
func TestIngestResult_Total(t *testing.T) {
	r := IngestResult{ChunkCount: 4, FailedCount: 2}
	assert.Equal(t, 6, r.Total())
}
