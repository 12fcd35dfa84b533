package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyPath_Extract(t *testing.T) {
	data := map[string]any{
		"r_value_br_logr": 3.5,
		"sharp_kw": map[string]any{
			"usiz":  map[string]any{"total": 1.5e13},
			"label": "text",
		},
		"count":  json.Number("12"),
		"nested": map[string]any{"list": []any{1.0}},
	}

	tests := []struct {
		name    string
		path    PropertyPath
		want    float64
		wantErr error
	}{
		{"top-level scalar", NewPropertyPath("r", "r_value_br_logr"), 3.5, nil},
		{"nested scalar", NewPropertyPath("usiz", "sharp_kw.usiz.total"), 1.5e13, nil},
		{"json number", NewPropertyPath("count", "count"), 12, nil},
		{"missing leaf", NewPropertyPath("max", "sharp_kw.usiz.max"), 0, ErrPathNotFound},
		{"missing root", NewPropertyPath("x", "decay_index_br.max_l_over_hmin"), 0, ErrPathNotFound},
		{"through a scalar", NewPropertyPath("x", "r_value_br_logr.alpha"), 0, ErrPathNotFound},
		{"string leaf", NewPropertyPath("label", "sharp_kw.label"), 0, ErrNotNumeric},
		{"object leaf", NewPropertyPath("usiz", "sharp_kw.usiz"), 0, ErrNotNumeric},
		{"list leaf", NewPropertyPath("list", "nested.list"), 0, ErrNotNumeric},
		{"empty path", PropertyPath{Name: "empty"}, 0, ErrPathNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.path.Extract(data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPropertyPath_ExtractNilData(t *testing.T) {
	_, err := NewPropertyPath("r", "r_value_br_logr").Extract(nil)
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestPropertyPath_String(t *testing.T) {
	assert.Equal(t, "sharp_kw.usiz.total", NewPropertyPath("usiz_tot", "sharp_kw.usiz.total").String())
}

func TestDefaultSeriesProperties_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range DefaultSeriesProperties {
		assert.False(t, seen[p.Name], "duplicate property %s", p.Name)
		seen[p.Name] = true
		assert.NotEmpty(t, p.Path)
	}
}

func TestFetchResult_Complete(t *testing.T) {
	assert.True(t, FetchResult{Slices: 3}.Complete())
	assert.False(t, FetchResult{Slices: 3, Failed: 1}.Complete())
}
