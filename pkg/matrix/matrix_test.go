package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepflow/stepflow/pkg/model"
)

func TestExpandNoDimensionsYieldsOneEmptyRow(t *testing.T) {
	assert := assert.New(t)

	rows := Expand(model.Matrix{})
	assert.Equal([]Row{{}}, rows)
}

func TestExpandCartesianWithExcludeAndInclude(t *testing.T) {
	assert := assert.New(t)

	m := model.Matrix{
		Dimensions: map[string][]any{
			"a": {"v1", "v2"},
			"b": {"v1", "v2"},
		},
		Exclude: []map[string]any{{"a": "v1", "b": "v2"}},
		Include: []map[string]any{{"a": "v3-beta", "experimental": true}},
	}

	rows := Expand(m)
	assert.Len(rows, 4)

	found := map[string]bool{}
	for _, r := range rows {
		found[FormatRow(r)] = true
	}
	assert.True(found["[a=v1, b=v1]"])
	assert.True(found["[a=v2, b=v1]"])
	assert.True(found["[a=v2, b=v2]"])
	assert.True(found["[a=v3-beta, experimental=true]"])
	assert.False(found["[a=v1, b=v2]"])
}

func TestExpandExcludeMissingKeyNeverMatches(t *testing.T) {
	assert := assert.New(t)

	m := model.Matrix{
		Dimensions: map[string][]any{"a": {"v1"}},
		Exclude:    []map[string]any{{"nonexistent": "v1"}},
	}
	rows := Expand(m)
	assert.Len(rows, 1)
}

func TestExpandEmptyResultFallsBackToOneEmptyRow(t *testing.T) {
	assert := assert.New(t)

	m := model.Matrix{
		Dimensions: map[string][]any{"a": {"v1"}},
		Exclude:    []map[string]any{{"a": "v1"}},
	}
	rows := Expand(m)
	assert.Equal([]Row{{}}, rows)
}

func TestFormatRowSortsKeys(t *testing.T) {
	assert := assert.New(t)

	row := Row{"b": "2", "a": "1"}
	assert.Equal("[a=1, b=2]", FormatRow(row))
}

func TestMatrixSizeInvariant(t *testing.T) {
	assert := assert.New(t)

	m := model.Matrix{
		Dimensions: map[string][]any{
			"a": {"1", "2", "3"},
			"b": {"x", "y"},
		},
		Exclude: []map[string]any{{"a": "1", "b": "x"}},
	}
	rows := Expand(m)
	// |dim_a|*|dim_b| - |excluded matches| + |include| = 3*2 - 1 + 0
	assert.Len(rows, 5)
}
