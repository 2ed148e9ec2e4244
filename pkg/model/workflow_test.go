package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleWorkflow = `
name: sample
env:
  FOO: bar
jobs:
  setup:
    steps:
      - id: u
        uses: gen
        with:
          value: 42
  test:
    needs: setup
    strategy:
      matrix:
        os: [linux, darwin]
        include:
          - os: windows
            experimental: true
        exclude:
          - os: darwin
    steps:
      - id: t
        uses: echo
`

func TestReadWorkflow(t *testing.T) {
	assert := assert.New(t)

	w, err := ReadWorkflow(strings.NewReader(sampleWorkflow))
	assert.NoError(err)
	assert.Equal("sample", w.Name)
	assert.Len(w.Jobs, 2)
	assert.False(w.IsReusable())
}

func TestJobNeedsSingleNormalizesToList(t *testing.T) {
	assert := assert.New(t)

	w, err := ReadWorkflow(strings.NewReader(sampleWorkflow))
	assert.NoError(err)

	needs, kind, err := w.Jobs["test"].Needs()
	assert.NoError(err)
	assert.Equal(NeedsSingle, kind)
	assert.Equal([]string{"setup"}, needs)
}

func TestJobNeedsNoneWhenAbsent(t *testing.T) {
	assert := assert.New(t)

	w, err := ReadWorkflow(strings.NewReader(sampleWorkflow))
	assert.NoError(err)

	needs, kind, err := w.Jobs["setup"].Needs()
	assert.NoError(err)
	assert.Equal(NeedsNone, kind)
	assert.Nil(needs)
}

func TestMatrixDimensionsExcludeInclude(t *testing.T) {
	assert := assert.New(t)

	w, err := ReadWorkflow(strings.NewReader(sampleWorkflow))
	assert.NoError(err)

	m := w.Jobs["test"].Strategy.Matrix
	assert.ElementsMatch([]any{"linux", "darwin"}, m.Dimensions["os"])
	assert.Len(m.Include, 1)
	assert.Len(m.Exclude, 1)
}

func TestValidateDuplicateStepID(t *testing.T) {
	assert := assert.New(t)

	w := &Workflow{
		Name: "dup",
		Jobs: map[string]*Job{
			"j": {Steps: []*Step{{ID: "a", Uses: "x"}, {ID: "a", Uses: "y"}}},
		},
	}
	err := w.Validate()
	assert.Error(err)
}

func TestValidateJobNeedsStepsOrUses(t *testing.T) {
	assert := assert.New(t)

	w := &Workflow{Name: "empty", Jobs: map[string]*Job{"j": {}}}
	assert.Error(w.Validate())

	w2 := &Workflow{Name: "ref", Jobs: map[string]*Job{"j": {Uses: "@file:other.yaml"}}}
	assert.NoError(w2.Validate())
}

func TestStepStringFallback(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("named", (&Step{Name: "named", ID: "id", Uses: "uses"}).String())
	assert.Equal("id", (&Step{ID: "id", Uses: "uses"}).String())
	assert.Equal("uses", (&Step{Uses: "uses"}).String())
}
