package scheduler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepflow/stepflow/pkg/model"
)

func mustWorkflow(t *testing.T, yamlSrc string) *model.Workflow {
	t.Helper()
	wf, err := model.ReadWorkflow(strings.NewReader(yamlSrc))
	assert.NoError(t, err)
	return wf
}

func TestOrderRespectsNeeds(t *testing.T) {
	wf := mustWorkflow(t, `
name: chain
jobs:
  c:
    needs: b
    steps: [{uses: noop}]
  b:
    needs: a
    steps: [{uses: noop}]
  a:
    steps: [{uses: noop}]
`)
	order, err := Order(wf)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestOrderIsDeterministicAmongIndependentJobs(t *testing.T) {
	wf := mustWorkflow(t, `
name: fanout
jobs:
  zeta:
    steps: [{uses: noop}]
  alpha:
    steps: [{uses: noop}]
  mu:
    steps: [{uses: noop}]
`)
	order, err := Order(wf)
	assert.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, order)
}

func TestOrderDetectsCycle(t *testing.T) {
	wf := mustWorkflow(t, `
name: cyclic
jobs:
  a:
    needs: b
    steps: [{uses: noop}]
  b:
    needs: a
    steps: [{uses: noop}]
`)
	_, err := Order(wf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestOrderDetectsCycleAmongLargerGraph(t *testing.T) {
	wf := mustWorkflow(t, `
name: cyclic-with-clean-jobs
jobs:
  a:
    steps: [{uses: noop}]
  x:
    needs: y
    steps: [{uses: noop}]
  y:
    needs: z
    steps: [{uses: noop}]
  z:
    needs: x
    steps: [{uses: noop}]
`)
	_, err := Order(wf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "x -> y -> z -> x")
}

func TestOrderDetectsMissingDependency(t *testing.T) {
	wf := mustWorkflow(t, `
name: dangling
jobs:
  a:
    needs: ghost
    steps: [{uses: noop}]
`)
	_, err := Order(wf)
	assert.Error(t, err)
}

func TestOrderMultipleNeeds(t *testing.T) {
	wf := mustWorkflow(t, `
name: diamond
jobs:
  d:
    needs: [b, c]
    steps: [{uses: noop}]
  b:
    needs: a
    steps: [{uses: noop}]
  c:
    needs: a
    steps: [{uses: noop}]
  a:
    steps: [{uses: noop}]
`)
	order, err := Order(wf)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
}
