package engine

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepflow/stepflow/pkg/errs"
	"github.com/stepflow/stepflow/pkg/workflowregistry"
)

type recordWorld struct {
	calls []string
}

func writeWorkflow(t *testing.T, dir, name, body string) {
	t.Helper()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestRunWorkflowExecutesStepsInOrder(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeWorkflow(t, dir, "main.yaml", `
name: main
jobs:
  build:
    steps:
      - id: one
        uses: record
        with:
          tag: first
      - id: two
        uses: record
        with:
          tag: second
    outputs:
      last: ${{ steps.two.outputs.tag }}
`)

	reg, err := workflowregistry.Discover(dir)
	assert.NoError(err)

	e := New(reg)
	world := &recordWorld{}
	e.WorldFactory = func() (any, error) { return world, nil }
	assert.NoError(e.Steps.RegisterFunc("record", reflect.TypeOf(&recordWorld{}), func(ctx context.Context, w any, args map[string]any) (map[string]any, error) {
		rw := w.(*recordWorld)
		tag, _ := args["tag"].(string)
		rw.calls = append(rw.calls, tag)
		return map[string]any{"tag": tag}, nil
	}))

	result, err := e.Run(context.Background())
	assert.NoError(err)
	assert.False(result.Failed())
	assert.Equal([]string{"first", "second"}, world.calls)

	assert.Len(result.Workflows, 1)
	wr := result.Workflows[0]
	assert.Len(wr.Jobs, 1)
	assert.Equal("second", wr.Jobs[0].Outputs["last"])
}

func TestRunWorkflowJobDependencyOrderAndOutputs(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeWorkflow(t, dir, "main.yaml", `
name: deps
jobs:
  a:
    steps:
      - id: s
        uses: record
        with:
          tag: from-a
    outputs:
      tag: ${{ steps.s.outputs.tag }}
  b:
    needs: a
    steps:
      - id: s
        uses: record
        with:
          tag: ${{ needs.a.outputs.tag }}
    outputs:
      tag: ${{ steps.s.outputs.tag }}
`)

	reg, err := workflowregistry.Discover(dir)
	assert.NoError(err)

	e := New(reg)
	world := &recordWorld{}
	e.WorldFactory = func() (any, error) { return world, nil }
	assert.NoError(e.Steps.RegisterFunc("record", reflect.TypeOf(&recordWorld{}), func(ctx context.Context, w any, args map[string]any) (map[string]any, error) {
		rw := w.(*recordWorld)
		tag, _ := args["tag"].(string)
		rw.calls = append(rw.calls, tag)
		return map[string]any{"tag": tag}, nil
	}))

	_, err = e.Run(context.Background())
	assert.NoError(err)
	assert.Equal([]string{"from-a", "from-a"}, world.calls)
}

func TestRunWorkflowStepFailureFailsJobAndSkipsRemaining(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeWorkflow(t, dir, "main.yaml", `
name: fails
jobs:
  build:
    steps:
      - id: one
        uses: boom
      - id: two
        uses: record
        with:
          tag: never
`)

	reg, err := workflowregistry.Discover(dir)
	assert.NoError(err)

	e := New(reg)
	world := &recordWorld{}
	e.WorldFactory = func() (any, error) { return world, nil }
	assert.NoError(e.Steps.RegisterFunc("boom", reflect.TypeOf(&recordWorld{}), func(ctx context.Context, w any, args map[string]any) (map[string]any, error) {
		return nil, errs.Custom("boom")
	}))
	assert.NoError(e.Steps.RegisterFunc("record", reflect.TypeOf(&recordWorld{}), func(ctx context.Context, w any, args map[string]any) (map[string]any, error) {
		rw := w.(*recordWorld)
		tag, _ := args["tag"].(string)
		rw.calls = append(rw.calls, tag)
		return map[string]any{}, nil
	}))

	result, err := e.Run(context.Background())
	assert.NoError(err)
	assert.True(result.Failed())
	assert.Empty(world.calls)

	jr := result.Workflows[0].Jobs[0]
	assert.Equal(StepFailed, jr.Steps[0].Status)
	assert.Equal(StepSkipped, jr.Steps[1].Status)
}

func TestRunWorkflowMatrixExpandsRows(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeWorkflow(t, dir, "main.yaml", `
name: matrix
jobs:
  build:
    strategy:
      matrix:
        os: [linux, darwin]
    steps:
      - id: s
        uses: record
        with:
          tag: ${{ matrix.os }}
`)

	reg, err := workflowregistry.Discover(dir)
	assert.NoError(err)

	e := New(reg)
	world := &recordWorld{}
	e.WorldFactory = func() (any, error) { return world, nil }
	assert.NoError(e.Steps.RegisterFunc("record", reflect.TypeOf(&recordWorld{}), func(ctx context.Context, w any, args map[string]any) (map[string]any, error) {
		rw := w.(*recordWorld)
		tag, _ := args["tag"].(string)
		rw.calls = append(rw.calls, tag)
		return map[string]any{}, nil
	}))

	result, err := e.Run(context.Background())
	assert.NoError(err)
	assert.Len(result.Workflows[0].Jobs, 2)
	assert.ElementsMatch([]string{"linux", "darwin"}, world.calls)
}

func TestRunWorkflowWorldInitFailureFailsOnlyThatJob(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeWorkflow(t, dir, "main.yaml", `
name: broken-world
jobs:
  a:
    steps:
      - uses: record
        with:
          tag: a
  b:
    steps:
      - uses: record
        with:
          tag: b
`)

	reg, err := workflowregistry.Discover(dir)
	assert.NoError(err)

	e := New(reg)
	world := &recordWorld{}
	calls := 0
	e.WorldFactory = func() (any, error) {
		calls++
		if calls == 1 {
			return nil, errs.Custom("world init failed")
		}
		return world, nil
	}
	assert.NoError(e.Steps.RegisterFunc("record", reflect.TypeOf(&recordWorld{}), func(ctx context.Context, w any, args map[string]any) (map[string]any, error) {
		rw := w.(*recordWorld)
		tag, _ := args["tag"].(string)
		rw.calls = append(rw.calls, tag)
		return map[string]any{}, nil
	}))

	result, err := e.Run(context.Background())
	assert.NoError(err)
	assert.True(result.Failed())

	wr := result.Workflows[0]
	assert.Len(wr.Jobs, 2)
	var sawFailure, sawSuccess bool
	for _, jr := range wr.Jobs {
		if jr.Failed {
			sawFailure = true
			assert.Error(jr.Err)
		} else {
			sawSuccess = true
		}
	}
	assert.True(sawFailure)
	assert.True(sawSuccess)
}

func TestRunWorkflowSkipsReusableWorkflows(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeWorkflow(t, dir, "reusable.yaml", `
name: reusable
on:
  workflow_call:
    outputs:
      greeting:
        value: ${{ jobs.hello.outputs.greeting }}
jobs:
  hello:
    steps:
      - id: s
        uses: record
        with:
          tag: hi
    outputs:
      greeting: ${{ steps.s.outputs.tag }}
`)
	writeWorkflow(t, dir, "main.yaml", `
name: main
jobs:
  call:
    uses: "@file:reusable.yaml"
`)

	reg, err := workflowregistry.Discover(dir)
	assert.NoError(err)
	assert.Len(reg.Runnable(), 1)
	assert.Len(reg.Reusable(), 1)

	e := New(reg)
	world := &recordWorld{}
	e.WorldFactory = func() (any, error) { return world, nil }
	assert.NoError(e.Steps.RegisterFunc("record", reflect.TypeOf(&recordWorld{}), func(ctx context.Context, w any, args map[string]any) (map[string]any, error) {
		rw := w.(*recordWorld)
		tag, _ := args["tag"].(string)
		rw.calls = append(rw.calls, tag)
		return map[string]any{"tag": tag}, nil
	}))

	result, err := e.Run(context.Background())
	assert.NoError(err)
	assert.False(result.Failed())
	assert.Equal([]string{"hi"}, world.calls)

	jr := result.Workflows[0].Jobs[0]
	assert.Equal("hi", jr.Outputs["greeting"])
}
