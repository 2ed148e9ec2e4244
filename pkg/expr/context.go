// Package expr implements stepflow's ${{ … }} expression language
// (spec.md §4.B): substitution into strings, recursive value walking, and
// single-expression boolean assertions, evaluated over a layered
// ExprContext.
//
// github.com/nektos/act's own expression engine (pkg/exprparser) wasn't
// part of the retrieved reference slice — only its call sites
// (RunContext.ExprEval.Interpolate / EvalBool in pkg/runner/step.go) and
// its test idiom (pkg/runner/expression_test.go's table-driven
// TestEvaluate/TestInterpolate, which this package's tests follow
// closely). The grammar itself — a small hand-rolled operator scanner
// that treats {}/[] and quotes as scan barriers — is spec.md's own and is
// deliberately much smaller than GitHub's real expression language (no
// function calls): only path access plus a single binary comparison.
package expr

import "github.com/stepflow/stepflow/pkg/container"

// StepOutputs and JobOutputs are both name -> value maps (spec.md §3);
// the two are aliases of the same shape because nothing in the
// evaluator treats them differently.
type StepOutputs = map[string]any
type JobOutputs = map[string]any

// Context is the layered evaluation context spec.md §3 names
// ExprContext. Outputs is only populated for the transient post-assert
// scope of the step that just ran; everywhere else it is nil.
type Context struct {
	Env        map[string]string
	Steps      map[string]StepOutputs
	Containers map[string]container.Info
	Outputs    StepOutputs
	Needs      map[string]JobOutputs
	Matrix     map[string]any
	Jobs       map[string]JobOutputs
}

// NewContext builds an empty context with all maps initialized, the
// baseline a fresh job execution starts from (spec.md §4.J step 3).
func NewContext() *Context {
	return &Context{
		Env:        map[string]string{},
		Steps:      map[string]StepOutputs{},
		Containers: map[string]container.Info{},
		Needs:      map[string]JobOutputs{},
		Matrix:     map[string]any{},
		Jobs:       map[string]JobOutputs{},
	}
}

// WithOutputs returns a shallow copy of c with Outputs set, the
// "transient augmented copy ... produced for each post-assertion" that
// spec.md §3's Lifecycles section describes.
func (c *Context) WithOutputs(outs StepOutputs) *Context {
	clone := *c
	clone.Outputs = outs
	return &clone
}
