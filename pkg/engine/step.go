package engine

import (
	"context"

	"github.com/stepflow/stepflow/pkg/errs"
	"github.com/stepflow/stepflow/pkg/expr"
	"github.com/stepflow/stepflow/pkg/hooks"
	"github.com/stepflow/stepflow/pkg/model"
)

// StepStatus is the terminal state of one step run, collapsed to a
// single value since stepflow has no separate "outcome before
// continue-on-error" concept to report.
type StepStatus int

const (
	StepSuccess StepStatus = iota
	StepFailed
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepSuccess:
		return "success"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepResult is the outcome of running one step.
type StepResult struct {
	Name    string
	Status  StepStatus
	Outputs map[string]any
	Err     error
}

// runStep runs one step against world, recording its outputs into ectx
// under its id so later steps and the job's own outputs can see them.
// A step is skipped outright if a previous step in the same job already
// failed without continue-on-error (spec.md §4.J skip-on-prior-failure).
//
// Every failure mode below — a hook error, an expression error in an
// assertion or `with`, a failing step callable — fails only this step
// (spec.md §7: "expression errors inside with or assertions fail the
// containing step"), never propagating as a Go error.
func (e *Engine) runStep(
	ctx context.Context,
	workflowName, jobName string,
	step *model.Step,
	world any,
	ectx *expr.Context,
	priorFailure bool,
) *StepResult {
	name := step.String()
	sr := &StepResult{Name: name}

	if priorFailure {
		sr.Status = StepSkipped
		return sr
	}

	beforeEvent := hooks.Event{Kind: hooks.BeforeStep, WorkflowName: workflowName, JobName: jobName, StepName: name, World: world}
	if err := e.Hooks.Fire(beforeEvent); err != nil {
		sr.Status = StepFailed
		sr.Err = err
		return sr
	}

	for _, assertion := range step.PreAssert {
		ok, err := expr.EvaluateAssertion(assertion, ectx)
		if err != nil {
			sr.Status = StepFailed
			sr.Err = err
			return e.finishStep(workflowName, jobName, world, sr)
		}
		if !ok {
			sr.Status = StepFailed
			sr.Err = errs.Assertion("pre-assertion failed: " + assertion)
			return e.finishStep(workflowName, jobName, world, sr)
		}
	}

	args, err := evaluateArgs(step.With, ectx)
	if err != nil {
		sr.Status = StepFailed
		sr.Err = err
		return e.finishStep(workflowName, jobName, world, sr)
	}

	outputs, runErr := e.Steps.Call(ctx, step.Uses, world, args)
	if runErr != nil {
		if step.ContinueOnError {
			sr.Status = StepSuccess
			sr.Err = runErr
			return e.finishStep(workflowName, jobName, world, sr)
		}
		sr.Status = StepFailed
		sr.Err = runErr
		return e.finishStep(workflowName, jobName, world, sr)
	}

	if step.ID != "" {
		ectx.Steps[step.ID] = outputs
	}
	sr.Outputs = outputs

	postCtx := ectx.WithOutputs(outputs)
	for _, assertion := range step.PostAssert {
		ok, err := expr.EvaluateAssertion(assertion, postCtx)
		if err != nil {
			if step.ContinueOnError {
				sr.Status = StepSuccess
				sr.Err = err
				return e.finishStep(workflowName, jobName, world, sr)
			}
			sr.Status = StepFailed
			sr.Err = err
			return e.finishStep(workflowName, jobName, world, sr)
		}
		if !ok {
			if step.ContinueOnError {
				sr.Status = StepSuccess
				sr.Err = errs.Assertion("post-assertion failed: " + assertion)
				return e.finishStep(workflowName, jobName, world, sr)
			}
			sr.Status = StepFailed
			sr.Err = errs.Assertion("post-assertion failed: " + assertion)
			return e.finishStep(workflowName, jobName, world, sr)
		}
	}

	sr.Status = StepSuccess
	return e.finishStep(workflowName, jobName, world, sr)
}

func (e *Engine) finishStep(workflowName, jobName string, world any, sr *StepResult) *StepResult {
	afterEvent := hooks.Event{Kind: hooks.AfterStep, WorkflowName: workflowName, JobName: jobName, StepName: sr.Name, World: world, Err: sr.Err}
	if err := e.Hooks.Fire(afterEvent); err != nil {
		sr.Status = StepFailed
		sr.Err = err
	}
	return sr
}

func evaluateArgs(with map[string]any, ectx *expr.Context) (map[string]any, error) {
	if with == nil {
		return map[string]any{}, nil
	}
	out, err := expr.EvaluateValue(with, ectx)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, errs.Args("step `with` did not evaluate to an object")
	}
	return m, nil
}
