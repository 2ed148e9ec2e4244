package engine

import (
	"context"

	"github.com/stepflow/stepflow/pkg/container"
	"github.com/stepflow/stepflow/pkg/expr"
	"github.com/stepflow/stepflow/pkg/hooks"
	"github.com/stepflow/stepflow/pkg/matrix"
	"github.com/stepflow/stepflow/pkg/model"
)

// JobResult is the outcome of running one job, or one matrix row of a
// job when the job declares a matrix strategy.
type JobResult struct {
	Name    string
	Row     matrix.Row
	Steps   []*StepResult
	Outputs expr.JobOutputs
	Failed  bool
	// Err is set when the job failed for a reason other than an ordinary
	// step failure: world-init, a BeforeScenario or AfterScenario hook,
	// or a sub-workflow call (resolution, or its workflow_call.outputs
	// evaluation).
	Err error
}

// runJobRow runs a single matrix row of job: it builds a fresh world and
// ExprContext, fires BeforeScenario/AfterScenario around the step loop,
// runs every step in order, and evaluates the job's declared outputs
// once the steps have finished.
//
// Per spec.md §7's propagation policy, a world-init failure or a
// BeforeScenario hook failure fails only this job row: it is returned as
// a Failed JobResult, never as a Go error, so the caller's loop over the
// rest of the job graph keeps going.
func (e *Engine) runJobRow(
	ctx context.Context,
	workflowName, jobName string,
	job *model.Job,
	row matrix.Row,
	needs map[string]expr.JobOutputs,
) (*JobResult, expr.JobOutputs) {
	jr := &JobResult{Name: jobName, Row: row}

	world, err := e.WorldFactory()
	if err != nil {
		jr.Failed = true
		jr.Err = err
		return jr, expr.JobOutputs{}
	}

	ectx := expr.NewContext()
	for k, v := range e.Env {
		ectx.Env[k] = v
	}
	for k, v := range job.Env {
		ectx.Env[k] = v
	}
	for k, v := range row {
		ectx.Matrix[k] = v
	}
	ectx.Needs = needs
	// ectx.Jobs stays empty here: spec.md §4.B scopes the `jobs.*` field
	// to workflow_call.outputs evaluation (see runFileRefJob), not to
	// ordinary step/job bodies.
	for name, spec := range e.Containers {
		ectx.Containers[name] = container.Resolve(spec)
	}

	beforeEvent := hooks.Event{Kind: hooks.BeforeScenario, WorkflowName: workflowName, JobName: jobName, World: world}
	if err := e.Hooks.Fire(beforeEvent); err != nil {
		jr.Failed = true
		jr.Err = err
		return jr, expr.JobOutputs{}
	}

	priorFailure := false
	for _, step := range job.Steps {
		sr := e.runStep(ctx, workflowName, jobName, step, world, ectx, priorFailure)
		jr.Steps = append(jr.Steps, sr)
		if sr.Status == StepFailed {
			priorFailure = true
			jr.Failed = true
		}
	}

	afterEvent := hooks.Event{Kind: hooks.AfterScenario, WorkflowName: workflowName, JobName: jobName, World: world}
	if jr.Failed {
		afterEvent.Err = errJobFailed
	}
	if err := e.Hooks.Fire(afterEvent); err != nil {
		jr.Failed = true
		jr.Err = err
	}

	outputs := expr.JobOutputs{}
	for name, raw := range job.Outputs {
		v, err := expr.EvaluateTyped(raw, ectx)
		if err != nil {
			// An output that fails to evaluate is dropped; it does not
			// fail the job.
			continue
		}
		outputs[name] = v
	}
	jr.Outputs = outputs

	return jr, outputs
}

// errJobFailed flags an AfterScenario hook event without carrying any
// more specific cause; the job's own step errors are already recorded
// on each StepResult.
var errJobFailed = errFailedSentinel{}

type errFailedSentinel struct{}

func (errFailedSentinel) Error() string { return "job failed" }
