// Package engine is stepflow's top-level orchestrator (spec.md §4.J):
// it walks a workflow's job graph in scheduler order, dispatches each
// job's steps through the step registry, evaluates expressions over a
// layered context, and reports a tree-style run summary. The
// pre/main/post step lifecycle (hook point, skip-on-prior-failure,
// continue-on-error recovery) is grounded on pkg/runner/step.go's
// runStepExecutor, with its shell/script execution replaced wholesale
// by direct pkg/registry dispatch (stepflow steps are native callables,
// not shell scripts) and its GITHUB_* runner-file-command plumbing
// replaced by direct in-memory output maps. The layered-context
// construction mirrors pkg/runner/run_context.go's
// getJobContext/getStepsContext/mergeMaps shape.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stepflow/stepflow/pkg/clockrng"
	"github.com/stepflow/stepflow/pkg/container"
	"github.com/stepflow/stepflow/pkg/errs"
	"github.com/stepflow/stepflow/pkg/expr"
	"github.com/stepflow/stepflow/pkg/hooks"
	"github.com/stepflow/stepflow/pkg/matrix"
	"github.com/stepflow/stepflow/pkg/model"
	"github.com/stepflow/stepflow/pkg/registry"
	"github.com/stepflow/stepflow/pkg/scheduler"
	"github.com/stepflow/stepflow/pkg/workflowregistry"
)

// sessionIDEnvVar is the environment variable every world sees set to a
// short, per-run identifier, the equivalent of act's GITHUB_RUN_ID for a
// local cooperative run.
const sessionIDEnvVar = "RUST_ACTIONS_SESSION_ID"

// WorldFactory builds a fresh world value for one job-row "scenario".
// The engine never looks inside the returned value; it only threads it
// through to registered steps (spec.md §4.E's type erasure). A
// WorldFactory may fail (spec.md §7: "per-job world-init failure fails
// the job but does not abort the workflow"), the Go shape of the
// original's `World::new() -> Result<Self>`.
type WorldFactory func() (any, error)

// Engine owns every collaborator a run needs: the discovered workflows,
// the step callables, the lifecycle hooks, and the deterministic
// clock/rng pair.
type Engine struct {
	Workflows    *workflowregistry.Registry
	Steps        *registry.Registry
	Hooks        *hooks.Registry
	Clock        *clockrng.VirtualClock
	Rng          *clockrng.SeededRng
	WorldFactory WorldFactory
	Env          map[string]string
	Containers   map[string]container.Spec
	Log          *logrus.Logger
}

// New returns an Engine with sane zero-value collaborators; callers
// typically override Steps/Hooks/WorldFactory/Containers before Run.
func New(workflows *workflowregistry.Registry) *Engine {
	return &Engine{
		Workflows:    workflows,
		Steps:        registry.New(),
		Hooks:        hooks.New(),
		Clock:        clockrng.NewVirtualClock(),
		Rng:          clockrng.NewSeededRng(),
		WorldFactory: func() (any, error) { return nil, nil },
		Env:          map[string]string{},
		Containers:   map[string]container.Spec{},
		Log:          logrus.New(),
	}
}

// RunResult is the outcome of a full invocation: every runnable
// workflow, in discovery order, plus a session id for correlating log
// output with a particular run.
type RunResult struct {
	SessionID string
	Workflows []*WorkflowResult
}

// Failed reports whether any workflow in the run failed.
func (r *RunResult) Failed() bool {
	for _, w := range r.Workflows {
		if w.Failed {
			return true
		}
	}
	return false
}

// Run executes every runnable (non-reusable) workflow the registry
// discovered, in path order, firing BeforeAll/AfterAll around the whole
// batch (spec.md §4.H).
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	sessionID := uuid.New().String()[:8]
	e.Env[sessionIDEnvVar] = sessionID

	if err := e.Hooks.Fire(hooks.Event{Kind: hooks.BeforeAll}); err != nil {
		return nil, errs.Custom(fmt.Sprintf("BeforeAll hook failed: %v", err))
	}

	result := &RunResult{SessionID: sessionID}
	for _, wf := range e.Workflows.Runnable() {
		wr, err := e.RunWorkflow(ctx, wf, nil)
		if err != nil {
			e.Log.WithField("workflow", wf.Name).Errorf("workflow aborted: %v", err)
			wr = &WorkflowResult{Name: wf.Name, Path: wf.Path, Failed: true, Err: err}
		}
		result.Workflows = append(result.Workflows, wr)
	}

	if err := e.Hooks.Fire(hooks.Event{Kind: hooks.AfterAll}); err != nil {
		return nil, errs.Custom(fmt.Sprintf("AfterAll hook failed: %v", err))
	}

	e.report(result)
	return result, nil
}

// WorkflowResult is the outcome of running one workflow's job graph.
type WorkflowResult struct {
	Name   string
	Path   string
	Jobs   []*JobResult
	Failed bool
	// Err is set when the workflow never got to run a single job: a
	// structural validation or toposort failure (spec.md §7: "toposort
	// errors abort just the current workflow, not the whole run").
	Err error
}

// RunWorkflow runs wf's jobs in scheduler order, threading completed
// job outputs into each subsequent job's `needs` context.
// parentJobs seeds that same context with a calling workflow's own
// completed jobs when wf is itself being run as a `@file:` sub-workflow
// (spec.md §4.J step 2: the sub-workflow's job context is "seeded with
// the sub-workflow's already-completed sibling jobs and the parent
// workflow's completed jobs"); pass nil for a top-level run. A
// structural failure (bad shape, a toposort error) returns a non-nil
// error; the caller's job is to record it against this one workflow and
// keep running the rest of the batch, never to abort the whole Run.
func (e *Engine) RunWorkflow(ctx context.Context, wf *model.Workflow, parentJobs map[string]expr.JobOutputs) (*WorkflowResult, error) {
	if err := wf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "workflow %q: validating", wf.Name)
	}

	order, err := scheduler.Order(wf)
	if err != nil {
		return nil, errors.Wrapf(err, "workflow %q: resolving job order", wf.Name)
	}

	wr := &WorkflowResult{Name: wf.Name, Path: wf.Path}
	jobOutputs := map[string]expr.JobOutputs{}
	for name, outputs := range parentJobs {
		jobOutputs[name] = outputs
	}

	for _, jobName := range order {
		job := wf.Jobs[jobName]
		needs, _, err := job.Needs()
		if err != nil {
			return nil, err
		}
		needsCtx := map[string]expr.JobOutputs{}
		if parentJobs != nil {
			// A sub-workflow job sees every completed job: its own
			// siblings and the calling workflow's.
			for name, outputs := range jobOutputs {
				needsCtx[name] = outputs
			}
		}
		for _, dep := range needs {
			needsCtx[dep] = jobOutputs[dep]
		}

		if workflowregistry.IsFileRef(job.Uses) {
			jr, outputs := e.runFileRefJob(ctx, jobName, job, jobOutputs)
			wr.Jobs = append(wr.Jobs, jr)
			jobOutputs[jobName] = outputs
			if jr.Failed {
				wr.Failed = true
			}
			continue
		}

		rows := matrix.Expand(strategyMatrix(job))
		failFast := job.Strategy.GetFailFast()

		for _, row := range rows {
			jr, outputs := e.runJobRow(ctx, wf.Name, jobName, job, row, needsCtx)
			wr.Jobs = append(wr.Jobs, jr)
			jobOutputs[jobName] = outputs
			if jr.Failed {
				wr.Failed = true
				if failFast {
					break
				}
			}
		}
	}

	return wr, nil
}

// runFileRefJob runs a `@file:`-referenced reusable workflow as a single
// job step, evaluating its `workflow_call.outputs` afterward against its
// own completed jobs (spec.md §4.F cross-workflow composition).
// parentJobs is the calling workflow's own completed-jobs map, forwarded
// into the sub-workflow's RunWorkflow so its job graph can see both its
// own sibling jobs and the caller's. Per spec.md §7 ("sub-workflow
// resolution failures fail the calling job"), every failure here becomes
// a Failed JobResult, never a Go error, so the rest of the calling
// workflow's job graph still runs.
func (e *Engine) runFileRefJob(ctx context.Context, jobName string, job *model.Job, parentJobs map[string]expr.JobOutputs) (*JobResult, expr.JobOutputs) {
	jr := &JobResult{Name: jobName}

	path, err := workflowregistry.ParseFileRef(job.Uses)
	if err != nil {
		jr.Failed = true
		jr.Err = errors.Wrapf(err, "job %q: parsing @file: reference", jobName)
		return jr, expr.JobOutputs{}
	}
	sub, err := e.Workflows.Resolve(path)
	if err != nil {
		jr.Failed = true
		jr.Err = errors.Wrapf(err, "job %q: resolving %q", jobName, path)
		return jr, expr.JobOutputs{}
	}

	subResult, err := e.RunWorkflow(ctx, sub, parentJobs)
	if err != nil {
		jr.Failed = true
		jr.Err = errors.Wrapf(err, "job %q: running sub-workflow %q", jobName, path)
		return jr, expr.JobOutputs{}
	}
	jr.Failed = subResult.Failed

	outputs := expr.JobOutputs{}
	if sub.On != nil && sub.On.WorkflowCall != nil {
		subJobOutputs := map[string]expr.JobOutputs{}
		for _, j := range subResult.Jobs {
			subJobOutputs[j.Name] = j.Outputs
		}
		evalCtx := expr.NewContext()
		evalCtx.Jobs = subJobOutputs
		for name, def := range sub.On.WorkflowCall.Outputs {
			v, err := expr.EvaluateTyped(def.Value, evalCtx)
			if err != nil {
				jr.Failed = true
				jr.Err = err
				continue
			}
			outputs[name] = v
		}
	}
	jr.Outputs = outputs
	return jr, outputs
}

func strategyMatrix(job *model.Job) model.Matrix {
	if job.Strategy == nil {
		return model.Matrix{}
	}
	return job.Strategy.Matrix
}
