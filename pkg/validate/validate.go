// Package validate runs a non-executing pre-flight check over every
// workflow in a workflowregistry.Registry (spec.md §4.K). The error and
// warning taxonomy here is ported directly from
// original_source/crates/rust-actions/src/validate.rs, and cycle
// detection reuses pkg/scheduler's Kahn's-algorithm core rather than
// reimplementing it a second time.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stepflow/stepflow/pkg/errs"
	"github.com/stepflow/stepflow/pkg/model"
	"github.com/stepflow/stepflow/pkg/scheduler"
	"github.com/stepflow/stepflow/pkg/workflowregistry"
)

// ErrorCode identifies the kind of problem a ValidationError reports.
type ErrorCode int

const (
	JobDependencyNotFound ErrorCode = iota
	FileReferenceNotFound
	InvalidFileReference
	CircularJobDependency
	DuplicateStepId
	InvalidOutputExpression
	ReusableWorkflowMissingOutputs
)

// ValidationError is a problem that makes a workflow unrunnable.
type ValidationError struct {
	Code     ErrorCode
	Workflow string
	Job      string
	Detail   string
}

func (e ValidationError) String() string {
	return fmt.Sprintf("[%s] %s", e.Workflow, e.Detail)
}

// WarningCode identifies the kind of problem a ValidationWarning reports.
type WarningCode int

const (
	EmptyWorkflow WarningCode = iota
	JobWithNoSteps
	UnusedReusableWorkflow
	StepWithoutID
)

// ValidationWarning is a problem that doesn't block a run but likely
// indicates a mistake.
type ValidationWarning struct {
	Code     WarningCode
	Workflow string
	Job      string
	Detail   string
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("[%s] %s", w.Workflow, w.Detail)
}

// Report is the full result of validating a registry.
type Report struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

func (r *Report) IsValid() bool      { return len(r.Errors) == 0 }
func (r *Report) ErrorCount() int    { return len(r.Errors) }
func (r *Report) WarningCount() int  { return len(r.Warnings) }
func (r *Report) addError(e ValidationError)    { r.Errors = append(r.Errors, e) }
func (r *Report) addWarning(w ValidationWarning) { r.Warnings = append(r.Warnings, w) }

// Run validates every workflow discovered in reg, in path order for a
// deterministic report.
func Run(reg *workflowregistry.Registry) *Report {
	report := &Report{}
	referenced := map[string]bool{}

	for _, path := range reg.Paths() {
		wf, err := reg.Resolve(path)
		if err != nil {
			continue
		}
		validateWorkflow(path, wf, reg, report, referenced)
	}

	for _, wf := range reg.Reusable() {
		if !referenced[wf.Path] {
			report.addWarning(ValidationWarning{
				Code:     UnusedReusableWorkflow,
				Workflow: wf.Path,
				Detail:   "Reusable workflow is not referenced by any other workflow",
			})
		}
	}

	return report
}

func validateWorkflow(path string, wf *model.Workflow, reg *workflowregistry.Registry, report *Report, referenced map[string]bool) {
	if len(wf.Jobs) == 0 {
		report.addWarning(ValidationWarning{Code: EmptyWorkflow, Workflow: path, Detail: "Workflow has no jobs"})
		return
	}

	jobNames := map[string]bool{}
	for name := range wf.Jobs {
		jobNames[name] = true
	}

	for _, jobName := range sortedJobNames(wf) {
		job := wf.Jobs[jobName]
		validateJobDependencies(path, jobName, job, jobNames, report)

		if job.Uses != "" {
			validateJobUses(path, jobName, job.Uses, reg, report, referenced)
		} else if len(job.Steps) == 0 {
			report.addWarning(ValidationWarning{
				Code: JobWithNoSteps, Workflow: path, Job: jobName,
				Detail: fmt.Sprintf("Job '%s' has no steps and doesn't use a reusable workflow", jobName),
			})
		}

		validateStepIDs(path, jobName, job.Steps, report)
		validateJobOutputs(path, jobName, job.Outputs, job.Steps, report)
	}

	validateCircularDependencies(path, wf, report)
}

func sortedJobNames(wf *model.Workflow) []string {
	names := make([]string, 0, len(wf.Jobs))
	for n := range wf.Jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func validateJobDependencies(path, jobName string, job *model.Job, allJobs map[string]bool, report *Report) {
	needs, _, err := job.Needs()
	if err != nil {
		return
	}
	for _, dep := range needs {
		if !allJobs[dep] {
			report.addError(ValidationError{
				Code: JobDependencyNotFound, Workflow: path, Job: jobName,
				Detail: fmt.Sprintf("Job '%s' depends on non-existent job '%s'", jobName, dep),
			})
		}
	}
}

func validateJobUses(path, jobName, uses string, reg *workflowregistry.Registry, report *Report, referenced map[string]bool) {
	if !workflowregistry.IsFileRef(uses) {
		return
	}
	filePath, err := workflowregistry.ParseFileRef(uses)
	if err != nil {
		report.addError(ValidationError{
			Code: InvalidFileReference, Workflow: path, Job: jobName,
			Detail: fmt.Sprintf("Job '%s' has invalid file reference: '%s'", jobName, uses),
		})
		return
	}
	if _, err := reg.Resolve(filePath); err != nil {
		report.addError(ValidationError{
			Code: FileReferenceNotFound, Workflow: path, Job: jobName,
			Detail: fmt.Sprintf("Job '%s' references non-existent workflow '%s'", jobName, filePath),
		})
		return
	}
	referenced[filePath] = true
}

func validateStepIDs(path, jobName string, steps []*model.Step, report *Report) {
	seen := map[string]bool{}
	for i, step := range steps {
		if step.ID == "" {
			report.addWarning(ValidationWarning{
				Code: StepWithoutID, Workflow: path, Job: jobName,
				Detail: fmt.Sprintf("Job '%s' step %d ('%s') has no id - outputs won't be accessible", jobName, i, step.Uses),
			})
			continue
		}
		if seen[step.ID] {
			report.addError(ValidationError{
				Code: DuplicateStepId, Workflow: path, Job: jobName,
				Detail: fmt.Sprintf("Job '%s' has duplicate step id: '%s'", jobName, step.ID),
			})
		} else {
			seen[step.ID] = true
		}
	}
}

func validateJobOutputs(path, jobName string, outputs map[string]string, steps []*model.Step, report *Report) {
	stepIDs := map[string]bool{}
	for _, s := range steps {
		if s.ID != "" {
			stepIDs[s.ID] = true
		}
	}

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		expr := outputs[name]
		if stepRef, ok := extractStepReference(expr); ok && !stepIDs[stepRef] {
			report.addError(ValidationError{
				Code: InvalidOutputExpression, Workflow: path, Job: jobName,
				Detail: fmt.Sprintf("Job '%s' output '%s' has invalid expression '%s': references non-existent step id '%s'",
					jobName, name, expr, stepRef),
			})
		}
	}
}

func extractStepReference(expression string) (string, bool) {
	trimmed := strings.TrimSpace(expression)
	if !strings.HasPrefix(trimmed, "${{") || !strings.HasSuffix(trimmed, "}}") {
		return "", false
	}
	inner := strings.TrimSpace(trimmed[3 : len(trimmed)-2])
	if !strings.HasPrefix(inner, "steps.") {
		return "", false
	}
	rest := inner[len("steps."):]
	if dot := strings.Index(rest, "."); dot >= 0 {
		return rest[:dot], true
	}
	return "", false
}

func validateCircularDependencies(path string, wf *model.Workflow, report *Report) {
	_, err := scheduler.Order(wf)
	if err == nil {
		return
	}
	var stepflowErr *errs.Error
	if errors.As(err, &stepflowErr) && stepflowErr.Kind != errs.KindCircularDependency {
		// Already reported by validateJobDependencies as a more specific
		// error (a missing `needs` target); scheduler.Order surfaces the
		// same cause, not an independent cycle.
		return
	}
	report.addError(ValidationError{
		Code: CircularJobDependency, Workflow: path,
		Detail: fmt.Sprintf("Circular job dependency detected: %v", err),
	})
}
