// Package model implements the stepflow document model: the typed
// Workflow/Job/Step tree produced by parsing a workflow YAML file, and the
// shape rules spec.md §4.C imposes while decoding it. It is grounded on
// github.com/nektos/act's pkg/model/workflow.go, which uses the same
// yaml.Node-raw-field + Kind-switch trick for fields that accept either a
// scalar or a sequence (there: `on`, `needs`, `runs-on`; here: `needs`).
package model

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/stepflow/stepflow/pkg/errs"
)

// Workflow is the structure of one workflow YAML document (spec.md §3).
type Workflow struct {
	Name string            `yaml:"name"`
	On   *Trigger          `yaml:"on"`
	Env  map[string]string `yaml:"env"`
	Jobs map[string]*Job   `yaml:"jobs"`
	// Path is the key this workflow is registered under (relative to the
	// workflows root), set by the directory loader rather than decoded
	// from YAML.
	Path string `yaml:"-"`
}

// Trigger is the optional `on` block. A workflow is reusable iff
// WorkflowCall is non-nil (spec.md §3 invariant: "A workflow is reusable
// iff trigger.workflow_call is present").
type Trigger struct {
	WorkflowCall *WorkflowCall `yaml:"workflow_call"`
}

// WorkflowCall declares the inputs/outputs contract of a reusable
// workflow.
type WorkflowCall struct {
	Inputs  map[string]any        `yaml:"inputs"`
	Outputs map[string]*OutputDef `yaml:"outputs"`
}

// OutputDef is one entry of workflow_call.outputs: an expression
// evaluated in the reusable workflow's final context (spec.md §3).
type OutputDef struct {
	Description string `yaml:"description"`
	Value       string `yaml:"value"`
}

// IsReusable reports whether this workflow may only be invoked via
// `@file:` (spec.md §3 invariant 6's counterpart: reusable workflows are
// never top-level executed).
func (w *Workflow) IsReusable() bool {
	return w.On != nil && w.On.WorkflowCall != nil
}

// Job is one entry of a workflow's `jobs` map (spec.md §3).
type Job struct {
	Name     string            `yaml:"name"`
	RawNeeds yaml.Node         `yaml:"needs"`
	Uses     string            `yaml:"uses"`
	With     map[string]any    `yaml:"with"`
	Strategy *Strategy         `yaml:"strategy"`
	Outputs  map[string]string `yaml:"outputs"`
	Env      map[string]string `yaml:"env"`
	Steps    []*Step           `yaml:"steps"`
}

// JobNeedsKind tags the normalized shape of a job's `needs` field.
type JobNeedsKind int

const (
	NeedsNone JobNeedsKind = iota
	NeedsSingle
	NeedsMultiple
)

// Needs decodes the raw `needs` YAML node into the normalized
// JobNeedsKind + ordered-list shape spec.md §3 describes: a bare scalar
// becomes Single, a sequence becomes Multiple, and an absent field
// becomes None. Both Single and Multiple flatten to the same ordered
// []string for callers (the scheduler never cares which kind it was).
func (j *Job) Needs() ([]string, JobNeedsKind, error) {
	switch j.RawNeeds.Kind {
	case 0:
		return nil, NeedsNone, nil
	case yaml.ScalarNode:
		var v string
		if err := j.RawNeeds.Decode(&v); err != nil {
			return nil, NeedsNone, errs.YAMLParse(err)
		}
		return []string{v}, NeedsSingle, nil
	case yaml.SequenceNode:
		var v []string
		if err := j.RawNeeds.Decode(&v); err != nil {
			return nil, NeedsNone, errs.YAMLParse(err)
		}
		return v, NeedsMultiple, nil
	default:
		return nil, NeedsNone, errs.Customf("needs: unsupported yaml node kind %v", j.RawNeeds.Kind)
	}
}

// Strategy is a job's `strategy` block (spec.md §3). FailFast defaults
// to true; MaxParallel is parsed but never enforced (spec.md §5).
type Strategy struct {
	Matrix      Matrix `yaml:"matrix"`
	FailFast    *bool  `yaml:"fail-fast"`
	MaxParallel *int   `yaml:"max-parallel"`
}

// GetFailFast returns the effective fail-fast value, defaulting to true
// when the job didn't set one (spec.md §4.C).
func (s *Strategy) GetFailFast() bool {
	if s == nil || s.FailFast == nil {
		return true
	}
	return *s.FailFast
}

// Matrix is a job's `strategy.matrix` block. UnmarshalYAML splits the
// fixed `include`/`exclude` keys out of the free-form dimension map,
// mirroring act's model.Job.Matrix()/GetMatrixes() split.
type Matrix struct {
	Dimensions map[string][]any
	Include    []map[string]any
	Exclude    []map[string]any
}

func (m *Matrix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == 0 {
		return nil
	}
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	m.Dimensions = map[string][]any{}
	for k, v := range raw {
		switch k {
		case "include":
			m.Include = toMapSlice(v)
		case "exclude":
			m.Exclude = toMapSlice(v)
		default:
			if list, ok := v.([]any); ok {
				m.Dimensions[k] = list
			} else {
				m.Dimensions[k] = []any{v}
			}
		}
	}
	return nil
}

func toMapSlice(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Step is one entry of a job's `steps` list (spec.md §3). Uses is
// required: it is either a `@file:`-prefixed cross-workflow reference
// (only valid at the job level in this spec) or a step-registry name.
type Step struct {
	Name            string         `yaml:"name"`
	ID              string         `yaml:"id"`
	Uses            string         `yaml:"uses"`
	With            map[string]any `yaml:"with"`
	ContinueOnError bool           `yaml:"continue-on-error"`
	PreAssert       []string       `yaml:"pre-assert"`
	PostAssert      []string       `yaml:"post-assert"`
}

// String returns a display name for logging, preferring Name then ID
// then Uses, the same fallback chain as act's Step.String().
func (s *Step) String() string {
	if s.Name != "" {
		return s.Name
	}
	if s.ID != "" {
		return s.ID
	}
	return s.Uses
}

// ReadWorkflow decodes a single workflow document from r (spec.md §4.C).
func ReadWorkflow(r io.Reader) (*Workflow, error) {
	w := new(Workflow)
	if err := yaml.NewDecoder(r).Decode(w); err != nil {
		return nil, errs.YAMLParse(err)
	}
	if w.Name == "" {
		return nil, errs.Customf("workflow is missing required field 'name'")
	}
	return w, nil
}

// Validate checks the structural invariants spec.md §3 lists as hard
// errors rather than validator warnings: unique job names are guaranteed
// by the map itself, but step id uniqueness within a job is not.
func (w *Workflow) Validate() error {
	for jobName, job := range w.Jobs {
		seen := map[string]bool{}
		for _, step := range job.Steps {
			if step.ID == "" {
				continue
			}
			if seen[step.ID] {
				return errs.Customf("job %q: duplicate step id %q", jobName, step.ID)
			}
			seen[step.ID] = true
		}
		if len(job.Steps) == 0 && job.Uses == "" {
			return errs.Customf("job %q: must declare steps or uses", jobName)
		}
	}
	return nil
}

// JobIDs returns the workflow's job keys (no ordering guarantee; callers
// needing determinism use pkg/scheduler).
func (w *Workflow) JobIDs() []string {
	ids := make([]string, 0, len(w.Jobs))
	for id := range w.Jobs {
		ids = append(ids, id)
	}
	return ids
}
