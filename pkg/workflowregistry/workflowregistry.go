// Package workflowregistry discovers workflow YAML files under a root
// directory and keeps them in a path-keyed in-memory catalog (spec.md
// §4.F). The recursive-discovery shell is grounded on the legacy
// actions/parser.go (ParseWorkflows's absolute-path resolution and
// directory walk), with its HCL decode swapped for pkg/model's YAML
// decode and its single-file assumption widened to a directory.
package workflowregistry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/stepflow/stepflow/pkg/errs"
	"github.com/stepflow/stepflow/pkg/model"
)

// fileRefPrefix is the prefix a `uses:` value carries when it names a
// reusable workflow in another file rather than a registered step
// (spec.md §4.F "cross-workflow composition").
const fileRefPrefix = "@file:"

// IsFileRef reports whether uses names a sub-workflow file rather than a
// registered step callable.
func IsFileRef(uses string) bool {
	return strings.HasPrefix(uses, fileRefPrefix)
}

// ParseFileRef returns the relative workflow path a `@file:<path>`
// reference names. The suffix is returned verbatim, with no further
// splitting, so parsing round-trips for any non-empty suffix (spec.md
// §8 invariant 9: `parse_file_ref("@file:" + s) == Ok(s)`), including
// one containing "#".
func ParseFileRef(uses string) (path string, err error) {
	if !IsFileRef(uses) {
		return "", errs.InvalidFileRef(uses)
	}
	rest := strings.TrimPrefix(uses, fileRefPrefix)
	if rest == "" {
		return "", errs.InvalidFileRef(uses)
	}
	return rest, nil
}

// entry pairs a discovered workflow with the root-relative path it was
// loaded from, the key the catalog and `@file:` references use.
type entry struct {
	path     string
	workflow *model.Workflow
}

// Registry is the in-memory catalog of every workflow discovered under
// a root directory, keyed by its path relative to that root.
type Registry struct {
	root    string
	entries map[string]entry
	order   []string
}

// Discover walks root for `*.yaml`/`*.yml` files (skipping anything
// matched by a `.workflowignore` file at the root, when present, using
// gitignore-style patterns) and parses each one into the catalog.
func Discover(root string) (*Registry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.IO(err)
	}

	ignore := loadIgnore(absRoot)

	r := &Registry{root: absRoot, entries: map[string]entry{}}

	matches, err := doublestar.Glob(os.DirFS(absRoot), "**/*.{yaml,yml}")
	if err != nil {
		return nil, errs.IO(err)
	}
	sort.Strings(matches)

	for _, rel := range matches {
		if ignore != nil && ignore.MatchesPath(rel) {
			continue
		}
		if err := r.load(rel); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func loadIgnore(root string) *gitignore.GitIgnore {
	path := filepath.Join(root, ".workflowignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ig, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return ig
}

func (r *Registry) load(rel string) error {
	f, err := os.Open(filepath.Join(r.root, rel))
	if err != nil {
		return errs.IO(err)
	}
	defer f.Close()

	wf, err := model.ReadWorkflow(f)
	if err != nil {
		return err
	}
	wf.Path = rel

	key := normalizeKey(rel)
	r.entries[key] = entry{path: rel, workflow: wf}
	r.order = append(r.order, key)
	return nil
}

func normalizeKey(rel string) string {
	return filepath.ToSlash(rel)
}

// Resolve returns the workflow registered at path (relative to the
// discovery root, as it would appear after an `@file:` prefix).
func (r *Registry) Resolve(path string) (*model.Workflow, error) {
	e, ok := r.entries[normalizeKey(path)]
	if !ok {
		return nil, errs.WorkflowNotFound(path)
	}
	return e.workflow, nil
}

// Paths returns every discovered workflow path, sorted, for deterministic
// iteration (validation reports, CLI listing).
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.entries))
	for k := range r.entries {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

// Runnable returns every discovered workflow that is not reusable-only,
// i.e. callable directly rather than only via `@file:` + workflow_call.
func (r *Registry) Runnable() []*model.Workflow {
	var out []*model.Workflow
	for _, p := range r.Paths() {
		wf := r.entries[p].workflow
		if !wf.IsReusable() {
			out = append(out, wf)
		}
	}
	return out
}

// Reusable returns every discovered workflow declaring `on.workflow_call`.
func (r *Registry) Reusable() []*model.Workflow {
	var out []*model.Workflow
	for _, p := range r.Paths() {
		wf := r.entries[p].workflow
		if wf.IsReusable() {
			out = append(out, wf)
		}
	}
	return out
}

// Len reports how many workflows were discovered.
func (r *Registry) Len() int { return len(r.entries) }
