// Package scheduler orders a workflow's jobs by their `needs`
// dependencies (spec.md §4.G) using Kahn's algorithm, the standard
// topological-sort shape used anywhere a DAG needs a deterministic,
// cycle-detecting linearization.
package scheduler

import (
	"sort"

	"github.com/stepflow/stepflow/pkg/errs"
	"github.com/stepflow/stepflow/pkg/model"
)

// Order returns the job names of wf in an order where every job appears
// after all the jobs it needs. Ties (jobs with no remaining dependency
// once ready) are broken by ascending job name, so the same workflow
// always schedules identically (spec.md invariant on scheduling
// determinism).
func Order(wf *model.Workflow) ([]string, error) {
	indegree := map[string]int{}
	dependents := map[string][]string{}

	for name := range wf.Jobs {
		indegree[name] = 0
	}

	for name, job := range wf.Jobs {
		needs, _, err := job.Needs()
		if err != nil {
			return nil, err
		}
		for _, dep := range needs {
			if _, ok := wf.Jobs[dep]; !ok {
				return nil, errs.JobDependencyNotFound(name, dep)
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		var newlyReady []string
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				newlyReady = append(newlyReady, dep)
			}
		}
		sort.Strings(newlyReady)
		ready = append(ready, newlyReady...)
	}

	if len(order) != len(wf.Jobs) {
		return nil, errs.CircularDependency(cyclePath(wf, order))
	}
	return order, nil
}

// cyclePath walks the `needs` edges among the jobs left unscheduled
// after the topological sort stalls and returns the actual cycle it
// finds, as a chain of job names ending with a repeat of its own start
// (e.g. []string{"a", "b", "c", "a"}), per spec.md §4.A/§4.G and §8
// invariant 3 / scenario S4.
func cyclePath(wf *model.Workflow, scheduled []string) []string {
	done := map[string]bool{}
	for _, s := range scheduled {
		done[s] = true
	}
	remaining := map[string]bool{}
	var names []string
	for name := range wf.Jobs {
		if !done[name] {
			remaining[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)

	adj := map[string][]string{}
	for _, name := range names {
		needs, _, err := wf.Jobs[name].Needs()
		if err != nil {
			continue
		}
		for _, dep := range needs {
			if remaining[dep] {
				adj[name] = append(adj[name], dep)
			}
		}
		sort.Strings(adj[name])
	}

	onStack := map[string]int{}
	var path []string

	var dfs func(node string) []string
	dfs = func(node string) []string {
		if idx, ok := onStack[node]; ok {
			cycle := append([]string{}, path[idx:]...)
			return append(cycle, node)
		}
		onStack[node] = len(path)
		path = append(path, node)
		for _, next := range adj[node] {
			if cycle := dfs(next); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		delete(onStack, node)
		return nil
	}

	for _, name := range names {
		if cycle := dfs(name); cycle != nil {
			return cycle
		}
	}
	return names
}
