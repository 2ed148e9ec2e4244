// Package matrix expands a strategy.matrix declaration into the list of
// row combinations a job runs (spec.md §4.D). It is grounded on
// github.com/nektos/act's model.Job.GetMatrixes/commonKeysMatch (in
// pkg/model/workflow.go): split include/exclude out of the dimension map,
// cartesian product the remainder, drop any row an exclude entry matches,
// then append includes verbatim. act intersects non-existing exclude keys
// as a hard parse error; spec.md §4.D instead treats a missing key as "no
// match" (an exclude can never drop a row it doesn't fully describe).
package matrix

import (
	"fmt"
	"sort"

	"github.com/stepflow/stepflow/pkg/model"
	"github.com/stepflow/stepflow/pkg/value"
)

// Row is one expanded combination: dimension key -> chosen value.
type Row map[string]any

// Expand implements spec.md §4.D's five-step algorithm.
func Expand(m model.Matrix) []Row {
	if len(m.Dimensions) == 0 && len(m.Include) == 0 {
		return []Row{{}}
	}

	rows := cartesianProduct(m.Dimensions)

	kept := make([]Row, 0, len(rows))
	for _, row := range rows {
		excluded := false
		for _, ex := range m.Exclude {
			if matchesExclude(row, ex) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, row)
		}
	}

	for _, inc := range m.Include {
		kept = append(kept, Row(inc))
	}

	if len(kept) == 0 {
		return []Row{{}}
	}
	return kept
}

// matchesExclude reports whether every key in ex equals the same-named
// key in row; a key absent from row means no match (spec.md §4.D step 3).
func matchesExclude(row Row, ex map[string]any) bool {
	if len(ex) == 0 {
		return false
	}
	for k, v := range ex {
		rv, ok := row[k]
		if !ok || !value.Equal(rv, v) {
			return false
		}
	}
	return true
}

// cartesianProduct enumerates every combination of the given dimensions.
// Dimension keys are visited in sorted order so repeated calls on the
// same input are stable (spec.md §4.D step 2 requires stability, not any
// particular cross-dimension order).
func cartesianProduct(dims map[string][]any) []Row {
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := []Row{{}}
	for _, k := range keys {
		values := dims[k]
		next := make([]Row, 0, len(rows)*len(values))
		for _, row := range rows {
			for _, v := range values {
				r := make(Row, len(row)+1)
				for rk, rv := range row {
					r[rk] = rv
				}
				r[k] = v
				next = append(next, r)
			}
		}
		rows = next
	}
	return rows
}

// FormatRow renders a matrix row as the log suffix spec.md §4.D
// describes: "[k1=v1, k2=v2, …]" with keys sorted and values formatted
// canonically.
func FormatRow(row Row) string {
	if len(row) == 0 {
		return ""
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := "["
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%s", k, value.FormatScalar(row[k]))
	}
	return out + "]"
}
