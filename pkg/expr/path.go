package expr

import (
	"strconv"
	"strings"

	"github.com/stepflow/stepflow/pkg/errs"
)

// evalPath dispatches a bare identifier path against ctx (spec.md §4.B
// "Path access forms"):
//
//	env.<NAME>
//	steps.<ID>.outputs[.<KEY>...]
//	containers.<NAME>.{url|host|port}
//	needs.<JOB>.outputs[.<KEY>...]
//	jobs.<JOB>.outputs[.<KEY>...]
//	matrix.<KEY>
//	outputs[.<KEY>...]
func evalPath(path string, ctx *Context) (any, error) {
	segs := strings.Split(path, ".")
	if len(segs) == 0 || segs[0] == "" {
		return nil, errs.Expression(path)
	}

	switch segs[0] {
	case "env":
		if len(segs) != 2 {
			return nil, errs.Expression(path)
		}
		v, ok := ctx.Env[segs[1]]
		if !ok {
			return nil, errs.EnvVar(segs[1])
		}
		return v, nil

	case "steps":
		if len(segs) < 3 || segs[2] != "outputs" {
			return nil, errs.Expression(path)
		}
		out, ok := ctx.Steps[segs[1]]
		if !ok {
			return nil, errs.StepNotFound(segs[1])
		}
		return descend(out, segs[3:], path)

	case "containers":
		if len(segs) != 3 {
			return nil, errs.Expression(path)
		}
		info, ok := ctx.Containers[segs[1]]
		if !ok {
			return nil, errs.Customf("container %q not found", segs[1])
		}
		switch segs[2] {
		case "url":
			return info.URL, nil
		case "host":
			return info.Host, nil
		case "port":
			return float64(info.Port), nil
		default:
			return nil, errs.Expression(path)
		}

	case "needs":
		if len(segs) < 3 || segs[2] != "outputs" {
			return nil, errs.Expression(path)
		}
		out, ok := ctx.Needs[segs[1]]
		if !ok {
			return nil, errs.JobNotFound(segs[1])
		}
		return descend(out, segs[3:], path)

	case "jobs":
		if len(segs) < 3 || segs[2] != "outputs" {
			return nil, errs.Expression(path)
		}
		out, ok := ctx.Jobs[segs[1]]
		if !ok {
			return nil, errs.JobNotFound(segs[1])
		}
		return descend(out, segs[3:], path)

	case "matrix":
		if len(segs) != 2 {
			return nil, errs.Expression(path)
		}
		v, ok := ctx.Matrix[segs[1]]
		if !ok {
			return nil, errs.Customf("matrix key %q not found", segs[1])
		}
		return v, nil

	case "outputs":
		return descend(ctx.Outputs, segs[1:], path)

	default:
		return nil, errs.Expression(path)
	}
}

// descend walks a chain of map/array accessors rooted at v. A purely
// numeric segment indexes into a []any; any other segment indexes into
// a map[string]any.
func descend(v any, segs []string, fullPath string) (any, error) {
	cur := v
	for _, seg := range segs {
		if seg == "" {
			return nil, errs.Expression(fullPath)
		}
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[seg]
			if !ok {
				return nil, errs.Customf("key %q not found in %s", seg, fullPath)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, errs.Customf("index %q out of range in %s", seg, fullPath)
			}
			cur = c[idx]
		default:
			return nil, errs.Customf("cannot index into scalar at %s", fullPath)
		}
	}
	return cur, nil
}
