// Package errs defines the typed error taxonomy shared across stepflow's
// components. Every fallible operation in the engine returns one of these
// kinds (or wraps one via github.com/pkg/errors) rather than a bare error,
// so callers can branch on failure shape with errors.As.
package errs

import "fmt"

// Kind identifies the semantic category of a stepflow error.
type Kind int

const (
	KindStepNotFound Kind = iota
	KindArgs
	KindExpression
	KindAssertion
	KindIO
	KindYAMLParse
	KindJSONParse
	KindWorkflowNotFound
	KindJobNotFound
	KindInvalidFileRef
	KindCircularDependency
	KindJobDependencyNotFound
	KindEnvVar
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindStepNotFound:
		return "StepNotFound"
	case KindArgs:
		return "Args"
	case KindExpression:
		return "Expression"
	case KindAssertion:
		return "Assertion"
	case KindIO:
		return "Io"
	case KindYAMLParse:
		return "YamlParse"
	case KindJSONParse:
		return "JsonParse"
	case KindWorkflowNotFound:
		return "WorkflowNotFound"
	case KindJobNotFound:
		return "JobNotFound"
	case KindInvalidFileRef:
		return "InvalidFileRef"
	case KindCircularDependency:
		return "CircularDependency"
	case KindJobDependencyNotFound:
		return "JobDependencyNotFound"
	case KindEnvVar:
		return "EnvVar"
	case KindCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carried by stepflow. Most call sites
// construct one through the per-kind constructor functions below rather
// than this struct directly.
type Error struct {
	Kind Kind
	// Msg is the human-readable message; for kinds that carry a single
	// identifying value (step name, workflow path, job name...) it already
	// has that value interpolated.
	Msg string
	// Err is an optional wrapped cause, set when this Error decorates a
	// lower-level failure (e.g. KindYAMLParse wrapping a yaml.v3 error).
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &errs.Error{Kind: errs.KindExpression}) style
// kind checks: any *Error target matches when its Kind equals e.Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func StepNotFound(name string) *Error {
	return newf(KindStepNotFound, "step %q is not registered", name)
}

func Args(msg string) *Error { return newf(KindArgs, "%s", msg) }

func Expression(offending string) *Error {
	return newf(KindExpression, "could not evaluate expression: %q", offending)
}

func Assertion(msg string) *Error { return newf(KindAssertion, "%s", msg) }

func IO(err error) *Error { return wrapf(KindIO, err, "i/o error") }

func YAMLParse(err error) *Error { return wrapf(KindYAMLParse, err, "could not parse yaml") }

func JSONParse(err error) *Error { return wrapf(KindJSONParse, err, "could not parse json") }

func WorkflowNotFound(path string) *Error {
	return newf(KindWorkflowNotFound, "no workflow registered at %q", path)
}

func JobNotFound(name string) *Error {
	return newf(KindJobNotFound, "no job named %q", name)
}

func InvalidFileRef(s string) *Error {
	return newf(KindInvalidFileRef, "invalid @file: reference: %q", s)
}

func CircularDependency(chain []string) *Error {
	return newf(KindCircularDependency, "circular job dependency: %s", formatChain(chain))
}

func JobDependencyNotFound(job, dep string) *Error {
	return newf(KindJobDependencyNotFound, "job %q needs undefined job %q", job, dep)
}

func EnvVar(name string) *Error {
	return newf(KindEnvVar, "environment variable %q is not set", name)
}

func Custom(msg string) *Error { return newf(KindCustom, "%s", msg) }

func Customf(format string, args ...any) *Error { return newf(KindCustom, format, args...) }

func formatChain(chain []string) string {
	out := ""
	for i, c := range chain {
		if i > 0 {
			out += " -> "
		}
		out += c
	}
	return out
}
