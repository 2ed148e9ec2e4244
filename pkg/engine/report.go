package engine

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/sirupsen/logrus"

	"github.com/stepflow/stepflow/pkg/matrix"
)

// report renders the run's tree-style summary through logrus: one line
// per workflow, one per job (with its matrix row when present), one per
// step, each carrying a glyph for its outcome.
func (e *Engine) report(result *RunResult) {
	width := terminalWidth()
	e.Log.WithFields(logrus.Fields{"session": result.SessionID}).Info("run summary")

	for _, wr := range result.Workflows {
		e.Log.WithField("width", width).Infof("%s %s", statusGlyph(wr.Failed), wr.Name)
		if wr.Err != nil {
			e.Log.Infof("  %v", wr.Err)
			continue
		}
		for _, jr := range wr.Jobs {
			label := jr.Name
			if len(jr.Row) > 0 {
				label = jr.Name + " " + matrix.FormatRow(jr.Row)
			}
			e.Log.Infof("  %s %s", statusGlyph(jr.Failed), label)
			if jr.Err != nil {
				e.Log.Infof("    %v", jr.Err)
			}
			for _, sr := range jr.Steps {
				e.Log.Infof("    %s %s: %s", stepGlyph(sr.Status), sr.Name, sr.Status)
			}
		}
	}
}

func statusGlyph(failed bool) string {
	if failed {
		return "✗"
	}
	return "✓"
}

func stepGlyph(status StepStatus) string {
	switch status {
	case StepFailed:
		return "✗"
	case StepSkipped:
		return "○"
	default:
		return "✓"
	}
}

// isTerminal reports whether stdout is attached to a terminal, deciding
// whether the report should assume a fixed fallback width.
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func terminalWidth() int {
	if !isTerminal() {
		return 80
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
