// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

const (
	// AbortedExitCode marks a run, or a worker, stopped by a termination signal.
	AbortedExitCode = 127
	// FatalExitCode marks a worker that could not finish its chunk, e.g. the checker could not be started.
	FatalExitCode = 126
	// MaxCountExitCode is the largest error count representable as an exit status.
	MaxCountExitCode = 125
)

// Outcome is either a count of failing templates or Aborted.
// The zero value is Count(0).
type Outcome struct {
	errors  int
	aborted bool
}

// Count is an outcome with n failing templates.
func Count(n int) Outcome {
	return Outcome{errors: max(n, 0)}
}

// Aborted is the outcome of an interrupted run.
func Aborted() Outcome {
	return Outcome{aborted: true}
}

// Errors is the number of failing templates. It is 0 for Aborted.
func (o Outcome) Errors() int {
	return o.errors
}

// IsAborted reports whether the outcome is Aborted.
func (o Outcome) IsAborted() bool {
	return o.aborted
}

// Add folds other into o. Aborted dominates, counts add up.
func (o Outcome) Add(other Outcome) Outcome {
	if o.aborted || other.aborted {
		return Aborted()
	}

	return Count(o.errors + other.errors)
}

// Fold combines outcomes left to right with Add.
func Fold(outcomes ...Outcome) Outcome {
	var res Outcome
	for _, o := range outcomes {
		res = res.Add(o)
	}

	return res
}

// ExitCode is the status a process reports for the outcome.
// Counts above MaxCountExitCode are clamped so they never read as fatal or aborted.
func (o Outcome) ExitCode() int {
	if o.aborted {
		return AbortedExitCode
	}

	return min(o.errors, MaxCountExitCode)
}

// ExitCode is the status for a finished run: the outcome's own code,
// or FatalExitCode when the run hit err without finding any syntax errors.
func ExitCode(o Outcome, err error) int {
	code := o.ExitCode()
	if code == 0 && err != nil {
		return FatalExitCode
	}

	return code
}

// fromExitStatus reads a worker's exit status. Termination by a signal (-1) counts as aborted.
func fromExitStatus(code int) Outcome {
	switch {
	case code == AbortedExitCode, code < 0:
		return Aborted()
	default:
		return Count(code)
	}
}
