// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package builderrors provides the structured error type shared by every
// stage of the build orchestration engine.
//
// No stage panics or calls os.Exit: every public operation returns a
// *BuildError (or nil) as a normal value, which the Pipeline Driver
// accumulates into a Job report. BuildError carries a stable Kind so
// callers can branch on failure category without string matching, plus
// human-facing Message/Cause/Fix fields in the same shape the CLI layer
// expects to render.
package builderrors

import (
	"errors"
	"fmt"
)

// Kind identifies the failure category of a BuildError.
type Kind string

const (
	// InputNotFound is raised by job validation and by the Dependency
	// Analyzer when the entry file is absent or unreadable. The Pipeline
	// reports a missing input as a failed Report instead.
	InputNotFound Kind = "input_not_found"

	// NoToolAvailable is raised by a Scheduler when no candidate backend
	// exists for the requested stage.
	NoToolAvailable Kind = "no_tool_available"

	// ProbeTimeout is raised internally by the Tool Registry's probe
	// call. It never escapes the registry: callers observe an
	// unavailable descriptor instead.
	ProbeTimeout Kind = "probe_timeout"

	// ParseError is raised by job validation when a Spec field is out of
	// range or not recognised. A source file the Dependency Analyzer
	// cannot parse is reported as a graph Warning, not as this Kind.
	ParseError Kind = "parse_error"

	// TraceFailure is not raised by any stage: a failed or timed-out
	// dynamic pass is reported as a Dependency Analyzer Warning, and the
	// static pass's result is still returned.
	TraceFailure Kind = "trace_failure"

	// SubprocessFailure is raised by a Scheduler when the invoked tool
	// exits non-zero.
	SubprocessFailure Kind = "subprocess_failure"

	// Timeout is raised by a Scheduler when a tool subprocess exceeds
	// its stage deadline. Observationally identical to
	// SubprocessFailure except for the error text.
	Timeout Kind = "timeout"

	// ArtifactNotFound is raised by a Scheduler when a tool exits zero
	// but its locator finds no matching output.
	ArtifactNotFound Kind = "artifact_not_found"

	// Cancelled is not raised by any stage: the Pipeline reports a job
	// whose context is cancelled mid-stage through Report.Cancelled,
	// distinct from a plain failure.
	Cancelled Kind = "cancelled"
)

// BuildError is the structured error value returned from stage
// boundaries. It never crosses those boundaries as a panic.
type BuildError struct {
	// Kind is the stable, switchable failure category.
	Kind Kind

	// Message describes what went wrong in user-facing language.
	Message string

	// Cause explains why, when known (e.g. captured stderr tail).
	Cause string

	// Fix suggests a remedy, when one exists.
	Fix string

	// Err wraps the underlying error, if any, for errors.Is/As chains.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap enables errors.Is/errors.As against the wrapped error.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// New constructs a BuildError of the given kind.
func New(kind Kind, message string, err error) *BuildError {
	return &BuildError{Kind: kind, Message: message, Err: err}
}

// Newf constructs a BuildError with a formatted message.
func Newf(kind Kind, err error, format string, args ...any) *BuildError {
	return &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithCause returns a copy of e with Cause set.
func (e *BuildError) WithCause(cause string) *BuildError {
	out := *e
	out.Cause = cause
	return &out
}

// WithFix returns a copy of e with Fix set.
func (e *BuildError) WithFix(fix string) *BuildError {
	out := *e
	out.Fix = fix
	return &out
}

// Is reports whether err is a *BuildError of the given kind.
func Is(err error, kind Kind) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}
