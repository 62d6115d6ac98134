// Package vberrors defines the typed, user-facing error kinds raised by the
// build core. Every kind embeds CoreError so callers can use errors.As to
// recover structured detail (context, suggestion, underlying cause) from any
// failure without string-matching messages.
package vberrors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorization.
const (
	CodeInvalidArchive      = "INVALID_ARCHIVE"
	CodeSpecParse           = "SPEC_PARSE"
	CodeNameResolution      = "NAME_RESOLUTION"
	CodeArchiveNotFound     = "ARCHIVE_NOT_FOUND"
	CodeCircularDependency  = "CIRCULAR_DEPENDENCY"
	CodeHubConnection       = "HUB_CONNECTION"
	CodeHubBuild            = "HUB_BUILD"
)

// HubBuildKind distinguishes the ways a hub build can fail.
type HubBuildKind string

const (
	HubBuildSubmitFailed HubBuildKind = "submit-failed"
	HubBuildTaskFailed   HubBuildKind = "task-failed"
	HubBuildTimeout      HubBuildKind = "timeout"
	HubBuildCanceled     HubBuildKind = "canceled"
)

// CoreError is a user-friendly error carrying a stable code, an actionable
// suggestion, and an optional wrapped cause.
type CoreError struct {
	Code       string
	Message    string
	Context    string
	Suggestion string
	Underlying error
}

func (e *CoreError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (%s)", e.Context)
	}
	return b.String()
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *CoreError) Unwrap() error { return e.Underlying }

// Is compares error codes so errors.Is(err, &CoreError{Code: CodeX}) works.
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithContext returns a copy of e with Context set.
func (e *CoreError) WithContext(ctx string) *CoreError {
	c := *e
	c.Context = ctx
	return &c
}

// WithSuggestion returns a copy of e with Suggestion set.
func (e *CoreError) WithSuggestion(s string) *CoreError {
	c := *e
	c.Suggestion = s
	return &c
}

// WithUnderlying returns a copy of e wrapping err.
func (e *CoreError) WithUnderlying(err error) *CoreError {
	c := *e
	c.Underlying = err
	return &c
}

// InvalidArchiveError: archive is missing, malformed, or not a source-RPM.
type InvalidArchiveError struct{ *CoreError }

func NewInvalidArchiveError(path string, cause error) *InvalidArchiveError {
	return &InvalidArchiveError{&CoreError{
		Code:       CodeInvalidArchive,
		Message:    fmt.Sprintf("not a readable source RPM: %s", path),
		Context:    path,
		Suggestion: "Verify the path points at a .src.rpm produced by rpmbuild -bs.",
		Underlying: cause,
	}}
}

// SpecParseError: required header absent or unparseable.
type SpecParseError struct{ *CoreError }

func NewSpecParseError(reason string, cause error) *SpecParseError {
	return &SpecParseError{&CoreError{
		Code:       CodeSpecParse,
		Message:    reason,
		Suggestion: "Check that the spec defines both Name and Version headers.",
		Underlying: cause,
	}}
}

// NameResolutionError: canonicalization pipeline exhausted with no result.
type NameResolutionError struct{ *CoreError }

func NewNameResolutionError(token string) *NameResolutionError {
	return &NameResolutionError{&CoreError{
		Code:       CodeNameResolution,
		Message:    fmt.Sprintf("could not resolve dependency token %q to a package name", token),
		Context:    token,
		Suggestion: "Enable rules+ml name resolution or extend the virtual-provide table.",
	}}
}

// ArchiveNotFoundError: every (candidate name x source) combination failed.
type ArchiveNotFoundError struct {
	*CoreError
	Attempted []string
}

func NewArchiveNotFoundError(packageName string, attempted []string) *ArchiveNotFoundError {
	return &ArchiveNotFoundError{
		CoreError: &CoreError{
			Code:       CodeArchiveNotFound,
			Message:    fmt.Sprintf("no source archive found for %s", packageName),
			Suggestion: "Check that the package exists upstream, or add another archive source.",
		},
		Attempted: attempted,
	}
}

// CircularDependencyError: DAG construction left nodes with in-degree > 0.
type CircularDependencyError struct {
	*CoreError
	Cycle []string
}

func NewCircularDependencyError(cycle []string) *CircularDependencyError {
	sorted := append([]string(nil), cycle...)
	return &CircularDependencyError{
		CoreError: &CoreError{
			Code:       CodeCircularDependency,
			Message:    fmt.Sprintf("circular dependency detected: %s", strings.Join(sorted, " -> ")),
			Suggestion: "Break the cycle by removing one of the listed BuildRequires.",
		},
		Cycle: sorted,
	}
}

// HubConnectionError: hub CLI absent, transport failure, or auth failure.
type HubConnectionError struct{ *CoreError }

func NewHubConnectionError(reason string, cause error) *HubConnectionError {
	return &HubConnectionError{&CoreError{
		Code:       CodeHubConnection,
		Message:    reason,
		Suggestion: "Verify the hub CLI is installed and credentials are configured.",
		Underlying: cause,
	}}
}

// HubBuildError: the hub reported a non-successful outcome.
type HubBuildError struct {
	*CoreError
	Kind HubBuildKind
}

func NewHubBuildError(kind HubBuildKind, reason string, cause error) *HubBuildError {
	return &HubBuildError{
		CoreError: &CoreError{
			Code:       CodeHubBuild,
			Message:    reason,
			Underlying: cause,
		},
		Kind: kind,
	}
}

// GetCoreError extracts the embedded CoreError from any error in the chain.
func GetCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}
