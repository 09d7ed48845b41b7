// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the repolens service.
//
// It defines ServiceError, a type that carries an error kind from the
// service taxonomy along with what went wrong, why it happened, and how to
// fix it. Kinds map to HTTP status codes at the API boundary.
//
// Creating and surfacing errors:
//
//	err := errors.NewRepositoryUnavailable("octocat/hello-world", underlyingErr)
//	...
//	se := errors.AsService(err)
//	w.WriteHeader(se.HTTPStatus())
//	json.NewEncoder(w).Encode(se.ToJSON())
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Kind identifies a category in the service error taxonomy.
type Kind int

const (
	// KindInternal is the catch-all for unexpected failures. Internal
	// detail is logged but never surfaced to callers.
	KindInternal Kind = iota

	// KindRepositoryUnavailable means both authentication tiers failed to
	// reach the repository (not found or inaccessible).
	KindRepositoryUnavailable

	// KindPathNotFound means an explicitly requested subpath does not
	// exist in the repository.
	KindPathNotFound

	// KindEncodingUndetermined means text encoding detection failed or
	// produced a low-confidence result.
	KindEncodingUndetermined

	// KindContentProcessingFailed means decoding or slicing file content
	// failed after a successful fetch.
	KindContentProcessingFailed

	// KindDirectoryNotFile means file content was requested at a path
	// that resolves to a directory.
	KindDirectoryNotFile

	// KindProjectNotFound means no project exists for the given identity.
	KindProjectNotFound

	// KindInvalidInput means the request itself was malformed.
	KindInvalidInput
)

// String returns the stable wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRepositoryUnavailable:
		return "repository_unavailable"
	case KindPathNotFound:
		return "path_not_found"
	case KindEncodingUndetermined:
		return "encoding_undetermined"
	case KindContentProcessingFailed:
		return "content_processing_failed"
	case KindDirectoryNotFile:
		return "directory_not_file"
	case KindProjectNotFound:
		return "project_not_found"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal_error"
	}
}

// ServiceError represents an error with structured context.
//
// It provides three levels of information:
//   - Message: what went wrong (caller-facing description)
//   - Cause: why it happened (diagnostic information)
//   - Fix: how to resolve it (actionable suggestion)
//
// ServiceError optionally wraps an underlying error for compatibility
// with errors.Is/As chains.
type ServiceError struct {
	Kind    Kind
	Message string
	Cause   string
	Fix     string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to an HTTP status code.
func (e *ServiceError) HTTPStatus() int {
	switch e.Kind {
	case KindRepositoryUnavailable, KindPathNotFound, KindProjectNotFound:
		return http.StatusNotFound
	case KindEncodingUndetermined, KindDirectoryNotFile, KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewRepositoryUnavailable reports that both auth tiers failed for a repo.
func NewRepositoryUnavailable(repoName string, err error) *ServiceError {
	return &ServiceError{
		Kind:    KindRepositoryUnavailable,
		Message: fmt.Sprintf("Repository %s not found or inaccessible", repoName),
		Cause:   "Installation and public-token access both failed",
		Fix:     "Check the repository name and that the app is installed on the owner",
		Err:     err,
	}
}

// NewPathNotFound reports a missing subpath inside a repository.
func NewPathNotFound(path string) *ServiceError {
	return &ServiceError{
		Kind:    KindPathNotFound,
		Message: fmt.Sprintf("Path %s not found in repository", path),
		Fix:     "Check the path against the repository structure",
	}
}

// NewEncodingUndetermined reports low-confidence or unknown text encoding.
func NewEncodingUndetermined(path string) *ServiceError {
	return &ServiceError{
		Kind:    KindEncodingUndetermined,
		Message: "Unable to determine file encoding or low confidence",
		Cause:   fmt.Sprintf("Encoding detection for %s fell below the confidence threshold", path),
	}
}

// NewContentProcessingFailed reports a decode or slice failure after a
// successful fetch.
func NewContentProcessingFailed(path string, err error) *ServiceError {
	return &ServiceError{
		Kind:    KindContentProcessingFailed,
		Message: fmt.Sprintf("Error processing file content for %s", path),
		Err:     err,
	}
}

// NewDirectoryNotFile reports content requested at a directory path.
func NewDirectoryNotFile(path string) *ServiceError {
	return &ServiceError{
		Kind:    KindDirectoryNotFile,
		Message: "Provided path is a directory, not a file",
		Cause:   fmt.Sprintf("%s resolves to a directory listing", path),
	}
}

// NewProjectNotFound reports a missing project.
func NewProjectNotFound(projectID string) *ServiceError {
	return &ServiceError{
		Kind:    KindProjectNotFound,
		Message: "Project not found",
		Cause:   fmt.Sprintf("No project with id %s is registered for this user", projectID),
	}
}

// NewInvalidInput reports a malformed request.
func NewInvalidInput(msg, cause string) *ServiceError {
	return &ServiceError{
		Kind:    KindInvalidInput,
		Message: msg,
		Cause:   cause,
	}
}

// NewInternal wraps an unexpected failure. The message surfaced to callers
// is generic; context lives in the wrapped error and the logs.
func NewInternal(err error) *ServiceError {
	return &ServiceError{
		Kind:    KindInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// AsService returns the ServiceError inside err, wrapping unknown errors
// as KindInternal so every failure surfaced by the API has a kind.
func AsService(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return NewInternal(err)
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display, used for
// fatal startup failures. Color output respects the NO_COLOR environment
// variable and can be explicitly disabled with the noColor parameter.
//
// Example output:
//
//	Error: Cannot load repolens configuration
//	Cause: The config file /etc/repolens.yaml is missing
//	Fix:   Pass --config or create the file
//
// Empty Cause or Fix fields are omitted from the output.
func (e *ServiceError) Format(noColor bool) string {
	// Save and restore global color state to avoid side effects
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the wire shape of a ServiceError in API responses.
type ErrorJSON struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
	Fix     string `json:"fix,omitempty"`
}

// ToJSON converts the ServiceError to a JSON-serializable structure.
// Internal errors carry no cause detail on the wire.
func (e *ServiceError) ToJSON() ErrorJSON {
	j := ErrorJSON{
		Error:   e.Kind.String(),
		Message: e.Message,
	}
	if e.Kind != KindInternal {
		j.Cause = e.Cause
		j.Fix = e.Fix
	}
	return j
}

// FatalError prints the error and exits. Used only from main for startup
// failures; request-path errors go through the server's JSON mapping.
func FatalError(err error) {
	if err == nil {
		return
	}

	var se *ServiceError
	if stderrors.As(err, &se) {
		fmt.Fprint(os.Stderr, se.Format(false))
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
