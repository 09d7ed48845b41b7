// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestServiceError_ErrorIncludesUnderlying(t *testing.T) {
	underlying := stderrors.New("dial tcp: timeout")
	err := NewRepositoryUnavailable("octocat/hello-world", underlying)

	if !strings.Contains(err.Error(), "octocat/hello-world") {
		t.Errorf("error message should name the repository, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error message should include the underlying error, got %q", err.Error())
	}
	if !stderrors.Is(err, underlying) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *ServiceError
		want int
	}{
		{"repository unavailable", NewRepositoryUnavailable("a/b", nil), http.StatusNotFound},
		{"path not found", NewPathNotFound("src/missing"), http.StatusNotFound},
		{"project not found", NewProjectNotFound("p1"), http.StatusNotFound},
		{"encoding undetermined", NewEncodingUndetermined("blob.bin"), http.StatusBadRequest},
		{"directory not file", NewDirectoryNotFile("src"), http.StatusBadRequest},
		{"invalid input", NewInvalidInput("bad request", ""), http.StatusBadRequest},
		{"content processing", NewContentProcessingFailed("a.go", nil), http.StatusInternalServerError},
		{"internal", NewInternal(stderrors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAsService_WrapsUnknownAsInternal(t *testing.T) {
	plain := stderrors.New("something broke")
	se := AsService(plain)
	if se.Kind != KindInternal {
		t.Errorf("expected KindInternal, got %v", se.Kind)
	}

	wrapped := fmt.Errorf("orchestrate: %w", NewPathNotFound("docs"))
	se = AsService(wrapped)
	if se.Kind != KindPathNotFound {
		t.Errorf("expected KindPathNotFound through wrap, got %v", se.Kind)
	}

	if AsService(nil) != nil {
		t.Error("AsService(nil) should be nil")
	}
}

func TestToJSON_InternalHidesDetail(t *testing.T) {
	se := NewInternal(stderrors.New("connection string leaked"))
	se.Cause = "secret detail"

	j := se.ToJSON()
	if j.Error != "internal_error" {
		t.Errorf("wire kind = %q, want internal_error", j.Error)
	}
	if j.Cause != "" {
		t.Errorf("internal error must not surface cause, got %q", j.Cause)
	}
}

func TestFormat_NoColor(t *testing.T) {
	err := NewPathNotFound("src/app")
	out := err.Format(true)

	if !strings.Contains(out, "Error: Path src/app not found in repository") {
		t.Errorf("unexpected format output: %q", out)
	}
	if !strings.Contains(out, "Fix:") {
		t.Errorf("fix line missing from output: %q", out)
	}
	if strings.Contains(out, "Cause:") {
		t.Errorf("empty cause should be omitted: %q", out)
	}
}
