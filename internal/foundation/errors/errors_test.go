package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "openapi-docs-gen.yaml").
			Build()

		require.Equal(t, CategoryConfig, err.Category())
		require.Equal(t, SeverityFatal, err.Severity())
		require.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		require.Equal(t, "openapi-docs-gen.yaml", file)
	})

	t.Run("Wrapped classified error is found in chain", func(t *testing.T) {
		inner := SpecError("bad document").Build()
		wrapped := fmt.Errorf("loading: %w", inner)

		require.True(t, IsClassified(wrapped))
		require.True(t, HasCategory(wrapped, CategorySpec))
		require.Equal(t, CategorySpec, GetCategory(wrapped))
		require.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	})

	t.Run("Cause is unwrapped", func(t *testing.T) {
		cause := errors.New("disk full")
		err := WrapError(cause, CategoryFileSystem, "write page").Build()

		require.ErrorIs(t, err, cause)
		require.Equal(t, "[filesystem:error] write page: disk full", err.Error())
	})

	t.Run("WithContext does not mutate the original", func(t *testing.T) {
		base := RenderError("render failed").Build()
		derived := base.WithContext("page", "index.md")

		_, ok := base.Context().Get("page")
		require.False(t, ok)
		page, _ := derived.Context().GetString("page")
		require.Equal(t, "index.md", page)
	})
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryUserAction},
		{"ValidationError", ValidationError("test"), CategoryValidation, SeverityError, RetryUserAction},
		{"NotFoundError", NotFoundError("test"), CategoryNotFound, SeverityError, RetryUserAction},
		{"SpecError", SpecError("test"), CategorySpec, SeverityFatal, RetryUserAction},
		{"RenderError", RenderError("test"), CategoryRender, SeverityError, RetryNever},
		{"PluginError", PluginError("test"), CategoryPlugin, SeverityFatal, RetryNever},
		{"NetworkError", NetworkError("test"), CategoryNetwork, SeverityError, RetryBackoff},
		{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError, RetryBackoff},
		{"RuntimeError", RuntimeError("test"), CategoryRuntime, SeverityFatal, RetryNever},
		{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			require.Equal(t, tt.category, err.Category())
			require.Equal(t, tt.severity, err.Severity())
			require.Equal(t, tt.retry, err.RetryStrategy())
		})
	}
}

func TestErrorContextMerge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	v1, _ := merged.GetString("key1")
	v2, _ := merged.GetString("key2")
	shared, _ := merged.GetString("shared")
	require.Equal(t, "value1", v1)
	require.Equal(t, "value2", v2)
	require.Equal(t, "overridden", shared)
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("bad flag").Build(), 2},
		{"not found", NotFoundError("missing").Build(), 4},
		{"config", ConfigError("bad config").Build(), 7},
		{"spec", SpecError("bad spec").Build(), 11},
		{"wrapped render", fmt.Errorf("page: %w", RenderError("x").Build()), 11},
		{"plugin", PluginError("hook failed").Build(), 12},
		{"unclassified", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var stderr bytes.Buffer
	code := -1

	adapter := NewCLIErrorAdapter(false, slog.Default())
	adapter.stderr = &stderr
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(NotFoundError("OpenAPI spec file 'api.yaml' does not exist.").Build())

	require.Equal(t, 4, code)
	require.Equal(t, "Error: OpenAPI spec file 'api.yaml' does not exist.\n", stderr.String())
}

func TestCLIErrorAdapter_FormatHidesInternalDetails(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)
	require.Equal(t, "Internal error occurred (use -v for details)", adapter.FormatError(InternalError("nil map").Build()))

	verbose := NewCLIErrorAdapter(true, nil)
	require.Equal(t, "Error: [internal:fatal] nil map", verbose.FormatError(InternalError("nil map").Build()))
}

func TestHTTPErrorAdapter(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)

	require.Equal(t, http.StatusOK, adapter.StatusCodeFor(nil))
	require.Equal(t, http.StatusNotFound, adapter.StatusCodeFor(NotFoundError("x").Build()))
	require.Equal(t, http.StatusUnprocessableEntity, adapter.StatusCodeFor(SpecError("x").Build()))
	require.Equal(t, http.StatusInternalServerError, adapter.StatusCodeFor(errors.New("x")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	adapter.WriteErrorResponse(rec, req, RenderError("last build failed").WithContext("failed", 2).Build())

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"last build failed","code":"render","details":{"failed":2}}`, rec.Body.String())
}
