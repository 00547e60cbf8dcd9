// Package openapispec loads OpenAPI 3 documents, resolves their references,
// validates them and exposes a flattened, typed view of their operations for
// documentation rendering.
package openapispec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/retry"
)

type loadOptions struct {
	validate bool
	retry    retry.Policy
}

func defaultLoadOptions() loadOptions {
	return loadOptions{validate: true, retry: retry.NoRetry()}
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithoutValidation skips OpenAPI schema validation after loading.
func WithoutValidation() LoadOption {
	return func(o *loadOptions) { o.validate = false }
}

// WithRetry retries fetching a remote document on network errors.
func WithRetry(p retry.Policy) LoadOption {
	return func(o *loadOptions) { o.retry = p }
}

// IsRemote reports whether source is an http(s) URL rather than a file path.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads the OpenAPI document at source (file path or http(s) URL),
// resolves every $ref, including external ones, and validates it.
func Load(ctx context.Context, source string, opts ...LoadOption) (*Document, error) {
	o := defaultLoadOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var (
		doc *openapi3.T
		err error
	)
	if IsRemote(source) {
		u, perr := url.Parse(source)
		if perr != nil {
			return nil, derrors.WrapError(perr, derrors.CategoryConfig, "invalid OpenAPI document URL").
				WithContext("source", source).
				Build()
		}
		err = retry.Do(ctx, o.retry, func(ctx context.Context) error {
			var ferr error
			doc, ferr = newLoader(ctx).LoadFromURI(u)
			var fe *fetchError
			switch {
			case ferr == nil:
				return nil
			case errors.As(ferr, &fe):
				return derrors.NetworkError("failed to fetch OpenAPI document").
					WithContext("source", source).
					WithCause(ferr).
					Build()
			default:
				return derrors.SpecError("failed to parse OpenAPI document").
					WithContext("source", source).
					WithCause(ferr).
					Build()
			}
		})
		if err != nil {
			return nil, err
		}
	} else {
		loader := newLoader(ctx)
		if _, statErr := os.Stat(source); errors.Is(statErr, fs.ErrNotExist) {
			return nil, derrors.NotFoundError(fmt.Sprintf("OpenAPI spec file '%s' does not exist.", source)).
				WithContext("source", source).
				Build()
		}
		doc, err = loader.LoadFromFile(source)
		if err != nil {
			return nil, derrors.SpecError("failed to parse OpenAPI document").
				WithContext("source", source).
				WithCause(err).
				Build()
		}
	}

	return finish(ctx, doc, source, o)
}

// LoadData parses an OpenAPI document from memory. source is only used for
// error messages and Document.Source.
func LoadData(ctx context.Context, data []byte, source string, opts ...LoadOption) (*Document, error) {
	o := defaultLoadOptions()
	for _, opt := range opts {
		opt(&o)
	}

	doc, err := newLoader(ctx).LoadFromData(data)
	if err != nil {
		return nil, derrors.SpecError("failed to parse OpenAPI document").
			WithContext("source", source).
			WithCause(err).
			Build()
	}
	return finish(ctx, doc, source, o)
}

// newLoader returns a loader that reads through an uncached reader, so a
// reload always sees the current file or remote content.
func newLoader(ctx context.Context) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.Context = ctx
	loader.ReadFromURIFunc = openapi3.ReadFromURIs(readFromHTTP(ctx, http.DefaultClient), openapi3.ReadFromFile)
	return loader
}

// fetchError marks a failure to retrieve a remote document, as opposed to a
// failure to parse what was retrieved.
type fetchError struct {
	err error
}

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

func readFromHTTP(ctx context.Context, client *http.Client) openapi3.ReadFromURIFunc {
	return func(_ *openapi3.Loader, location *url.URL) ([]byte, error) {
		if location.Scheme == "" || location.Host == "" {
			return nil, openapi3.ErrURINotSupported
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, &fetchError{err: err}
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &fetchError{err: fmt.Errorf("GET %s: %s", location, resp.Status)}
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &fetchError{err: err}
		}
		return data, nil
	}
}

func finish(ctx context.Context, doc *openapi3.T, source string, o loadOptions) (*Document, error) {
	if o.validate {
		if err := doc.Validate(ctx); err != nil {
			return nil, derrors.SpecError("OpenAPI document failed validation").
				WithContext("source", source).
				WithCause(err).
				Build()
		}
	}
	if doc.Paths == nil {
		doc.Paths = openapi3.NewPaths()
	}
	return &Document{Source: source, doc: doc}, nil
}
