// Package errors provides classified error primitives used across openapi-docs-gen.
//
// A ClassifiedError carries a category (config, spec, render, ...), a severity
// and a retry strategy next to the human readable message. The CLI and HTTP
// adapters turn classified errors into exit codes and JSON payloads.
//
// Example usage:
//
//	err := errors.SpecError("failed to parse OpenAPI document").
//		WithContext("source", path).
//		WithCause(parseErr).
//		Build()
package errors
