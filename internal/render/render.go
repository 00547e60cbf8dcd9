// Package render turns a resolved OpenAPI operation into the Markdown that
// replaces a docs.endpoint directive.
package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/directive"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/openapispec"
)

// Lookuper resolves an API path and method to an operation.
type Lookuper interface {
	Lookup(path, method string) (*openapispec.Operation, error)
}

// Options toggles the optional sections rendered below the description.
type Options struct {
	Parameters  bool `yaml:"parameters"`
	RequestBody bool `yaml:"request_body"`
	Responses   bool `yaml:"responses"`
}

// DefaultOptions enables every section.
func DefaultOptions() Options {
	return Options{Parameters: true, RequestBody: true, Responses: true}
}

// parameterLocations is the order in which parameter tables are emitted.
var parameterLocations = []string{"path", "query", "header", "cookie"}

// EndpointRenderer renders endpoint documentation from an OpenAPI document.
type EndpointRenderer struct {
	spec Lookuper
	opts Options
}

// NewEndpointRenderer creates a renderer backed by spec.
func NewEndpointRenderer(spec Lookuper, opts Options) *EndpointRenderer {
	return &EndpointRenderer{spec: spec, opts: opts}
}

// Render generates the Markdown for one directive.
func (r *EndpointRenderer) Render(args directive.EndpointArguments) (string, error) {
	op, err := r.spec.Lookup(args.Path, args.Method())
	if err != nil {
		return "", err
	}

	var b strings.Builder

	if args.EndpointTitle != "" {
		fmt.Fprintf(&b, "## <icon class=\"%s\" />&nbsp; %s {: data-toc-label=\"%s\" : .custom-header}\n",
			html.EscapeString(args.EndpointIcon), args.EndpointTitle, html.EscapeString(args.EndpointTitle))
	}

	fmt.Fprintf(&b, "### <span class=\"http-%s\">%s</span>` %s` -- %s { : data-toc-label=\"%s\" : .styled-as-h2 }\n\n",
		strings.ToLower(op.Method), op.Method, op.Path, op.Summary,
		html.EscapeString(op.Method+" "+op.Summary))

	if op.Deprecated {
		b.WriteString("!!! warning \"Deprecated\"\n    This operation is deprecated.\n\n")
	}

	if desc := strings.TrimSpace(op.Description); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}

	if tips := RenderTips(args.Tips); tips != "" {
		b.WriteString(tips)
		b.WriteString("\n")
	}

	if r.opts.Parameters {
		for _, loc := range parameterLocations {
			writeParameters(&b, loc, op.ParametersIn(loc))
		}
	}
	if r.opts.RequestBody && op.RequestBody != nil {
		writeRequestBody(&b, op.RequestBody)
	}
	if r.opts.Responses && len(op.Responses) > 0 {
		writeResponses(&b, op.Responses)
	}

	return b.String(), nil
}

// RenderTips renders tips as a "Method Tips" admonition, or "" when empty.
func RenderTips(tips []string) string {
	if len(tips) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("!!! tip \"Method Tips\"\n")
	for _, tip := range tips {
		b.WriteString("    ")
		b.WriteString(tip)
		b.WriteString("\n")
	}
	return b.String()
}
