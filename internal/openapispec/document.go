package openapispec

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
)

// methodOrder is the operation order of an OpenAPI path item.
var methodOrder = []string{
	http.MethodGet,
	http.MethodPut,
	http.MethodPost,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodHead,
	http.MethodPatch,
	http.MethodTrace,
	http.MethodConnect,
}

// Document is a loaded, reference-resolved OpenAPI document.
type Document struct {
	Source string
	doc    *openapi3.T
}

// Info is the document's info object.
type Info struct {
	Title       string
	Version     string
	Description string
}

// T returns the underlying kin-openapi document.
func (d *Document) T() *openapi3.T {
	return d.doc
}

// OpenAPIVersion returns the `openapi` field, e.g. "3.0.3".
func (d *Document) OpenAPIVersion() string {
	return d.doc.OpenAPI
}

// Info returns the document title, version and description.
func (d *Document) Info() Info {
	if d.doc.Info == nil {
		return Info{}
	}
	return Info{
		Title:       d.doc.Info.Title,
		Version:     d.doc.Info.Version,
		Description: d.doc.Info.Description,
	}
}

// PathNames returns every path template in the document, sorted.
func (d *Document) PathNames() []string {
	names := make([]string, 0, d.doc.Paths.Len())
	for name := range d.doc.Paths.Map() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operations returns all operations sorted by path, then by method order.
func (d *Document) Operations() []*Operation {
	ops := make([]*Operation, 0)
	for _, path := range d.PathNames() {
		item := d.doc.Paths.Value(path)
		for _, method := range sortedMethods(item) {
			ops = append(ops, newOperation(path, method, item, item.Operations()[method]))
		}
	}
	return ops
}

// Lookup returns the operation for path and method. method is
// case-insensitive; when empty, the path must have exactly one operation.
func (d *Document) Lookup(path, method string) (*Operation, error) {
	item := d.doc.Paths.Value(path)
	if item == nil {
		return nil, derrors.NotFoundError(fmt.Sprintf("path '%s' not found in OpenAPI document", path)).
			WithContext("path", path).
			Build()
	}

	methods := sortedMethods(item)
	if len(methods) == 0 {
		return nil, derrors.NotFoundError(fmt.Sprintf("path '%s' has no operations", path)).
			WithContext("path", path).
			Build()
	}

	if method == "" {
		if len(methods) > 1 {
			return nil, derrors.ValidationError(fmt.Sprintf(
				"http_method is required: path '%s' has operations %s", path, strings.Join(methods, ", "))).
				WithContext("path", path).
				Build()
		}
		method = methods[0]
	}

	method = strings.ToUpper(method)
	op := item.Operations()[method]
	if op == nil {
		return nil, derrors.NotFoundError(fmt.Sprintf(
			"method %s not defined for path '%s' (available: %s)", method, path, strings.Join(methods, ", "))).
			WithContext("path", path).
			WithContext("method", method).
			Build()
	}
	return newOperation(path, method, item, op), nil
}

func sortedMethods(item *openapi3.PathItem) []string {
	ops := item.Operations()
	methods := make([]string, 0, len(ops))
	for _, m := range methodOrder {
		if ops[m] != nil {
			methods = append(methods, m)
		}
	}
	return methods
}

// Operation is a flattened view of one resolved OpenAPI operation.
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   []Response
}

// Parameter is a path, query, header or cookie parameter.
type Parameter struct {
	Name        string
	In          string
	Description string
	Required    bool
	Deprecated  bool
	Type        string
}

// RequestBody describes an operation's request payload.
type RequestBody struct {
	Description string
	Required    bool
	Content     []MediaType
}

// MediaType is one content type of a request body.
type MediaType struct {
	ContentType string
	Type        string
	Properties  []Property
}

// Property is a top-level property of an object schema.
type Property struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Response is one documented response of an operation.
type Response struct {
	Status       string
	Description  string
	ContentTypes []string
}

// ParametersIn returns the operation's parameters located in loc ("path", "query", ...).
func (o *Operation) ParametersIn(loc string) []Parameter {
	out := make([]Parameter, 0)
	for _, p := range o.Parameters {
		if p.In == loc {
			out = append(out, p)
		}
	}
	return out
}

func newOperation(path, method string, item *openapi3.PathItem, op *openapi3.Operation) *Operation {
	o := &Operation{
		Method:      method,
		Path:        path,
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        op.Tags,
		Deprecated:  op.Deprecated,
		Parameters:  mergeParameters(item.Parameters, op.Parameters),
	}
	if o.Summary == "" {
		o.Summary = item.Summary
	}
	if o.Description == "" {
		o.Description = item.Description
	}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		o.RequestBody = newRequestBody(op.RequestBody.Value)
	}
	if op.Responses != nil {
		o.Responses = newResponses(op.Responses)
	}
	return o
}

// mergeParameters combines path-item and operation parameters. Operation
// parameters replace path-item parameters with the same name and location.
func mergeParameters(pathParams, opParams openapi3.Parameters) []Parameter {
	type key struct{ name, in string }

	out := make([]Parameter, 0, len(pathParams)+len(opParams))
	index := make(map[key]int)
	for _, refs := range []openapi3.Parameters{pathParams, opParams} {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := newParameter(ref.Value)
			k := key{p.Name, p.In}
			if i, ok := index[k]; ok {
				out[i] = p
				continue
			}
			index[k] = len(out)
			out = append(out, p)
		}
	}
	return out
}

func newParameter(p *openapi3.Parameter) Parameter {
	schema := p.Schema
	if schema == nil {
		for _, ct := range sortedKeys(p.Content) {
			if mt := p.Content[ct]; mt != nil && mt.Schema != nil {
				schema = mt.Schema
				break
			}
		}
	}
	return Parameter{
		Name:        p.Name,
		In:          p.In,
		Description: p.Description,
		Required:    p.Required,
		Deprecated:  p.Deprecated,
		Type:        SchemaType(schema),
	}
}

func newRequestBody(rb *openapi3.RequestBody) *RequestBody {
	body := &RequestBody{Description: rb.Description, Required: rb.Required}
	for _, ct := range sortedKeys(rb.Content) {
		mt := MediaType{ContentType: ct, Type: "any"}
		if m := rb.Content[ct]; m != nil {
			mt.Type = SchemaType(m.Schema)
			mt.Properties = schemaProperties(m.Schema)
		}
		body.Content = append(body.Content, mt)
	}
	return body
}

func newResponses(responses *openapi3.Responses) []Response {
	byStatus := responses.Map()
	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		// "default" documents every other status, so it goes last.
		if statuses[i] == "default" || statuses[j] == "default" {
			return statuses[j] == "default" && statuses[i] != "default"
		}
		return statuses[i] < statuses[j]
	})

	out := make([]Response, 0, len(statuses))
	for _, status := range statuses {
		r := Response{Status: status}
		if ref := byStatus[status]; ref != nil && ref.Value != nil {
			if ref.Value.Description != nil {
				r.Description = *ref.Value.Description
			}
			r.ContentTypes = sortedKeys(ref.Value.Content)
		}
		out = append(out, r)
	}
	return out
}

// SchemaType renders a short type label for a schema: "string",
// "integer(int64)", "array[Pet]", a component name for references, or "any".
func SchemaType(ref *openapi3.SchemaRef) string {
	if ref == nil {
		return "any"
	}
	if ref.Ref != "" {
		return refName(ref.Ref)
	}
	s := ref.Value
	if s == nil {
		return "any"
	}

	types := s.Type.Slice()
	if slices.Contains(types, openapi3.TypeArray) {
		return "array[" + SchemaType(s.Items) + "]"
	}
	if len(types) == 0 {
		for _, variants := range []openapi3.SchemaRefs{s.OneOf, s.AnyOf, s.AllOf} {
			if len(variants) == 0 {
				continue
			}
			names := make([]string, 0, len(variants))
			for _, v := range variants {
				names = append(names, SchemaType(v))
			}
			return strings.Join(names, " | ")
		}
		if len(s.Properties) > 0 {
			return openapi3.TypeObject
		}
		return "any"
	}

	t := strings.Join(types, " | ")
	if s.Format != "" {
		t += "(" + s.Format + ")"
	}
	return t
}

func schemaProperties(ref *openapi3.SchemaRef) []Property {
	if ref == nil || ref.Value == nil {
		return nil
	}
	s := ref.Value

	props := make(map[string]*openapi3.SchemaRef)
	required := make(map[string]bool)
	collect := func(schema *openapi3.Schema) {
		for name, p := range schema.Properties {
			props[name] = p
		}
		for _, name := range schema.Required {
			required[name] = true
		}
	}
	collect(s)
	for _, member := range s.AllOf {
		if member != nil && member.Value != nil {
			collect(member.Value)
		}
	}

	out := make([]Property, 0, len(props))
	for _, name := range sortedKeys(props) {
		p := Property{Name: name, Type: SchemaType(props[name]), Required: required[name]}
		if props[name] != nil && props[name].Value != nil {
			p.Description = props[name].Value.Description
		}
		out = append(out, p)
	}
	return out
}

func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
