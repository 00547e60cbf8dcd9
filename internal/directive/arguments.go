package directive

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
)

var (
	argPattern          = regexp.MustCompile(`^\s*(\w+):\s*(.*)$`)
	continuationPattern = regexp.MustCompile(`^\s{4}(.+)$`)
)

const keyTips = "tips"

// EndpointArguments are the validated arguments of a docs.endpoint block.
type EndpointArguments struct {
	// Path is the API path as written in the OpenAPI document's paths object.
	Path string
	// HTTPMethod selects the operation; optional when the path has exactly one.
	HTTPMethod    string
	EndpointTitle string
	EndpointIcon  string
	Tips          []string

	// Unknown lists keys that are not recognized. They are ignored.
	Unknown []string
}

// ArgumentError reports invalid directive arguments.
type ArgumentError struct {
	Detail string
}

func (e *ArgumentError) Error() string {
	return "Invalid arguments in docs.endpoint: " + e.Detail
}

// ParseArguments extracts `key: value` pairs from a directive body and
// returns validated arguments.
//
// A `tips:` key without a value opens a list; following lines indented by at
// least four spaces are collected as tips until another key appears.
func ParseArguments(content string) (EndpointArguments, error) {
	var args EndpointArguments
	values := make(map[string]string)
	currentKey := ""

	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if currentKey == keyTips {
			if m := continuationPattern.FindStringSubmatch(line); m != nil {
				if tip := strings.TrimSpace(m[1]); tip != "" {
					args.Tips = append(args.Tips, tip)
				}
				continue
			}
		}

		m := argPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, value := m[1], strings.TrimSpace(m[2])
		currentKey = key
		if key == keyTips {
			if value != "" {
				args.Tips = append(args.Tips, value)
			}
			continue
		}
		if value != "" {
			values[key] = value
		}
	}

	for key, value := range values {
		switch key {
		case "path":
			args.Path = value
		case "http_method":
			args.HTTPMethod = value
		case "endpoint_title":
			args.EndpointTitle = value
		case "endpoint_icon":
			args.EndpointIcon = value
		default:
			args.Unknown = append(args.Unknown, key)
		}
	}

	slices.Sort(args.Unknown)

	if err := args.Validate(); err != nil {
		return EndpointArguments{}, err
	}
	return args, nil
}

var httpMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPut:     {},
	http.MethodPost:    {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
	http.MethodHead:    {},
	http.MethodPatch:   {},
	http.MethodTrace:   {},
}

// Validate checks required fields and the HTTP method.
func (a EndpointArguments) Validate() error {
	if a.Path == "" {
		return &ArgumentError{Detail: "path: field required"}
	}
	if !strings.HasPrefix(a.Path, "/") {
		return &ArgumentError{Detail: fmt.Sprintf("path: %q must start with '/'", a.Path)}
	}
	if a.HTTPMethod != "" {
		if _, ok := httpMethods[strings.ToUpper(a.HTTPMethod)]; !ok {
			return &ArgumentError{Detail: fmt.Sprintf("http_method: unsupported method %q", a.HTTPMethod)}
		}
	}
	return nil
}

// Method returns the upper-cased HTTP method, or "" when unset.
func (a EndpointArguments) Method() string {
	return strings.ToUpper(a.HTTPMethod)
}
