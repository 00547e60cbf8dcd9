package render

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/openapispec"
)

func writeParameters(b *strings.Builder, loc string, params []openapispec.Parameter) {
	if len(params) == 0 {
		return
	}

	// A Caser is stateful, so each call gets its own.
	fmt.Fprintf(b, "#### %s\n\n", cases.Title(language.English).String(loc+" parameters"))
	b.WriteString("| Name | Type | Required | Description |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, p := range params {
		name := code(p.Name)
		if p.Deprecated {
			name += " *(deprecated)*"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", name, code(p.Type), yesNo(p.Required), cell(p.Description))
	}
	b.WriteString("\n")
}

func writeRequestBody(b *strings.Builder, body *openapispec.RequestBody) {
	b.WriteString("#### Request Body\n\n")
	if desc := strings.TrimSpace(body.Description); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	if body.Required {
		b.WriteString("The request body is **required**.\n\n")
	}

	for _, mt := range body.Content {
		fmt.Fprintf(b, "**%s**: %s\n\n", code(mt.ContentType), code(mt.Type))
		if len(mt.Properties) == 0 {
			continue
		}
		b.WriteString("| Property | Type | Required | Description |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, p := range mt.Properties {
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n", code(p.Name), code(p.Type), yesNo(p.Required), cell(p.Description))
		}
		b.WriteString("\n")
	}
}

func writeResponses(b *strings.Builder, responses []openapispec.Response) {
	b.WriteString("#### Responses\n\n")
	b.WriteString("| Status | Description | Content |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, r := range responses {
		types := make([]string, 0, len(r.ContentTypes))
		for _, ct := range r.ContentTypes {
			types = append(types, code(ct))
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", code(r.Status), cell(r.Description), strings.Join(types, ", "))
	}
	b.WriteString("\n")
}

// cell makes free text safe for a single Markdown table cell.
func cell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + strings.ReplaceAll(s, "|", `\|`) + "`"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
