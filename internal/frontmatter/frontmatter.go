// Package frontmatter separates YAML frontmatter from Markdown page bodies
// so that page transforms only ever touch the body.
package frontmatter

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// Document is a Markdown page split into its frontmatter and body.
//
// Raw holds the frontmatter exactly as written (without `---` lines), so a
// Document can be reassembled byte-for-byte.
type Document struct {
	Raw     []byte
	Body    []byte
	Had     bool
	Newline string

	// closedAtEOF is set when the closing delimiter is the last line of the
	// input and has no trailing newline.
	closedAtEOF bool
}

// Split separates YAML frontmatter (`---` delimited) from the Markdown body.
//
// If the page does not start with a delimiter, or the opening delimiter is
// never closed (a page that opens with a horizontal rule), Had is false and
// Body is the full input. A closing delimiter may be the last line of the
// input without a trailing newline.
func Split(content []byte) Document {
	nl := detectNewline(content)
	doc := Document{Body: content, Newline: nl}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return doc
	}

	start := len(open)
	rest := content[start:]
	switch {
	case bytes.HasPrefix(rest, open):
		return Document{Raw: []byte{}, Body: rest[len(open):], Had: true, Newline: nl}
	case string(rest) == "---":
		return Document{Raw: []byte{}, Body: []byte{}, Had: true, Newline: nl, closedAtEOF: true}
	}

	closeSeq := []byte(nl + "---" + nl)
	if idx := bytes.Index(rest, closeSeq); idx >= 0 {
		doc.Raw = rest[:idx+len(nl)]
		doc.Body = rest[idx+len(closeSeq):]
		doc.Had = true
		return doc
	}

	eofClose := []byte(nl + "---")
	if bytes.HasSuffix(rest, eofClose) {
		doc.Raw = rest[:len(rest)-len("---")]
		doc.Body = []byte{}
		doc.Had = true
		doc.closedAtEOF = true
	}
	return doc
}

// Join reassembles the page with body replacing the original body.
func (d Document) Join(body []byte) []byte {
	if !d.Had {
		return body
	}

	nl := d.Newline
	if nl == "" {
		nl = "\n"
	}
	delim := []byte("---" + nl)

	out := make([]byte, 0, 2*len(delim)+len(d.Raw)+len(body))
	out = append(out, delim...)
	out = append(out, d.Raw...)
	if d.closedAtEOF && len(body) == 0 {
		out = append(out, "---"...)
		return out
	}
	out = append(out, delim...)
	out = append(out, body...)
	return out
}

// Fields parses the raw frontmatter into a map. A page without frontmatter
// yields an empty map.
func (d Document) Fields() (map[string]any, error) {
	if len(d.Raw) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(d.Raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
