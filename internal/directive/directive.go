// Package directive finds `::: docs.endpoint` blocks in Markdown and parses
// their arguments into typed EndpointArguments.
package directive

import (
	"regexp"
)

// Name is the directive identifier that follows the `:::` marker.
const Name = "docs.endpoint"

// blockPattern matches a directive block up to the first line consisting of
// `:::` (trailing blanks allowed). Group 2 is the closing marker; the block
// ends right after it so the line terminator stays in the surrounding text.
var blockPattern = regexp.MustCompile(`(?sm)::: docs\.endpoint\r?\n(.*?)\r?\n(:::)[ \t]*\r?$`)

// Block is one directive occurrence in a Markdown body.
//
// Start and End delimit the whole block (opening marker through closing
// marker); Content is the text between the marker lines.
type Block struct {
	Start   int
	End     int
	Content string
}

// Find returns every directive block in body, in document order.
func Find(body []byte) []Block {
	matches := blockPattern.FindAllSubmatchIndex(body, -1)
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, Block{
			Start:   m[0],
			End:     m[5],
			Content: string(body[m[2]:m[3]]),
		})
	}
	return blocks
}
