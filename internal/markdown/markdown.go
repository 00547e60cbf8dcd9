// Package markdown holds Markdown analysis helpers built on goldmark and
// minimal-diff byte-range editing.
package markdown

import (
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Range is a half-open byte range [Start, End) into a Markdown body.
type Range struct {
	Start int
	End   int
}

// Contains reports whether offset falls inside the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// CodeRanges returns the byte ranges covered by the content of fenced and
// indented code blocks in body, in document order.
func CodeRanges(body []byte) []Range {
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	ranges := make([]Range, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch n.(type) {
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			lines := n.Lines()
			if lines.Len() == 0 {
				return gmast.WalkSkipChildren, nil
			}
			ranges = append(ranges, Range{
				Start: lines.At(0).Start,
				End:   lines.At(lines.Len() - 1).Stop,
			})
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return ranges
}

// InCode reports whether offset lies inside any of the given code ranges.
func InCode(ranges []Range, offset int) bool {
	for _, r := range ranges {
		if r.Contains(offset) {
			return true
		}
	}
	return false
}
