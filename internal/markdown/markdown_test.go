package markdown

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeRanges_FencedBlock(t *testing.T) {
	body := []byte("# Usage\n\n```markdown\n::: docs.endpoint\npath: /pets\n:::\n```\n\n::: docs.endpoint\npath: /pets\n:::\n")

	ranges := CodeRanges(body)
	require.Len(t, ranges, 1)

	first := bytes.Index(body, []byte("::: docs.endpoint"))
	second := bytes.LastIndex(body, []byte("::: docs.endpoint"))
	require.True(t, InCode(ranges, first))
	require.False(t, InCode(ranges, second))
}

func TestCodeRanges_IndentedBlock(t *testing.T) {
	body := []byte("Example:\n\n    ::: docs.endpoint\n    path: /pets\n    :::\n\nText\n")

	ranges := CodeRanges(body)
	require.Len(t, ranges, 1)
	require.True(t, InCode(ranges, bytes.Index(body, []byte("::: docs"))))
	require.False(t, InCode(ranges, bytes.Index(body, []byte("Text"))))
}

func TestCodeRanges_NoCode(t *testing.T) {
	require.Empty(t, CodeRanges([]byte("# Title\n\nJust prose.\n")))
}
