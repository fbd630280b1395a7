package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	c := Chunker{Size: 100, Overlap: 20}
	assert.Equal(t, []string{"hello world"}, c.Split("  hello world \n"))
}

func TestSplitBlankText(t *testing.T) {
	c := Chunker{Size: 100, Overlap: 20}
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplitParagraphBoundary(t *testing.T) {
	c := Chunker{Size: 20, Overlap: 0}
	got := c.Split("alpha beta\n\ngamma delta")
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, got)
}

func TestSplitSentenceBoundary(t *testing.T) {
	c := Chunker{Size: 20, Overlap: 0}
	got := c.Split("One sentence here. Another sentence too. Final.")
	assert.Equal(t, []string{"One sentence here", "Another sentence too", "Final."}, got)
}

func TestSplitOverlapPrefixesPreviousTail(t *testing.T) {
	c := Chunker{Size: 12, Overlap: 4}
	got := c.Split("aaaa bbbb\n\ncccc dddd")
	require.Len(t, got, 2)
	assert.Equal(t, "aaaa bbbb", got[0])
	assert.Equal(t, "bbbb cccc dddd", got[1])
}

func TestSplitForcesUnbreakableText(t *testing.T) {
	c := Chunker{Size: 10, Overlap: 2}
	got := c.Split(strings.Repeat("x", 25))
	require.Len(t, got, 4)
	assert.Equal(t, strings.Repeat("x", 10), got[0])
	// Hard-split steps advance by size minus overlap, and the overlap
	// pass then prefixes each chunk with the previous tail.
	assert.Equal(t, "xx "+strings.Repeat("x", 10), got[1])
	assert.Equal(t, "xx "+strings.Repeat("x", 9), got[2])
	assert.Equal(t, "xx x", got[3])
}
