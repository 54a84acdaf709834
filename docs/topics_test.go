package docs

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// TestIndex checks that the index and the topic files list the same topics.
func TestIndex(t *testing.T) {
	index, err := Topic(Index)
	require.NoError(t, err)

	var listed []string
	item := regexp.MustCompile(`(?m)^\*\s+([^:]+):`)
	for _, m := range item.FindAllStringSubmatch(index, -1) {
		listed = append(listed, strings.TrimSpace(m[1]))
	}

	all, err := All()
	require.NoError(t, err)
	assert.ElementsMatch(t, all, listed)
}

// TestHeadings checks that every topic has exactly one level 1 heading, first.
func TestHeadings(t *testing.T) {
	all, err := All()
	require.NoError(t, err)
	for _, name := range append(all, Index) {
		t.Run(name, func(t *testing.T) {
			content, err := Topic(name)
			require.NoError(t, err)
			src := []byte(content)
			root := goldmark.DefaultParser().Parse(text.NewReader(src))

			var levels []int
			ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
				if h, ok := n.(*ast.Heading); ok && entering {
					levels = append(levels, h.Level)
				}
				return ast.WalkContinue, nil
			})
			require.NotEmpty(t, levels)
			assert.Equal(t, 1, levels[0])
			h1 := 0
			for _, l := range levels {
				if l == 1 {
					h1++
				}
			}
			assert.Equal(t, 1, h1)
		})
	}
}

func TestTopic(t *testing.T) {
	_, err := Topic("nonexistent")
	assert.Error(t, err)

	everything, err := Topic("*")
	require.NoError(t, err)
	assert.Contains(t, everything, "# Archives")
	assert.Contains(t, everything, "# Configuration")
	assert.NotContains(t, everything, "ledger topic <topic>")
}
