package message

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextSinglePart(t *testing.T) {
	parts := Split("a short lesson", 100)
	require.Len(t, parts, 1)
	assert.Equal(t, "a short lesson", parts[0])
}

func TestSplitExactLimitSinglePart(t *testing.T) {
	text := strings.Repeat("x", 100)
	parts := Split(text, 100)
	require.Len(t, parts, 1)
	assert.Equal(t, text, parts[0])
}

func TestSplitLongTextTagsParts(t *testing.T) {
	words := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		words = append(words, fmt.Sprintf("word%03d", i))
	}
	text := strings.Join(words, " ")

	limit := 200
	parts := Split(text, limit)
	require.Greater(t, len(parts), 1)

	for i, p := range parts {
		assert.LessOrEqual(t, len(p), limit, "part %d exceeds limit", i)
		assert.True(t, strings.HasPrefix(p, fmt.Sprintf("(part %d/%d) ", i+1, len(parts))), "part %d tag: %q", i, p[:20])
	}

	// Content survives the split intact modulo collapsed break whitespace.
	var rebuilt []string
	for i, p := range parts {
		rebuilt = append(rebuilt, strings.TrimPrefix(p, fmt.Sprintf("(part %d/%d) ", i+1, len(parts))))
	}
	assert.Equal(t, text, strings.Join(rebuilt, " "))
}

func TestSplitKeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 100)
	parts := Split(text, 120)
	for i, p := range parts {
		assert.True(t, utf8Valid(p), "part %d is not valid utf-8", i)
		assert.LessOrEqual(t, len(p), 120)
	}
}

func utf8Valid(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func TestSplitZeroLimitReturnsWhole(t *testing.T) {
	parts := Split("anything", 0)
	require.Len(t, parts, 1)
	assert.Equal(t, "anything", parts[0])
}
