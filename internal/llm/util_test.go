package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "  I enjoy building reliable systems.  ",
			expected: "I enjoy building reliable systems.",
		},
		{
			name:     "fenced block",
			input:    "```\nI have seven years of Go.\n```",
			expected: "I have seven years of Go.",
		},
		{
			name:     "fenced block with language",
			input:    "```text\nShort answer.\n```",
			expected: "Short answer.",
		},
		{
			name:     "answer label",
			input:    "Answer: Yes, I am comfortable on call.",
			expected: "Yes, I am comfortable on call.",
		},
		{
			name:     "quoted",
			input:    `"Remote or hybrid both work for me."`,
			expected: "Remote or hybrid both work for me.",
		},
		{
			name:     "paragraphs kept, inner whitespace collapsed",
			input:    "First   paragraph\nwraps here.\n\n\n\nSecond one.",
			expected: "First paragraph wraps here.\n\nSecond one.",
		},
		{
			name:     "empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanAnswer(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "anything", Truncate("anything", 0))
	assert.Equal(t, "one two", Truncate("one two three four", 10))
	assert.Equal(t, "abcdefghij", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo", Truncate("héllo wörld", 7))
}
