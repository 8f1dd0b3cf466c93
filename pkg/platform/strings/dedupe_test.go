package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: nil},
		{name: "only blanks", input: []string{"", "  "}, expected: nil},
		{name: "keeps first occurrence order", input: []string{" b ", "a", "b"}, expected: []string{"b", "a"}},
		{name: "case sensitive", input: []string{"A", "a"}, expected: []string{"A", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, SplitList("broker-1:9092, broker-2:9092,,broker-1:9092"))
	assert.Nil(t, SplitList(" , "))
}
