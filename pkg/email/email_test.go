package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ada@example.com", Normalize("  Ada@Example.COM "))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{"ada@example.com", true},
		{"ada.lovelace+tasks@mail.example.org", true},
		{"", false},
		{"ada", false},
		{"ada@localhost", false},
		{"Ada <ada@example.com>", false},
		{strings.Repeat("a", 250) + "@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValid(tt.address))
		})
	}
}
