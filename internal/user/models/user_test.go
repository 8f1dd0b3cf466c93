package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "taskflow/pkg/domain-errors"
)

func TestRegistrationNormalize(t *testing.T) {
	r := Registration{Name: " Ada Lovelace ", Email: " Ada.Lovelace@Example.com ", Password: "secret1"}
	r.Normalize()

	assert.Equal(t, "ada.lovelace@example.com", r.Email)
	assert.Equal(t, "Ada Lovelace", r.Name)
	assert.NoError(t, r.Validate())
}

func TestRegistrationRequiresName(t *testing.T) {
	r := Registration{Name: "   ", Email: "ada@example.com", Password: "secret1"}
	r.Normalize()

	de, ok := dErrors.From(r.Validate())
	if assert.True(t, ok) {
		assert.Equal(t, "name", de.Field)
		assert.Equal(t, "", r.Name, "no name is derived from the email")
	}
}

func TestRegistrationValidate(t *testing.T) {
	tests := []struct {
		name  string
		reg   Registration
		field string
	}{
		{"missing email", Registration{Name: "Ada", Password: "secret1"}, "email"},
		{"bad email", Registration{Name: "Ada", Email: "ada", Password: "secret1"}, "email"},
		{"short password", Registration{Name: "Ada", Email: "ada@example.com", Password: "123"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			de, ok := dErrors.From(err)
			if assert.True(t, ok) {
				assert.Equal(t, dErrors.CodeValidation, de.Code)
				assert.Equal(t, tt.field, de.Field)
			}
		})
	}
}
