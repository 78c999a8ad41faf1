package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  John.Doe@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "john.doe@example.com", got)

	for _, bad := range []string{"", "   ", "no-at-sign", "@example.com", "a@b@c", "trailing@", strings.Repeat("a", 250) + "@x.io"} {
		_, err := NormalizeEmail(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"john.doe", "j-d", "abc", "user123", strings.Repeat("a", 64)}
	for _, name := range valid {
		assert.NoError(t, ValidateUsername(name), name)
	}

	invalid := []string{
		"ab",
		strings.Repeat("a", 65),
		".john",
		"john-",
		"jo..hn",
		"jo.-hn",
		"John",
		"jo_hn",
		"admin",
		"root",
	}
	for _, name := range invalid {
		assert.Error(t, ValidateUsername(name), name)
	}
}

func TestDeriveUsernameBase(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{email: "John.Doe@example.com", want: "john.doe"},
		{email: "jane_doe+news@example.com", want: "jane.doe.news"},
		{email: "..x..y--@example.com", want: "x.y"},
		{email: "a@example.com", want: "usera"},
		{email: "admin@example.com", want: "admin.user"},
		{email: "über@example.com", want: "ber"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := DeriveUsernameBase(tt.email)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, ValidateUsername(got))
		})
	}
}
