package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		want  interface{}
	}{
		{name: "plain key untouched", key: "user_id", value: "u-123", want: "u-123"},
		{name: "long token masked", key: "access_token", value: "abcdefghijklmnop", want: "abcd***mnop"},
		{name: "short secret masked", key: "jwt_secret", value: "short", want: "***"},
		{name: "non-string sensitive value redacted", key: "Password", value: 42, want: "***REDACTED***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeValue(tt.key, tt.value))
		})
	}
}

func TestErrorField(t *testing.T) {
	assert.Equal(t, Field{Key: "error", Value: "boom"}, Error(errors.New("boom")))
	assert.Nil(t, Error(nil).Value)
}

func TestGlobalLoggerIgnoresNil(t *testing.T) {
	before := GetGlobalLogger()
	SetGlobalLogger(nil)
	assert.Same(t, before, GetGlobalLogger())
}
