package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPermission(t *testing.T) {
	p, err := NewPermission(" Users ", "READ", "USER_READ")
	require.NoError(t, err)
	assert.Equal(t, "users:read", p.FullName())

	_, err = NewPermission("users", "read", "user-read")
	assert.Error(t, err)
	_, err = NewPermission("", "read", "USER_READ")
	assert.Error(t, err)
	_, err = NewPermission("users", " ", "USER_READ")
	assert.Error(t, err)
	_, err = NewPermission("users:admin", "read", "USER_READ")
	assert.Error(t, err)
	_, err = NewPermission("users", "read:all", "USER_READ")
	assert.Error(t, err)
}

func TestEffectivePermissionsDeduplicates(t *testing.T) {
	read := Permission{Resource: "users", Action: "read", Name: "USER_READ"}
	write := Permission{Resource: "users", Action: "write", Name: "USER_WRITE"}
	audit := Permission{Resource: "audit", Action: "read", Name: "AUDIT_READ"}

	roles := []Role{
		{Name: "viewer", Permissions: []Permission{read}},
		{Name: "editor", Permissions: []Permission{read, write}},
		{Name: "auditor", Permissions: []Permission{audit, read}},
	}

	got := EffectivePermissions(roles)
	assert.Equal(t, []Permission{audit, read, write}, got)
	assert.Equal(t, []string{"AUDIT_READ", "USER_READ", "USER_WRITE"}, PermissionNames(got))
	assert.Empty(t, EffectivePermissions(nil))
}

func TestPermissionMatches(t *testing.T) {
	p := Permission{Resource: "users", Action: "read", Name: "USER_READ"}

	assert.True(t, p.Matches("USERS", "Read", ""))
	assert.False(t, p.Matches("users", "write", ""))
	assert.True(t, p.Matches("", "", "USER_READ"))
	assert.False(t, p.Matches("users", "read", "USER_WRITE"), "exact name takes precedence")
	assert.Equal(t, "USER_READ", PermissionCheckKey("users", "read", "USER_READ"))
	assert.Equal(t, "users:read", PermissionCheckKey("Users", "READ", ""))
}
