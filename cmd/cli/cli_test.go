package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/infrastructure/cache"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/redis"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTHCORE_DATABASE_DRIVER", "sqlite")
	t.Setenv("AUTHCORE_DATABASE_DATABASE", filepath.Join(t.TempDir(), "authcore.db"))
	t.Setenv("AUTHCORE_JWT_SECRET", "0123456789abcdef0123456789abcdef-cli")
	t.Setenv("AUTHCORE_REDIS_ENABLED", "false")
}

// sharedCache points the commands at a miniredis instance and returns a cache over it.
func sharedCache(t *testing.T) *cache.PermissionCache {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("AUTHCORE_REDIS_ENABLED", "true")
	t.Setenv("AUTHCORE_REDIS_ADDR", mr.Addr())

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewPermissionCache(redis.NewStore(client), cache.DefaultTTLs(), nil, nil, nil)
}

// warm fills every cache family for user as a running service would.
func warm(t *testing.T, pc *cache.PermissionCache, id, email string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, pc.PutUserByEmail(ctx, email, &models.User{ID: id, Email: email, Enabled: true}))
	require.NoError(t, pc.PutUserPermissions(ctx, id, []models.Permission{
		{Resource: "admin", Action: "manage", Name: "ADMIN_MANAGE"},
	}))
	require.NoError(t, pc.PutPermissionCheck(ctx, id, "ADMIN_MANAGE", true))
}

func assertCold(t *testing.T, pc *cache.PermissionCache, id, email string) {
	t.Helper()
	ctx := context.Background()
	_, lookup := pc.GetUserByEmail(ctx, email)
	assert.Equal(t, cache.LookupMiss, lookup)
	_, lookup = pc.GetUserPermissions(ctx, id)
	assert.Equal(t, cache.LookupMiss, lookup)
	_, lookup = pc.GetPermissionCheck(ctx, id, "ADMIN_MANAGE")
	assert.Equal(t, cache.LookupMiss, lookup)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDirectoryCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated")

	out, err = run(t, "role", "upsert", "admin", "-p", "admin:manage:ADMIN_MANAGE", "-p", "documents:read:READ_DOCUMENTS")
	require.NoError(t, err)
	assert.Contains(t, out, "role admin: 2 permissions")

	out, err = run(t, "user", "create", "--email", "John.Doe@example.com", "--password", "pw", "--role", "admin")
	require.NoError(t, err)
	first := strings.Fields(out)
	require.Len(t, first, 3)
	assert.Equal(t, "john.doe@example.com", first[1])
	assert.Equal(t, "john.doe", first[2])

	out, err = run(t, "user", "create", "--email", "john.doe@other.example", "--password", "pw")
	require.NoError(t, err)
	assert.Equal(t, "john.doe2", strings.Fields(out)[2])

	_, err = run(t, "user", "create", "--email", "john.doe@example.com", "--password", "pw", "--username", "another")
	assert.Error(t, err)

	_, err = run(t, "user", "create", "--email", "x@example.com", "--password", "pw", "--role", "missing")
	assert.Error(t, err)

	out, err = run(t, "user", "disable", first[0])
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")

	_, err = run(t, "user", "enable", "no-such-user")
	assert.Error(t, err)
}

func TestUserDisable_InvalidatesCachedEntries(t *testing.T) {
	setupEnv(t)
	pc := sharedCache(t)

	_, err := run(t, "migrate")
	require.NoError(t, err)
	_, err = run(t, "role", "upsert", "admin", "-p", "admin:manage:ADMIN_MANAGE")
	require.NoError(t, err)
	out, err := run(t, "user", "create", "--email", "ops@example.com", "--password", "pw", "--role", "admin")
	require.NoError(t, err)
	id := strings.Fields(out)[0]

	warm(t, pc, id, "ops@example.com")

	out, err = run(t, "user", "disable", id)
	require.NoError(t, err)
	assert.NotContains(t, out, "warning")
	assertCold(t, pc, id, "ops@example.com")
}

func TestRoleUpsert_InvalidatesHolders(t *testing.T) {
	setupEnv(t)
	pc := sharedCache(t)

	_, err := run(t, "migrate")
	require.NoError(t, err)
	_, err = run(t, "role", "upsert", "admin", "-p", "admin:manage:ADMIN_MANAGE")
	require.NoError(t, err)
	out, err := run(t, "user", "create", "--email", "ops@example.com", "--password", "pw", "--role", "admin")
	require.NoError(t, err)
	holder := strings.Fields(out)[0]
	out, err = run(t, "user", "create", "--email", "guest@example.com", "--password", "pw")
	require.NoError(t, err)
	other := strings.Fields(out)[0]

	warm(t, pc, holder, "ops@example.com")
	warm(t, pc, other, "guest@example.com")

	_, err = run(t, "role", "upsert", "admin", "-p", "documents:read:READ_DOCUMENTS")
	require.NoError(t, err)

	assertCold(t, pc, holder, "ops@example.com")
	_, lookup := pc.GetPermissionCheck(context.Background(), other, "ADMIN_MANAGE")
	assert.Equal(t, cache.LookupHit, lookup)
}

func TestUserDisable_WarnsWithoutSharedStore(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "migrate")
	require.NoError(t, err)
	out, err := run(t, "user", "create", "--email", "ops@example.com", "--password", "pw")
	require.NoError(t, err)

	out, err = run(t, "user", "disable", strings.Fields(out)[0])
	require.NoError(t, err)
	assert.Contains(t, out, "warning: redis disabled")
	assert.Contains(t, out, "disabled")
}

func TestRoleUpsert_RejectsMalformedPermission(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "role", "upsert", "admin", "-p", "admin-manage")
	assert.Error(t, err)
}

func TestTokenInspect(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "token", "inspect", "not-a-token")
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, false, report["valid"])
	assert.NotEmpty(t, report["failure"])
}

//Personal.AI order the ending
