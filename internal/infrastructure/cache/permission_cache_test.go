package cache_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service/mocks"
	"github.com/turtacn/authcore/internal/infrastructure/cache"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/memory"
	"github.com/turtacn/authcore/pkg/errors"
)

func newMemoryCache(t *testing.T) (*cache.PermissionCache, *memory.Store) {
	t.Helper()
	store := memory.NewStore(time.Minute)
	return cache.NewPermissionCache(store, cache.DefaultTTLs(), nil, nil, nil), store
}

func TestPermissionCache_KeyScheme(t *testing.T) {
	assert.Equal(t, "auth:user:email:alice@example.com", cache.UserByEmailKey("alice@example.com"))
	assert.Equal(t, "auth:user:permissions:u-1", cache.UserPermissionsKey("u-1"))
	assert.Equal(t, "auth:permission:check:u-1:USER_READ", cache.PermissionCheckKey("u-1", "USER_READ"))
	assert.Equal(t, "auth:permission:check:u-1:", cache.PermissionCheckPrefix("u-1"))
}

func TestPermissionCache_UserByEmail(t *testing.T) {
	c, _ := newMemoryCache(t)
	ctx := context.Background()

	user, lookup := c.GetUserByEmail(ctx, "alice@example.com")
	assert.Nil(t, user)
	assert.Equal(t, cache.LookupMiss, lookup)

	want := &models.User{ID: "u-1", Email: "alice@example.com", Username: "alice", Enabled: true}
	require.NoError(t, c.PutUserByEmail(ctx, want.Email, want))

	got, lookup := c.GetUserByEmail(ctx, want.Email)
	assert.Equal(t, cache.LookupHit, lookup)
	assert.Equal(t, want, got)

	require.NoError(t, c.PutUserAbsent(ctx, "ghost@example.com"))
	got, lookup = c.GetUserByEmail(ctx, "ghost@example.com")
	assert.Nil(t, got)
	assert.Equal(t, cache.LookupAbsent, lookup)
}

func TestPermissionCache_PermissionSets(t *testing.T) {
	c, _ := newMemoryCache(t)
	ctx := context.Background()

	perms := []models.Permission{
		{Resource: "users", Action: "read", Name: "USER_READ"},
		{Resource: "admin", Action: "manage", Name: "ADMIN_MANAGE"},
	}
	require.NoError(t, c.PutUserPermissions(ctx, "u-1", perms))
	got, lookup := c.GetUserPermissions(ctx, "u-1")
	assert.Equal(t, cache.LookupHit, lookup)
	assert.Equal(t, perms, got)

	// An empty set is a hit, not a miss.
	require.NoError(t, c.PutUserPermissions(ctx, "u-2", nil))
	got, lookup = c.GetUserPermissions(ctx, "u-2")
	assert.Equal(t, cache.LookupHit, lookup)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestPermissionCache_CheckDecisions(t *testing.T) {
	c, _ := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutPermissionCheck(ctx, "u-1", "USER_READ", true))
	require.NoError(t, c.PutPermissionCheck(ctx, "u-1", "users:delete", false))

	allowed, lookup := c.GetPermissionCheck(ctx, "u-1", "USER_READ")
	assert.Equal(t, cache.LookupHit, lookup)
	assert.True(t, allowed)

	allowed, lookup = c.GetPermissionCheck(ctx, "u-1", "users:delete")
	assert.Equal(t, cache.LookupHit, lookup)
	assert.False(t, allowed)

	_, lookup = c.GetPermissionCheck(ctx, "u-1", "ADMIN_MANAGE")
	assert.Equal(t, cache.LookupMiss, lookup)
}

func TestPermissionCache_InvalidateUserIsExhaustive(t *testing.T) {
	c, store := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutUserByEmail(ctx, "alice@example.com", &models.User{ID: "u-1"}))
	require.NoError(t, c.PutUserPermissions(ctx, "u-1", []models.Permission{{Resource: "users", Action: "read", Name: "USER_READ"}}))
	for _, key := range []string{"USER_READ", "ADMIN_MANAGE", "users:read", "reports:export"} {
		require.NoError(t, c.PutPermissionCheck(ctx, "u-1", key, true))
	}
	require.NoError(t, c.PutPermissionCheck(ctx, "u-10", "USER_READ", true))

	require.NoError(t, c.InvalidateUser(ctx, "u-1", "alice@example.com"))

	left, err := store.ScanKeysByPrefix(ctx, "auth:")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth:permission:check:u-10:USER_READ"}, left)
}

func TestPermissionCache_InvalidateRequiresIdentity(t *testing.T) {
	c, _ := newMemoryCache(t)
	err := c.InvalidateUser(context.Background(), "", "")
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestPermissionCache_ReadFailuresDegradeToMiss(t *testing.T) {
	store := &mocks.MockKeyValueStore{}
	store.On("Get", mock.Anything, mock.Anything).Return("", false, errors.ErrInfrastructure("redis get", stderrors.New("timeout")))
	c := cache.NewPermissionCache(store, cache.TTLs{}, nil, nil, nil)

	_, lookup := c.GetPermissionCheck(context.Background(), "u-1", "USER_READ")
	assert.Equal(t, cache.LookupMiss, lookup)
	_, lookup = c.GetUserPermissions(context.Background(), "u-1")
	assert.Equal(t, cache.LookupMiss, lookup)
}

func TestPermissionCache_CorruptEntryIsMiss(t *testing.T) {
	store := &mocks.MockKeyValueStore{}
	store.On("Get", mock.Anything, "auth:permission:check:u-1:USER_READ").Return("{not json", true, nil)
	store.On("Get", mock.Anything, "auth:user:permissions:u-1").Return(`{"payload":"oops"}`, true, nil)
	c := cache.NewPermissionCache(store, cache.TTLs{}, nil, nil, nil)

	_, lookup := c.GetPermissionCheck(context.Background(), "u-1", "USER_READ")
	assert.Equal(t, cache.LookupMiss, lookup)
	_, lookup = c.GetUserPermissions(context.Background(), "u-1")
	assert.Equal(t, cache.LookupMiss, lookup)
}

func TestPermissionCache_WriteFailuresPropagate(t *testing.T) {
	store := &mocks.MockKeyValueStore{}
	writeErr := errors.ErrInfrastructure("redis set", stderrors.New("readonly replica"))
	store.On("Set", mock.Anything, "auth:permission:check:u-1:USER_READ", mock.Anything, 5*time.Minute).Return(writeErr)
	store.On("Set", mock.Anything, "auth:user:email:ghost@example.com", `{"absent":true}`, time.Minute).Return(writeErr)
	c := cache.NewPermissionCache(store, cache.DefaultTTLs(), nil, nil, nil)

	err := c.PutPermissionCheck(context.Background(), "u-1", "USER_READ", true)
	assert.ErrorIs(t, err, writeErr)

	err = c.PutUserAbsent(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, writeErr)
	store.AssertExpectations(t)
}

func TestPermissionCache_ScanFailurePropagates(t *testing.T) {
	store := &mocks.MockKeyValueStore{}
	store.On("Delete", mock.Anything, []string{"auth:user:email:alice@example.com", "auth:user:permissions:u-1"}).Return(nil)
	store.On("ScanKeysByPrefix", mock.Anything, "auth:permission:check:u-1:").Return(nil, errors.ErrInfrastructure("redis scan", stderrors.New("EOF")))
	c := cache.NewPermissionCache(store, cache.TTLs{}, nil, nil, nil)

	err := c.InvalidateUser(context.Background(), "u-1", "alice@example.com")
	require.Error(t, err)
	assert.Equal(t, errors.KindInfrastructure, errors.KindOf(err))
	store.AssertExpectations(t)
}
