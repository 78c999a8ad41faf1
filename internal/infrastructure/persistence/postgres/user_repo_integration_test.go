//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/postgres"
)

// TestUserRepo_Postgres runs the directory against a real PostgreSQL server.
func TestUserRepo_Postgres(t *testing.T) {
	if testing.Short() || os.Getenv("SKIP_DOCKER_TESTS") == "true" {
		t.Skip("Skipping Docker-dependent tests")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("authcore"),
		tcpostgres.WithUsername("authcore"),
		tcpostgres.WithPassword("authcore"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	conn, err := postgres.NewDBConnection(ctx, config.DatabaseConfig{
		Driver:   "postgres",
		Host:     host,
		Port:     port.Int(),
		User:     "authcore",
		Password: "authcore",
		Database: "authcore",
		SSLMode:  "disable",
	}, nil)
	require.NoError(t, err)
	defer conn.Close()

	repo := postgres.NewUserRepository(conn.DB(), nil)
	require.NoError(t, repo.Migrate(ctx))

	user := seed(t, repo)

	found, ok, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user.ID, found.ID)

	perms, err := repo.EffectivePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"READ_DOCUMENTS", "VIEW_REPORTS"}, models.PermissionNames(perms))

	holders, err := repo.UsersWithRole(ctx, "analyst")
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, user.ID, holders[0].ID)

	require.NoError(t, repo.SetEnabled(ctx, user.ID, false))
	perms, err = repo.EffectivePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}
