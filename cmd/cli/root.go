// Package cli implements authcore-admin, the operator tool for seeding and maintaining the
// user directory the service authenticates against.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/infrastructure/cache"
	"github.com/turtacn/authcore/internal/infrastructure/monitoring"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/redis"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// NewRootCommand builds the command tree. Each call returns an independent tree.
// NewRootCommand 构建命令树，每次调用返回独立的命令树。
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "authcore-admin",
		Short:         "Administer the authcore user directory.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to the configuration file")

	root.AddCommand(newMigrateCommand(), newRoleCommand(), newUserCommand(), newTokenCommand())
	return root
}

// Execute is the main entry point for the CLI application.
// Execute 是 CLI 应用程序的主入口点。
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is what every data command needs: configuration, a logger and the repository.
type session struct {
	cfg   *config.Config
	log   logger.Logger
	db    *postgres.DBConnection
	users *postgres.UserRepoImpl
}

func openSession(cmd *cobra.Command) (*session, error) {
	configFile, _ := cmd.Flags().GetString("config")
	log, err := monitoring.NewZapLogger(config.LogConfig{Level: "warn", Format: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewLoader(configFile, log).Load()
	if err != nil {
		return nil, err
	}
	db, err := postgres.NewDBConnection(cmd.Context(), cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, db: db, users: postgres.NewUserRepository(db.DB(), log)}, nil
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn(context.Background(), "Failed to close database", logger.Error(err))
	}
}

// invalidate drops the cached entries of users from the shared Redis store so the service
// reads the directory again on the next request. The in-memory store lives inside the server
// process and cannot be reached from here; entries there expire on their own TTL.
func (s *session) invalidate(cmd *cobra.Command, users ...models.User) error {
	if len(users) == 0 {
		return nil
	}
	ttls := cache.TTLsFrom(s.cfg.Cache)
	if !s.cfg.Redis.Enabled {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: redis disabled, cached entries of %d user(s) expire within %s\n",
			len(users), ttls.Longest())
		return nil
	}

	ctx := cmd.Context()
	conn := redis.NewConnection(redis.ConfigFrom(s.cfg.Redis), s.log)
	if err := conn.Connect(ctx); err != nil {
		return errors.Wrap(err, errors.KindInfrastructure, errors.CodeInfrastructure, "directory updated but the cache could not be reached")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close redis", logger.Error(err))
		}
	}()

	permissionCache := cache.NewPermissionCache(redis.NewStore(conn.Client()), ttls, nil, nil, s.log)
	for _, u := range users {
		if err := permissionCache.InvalidateUser(ctx, u.ID, u.Email); err != nil {
			return errors.Wrap(err, errors.KindInfrastructure, errors.CodeInfrastructure, "directory updated but cache invalidation failed")
		}
	}
	return nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the directory tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.users.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

//Personal.AI order the ending
