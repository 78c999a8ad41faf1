package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/authcore/pkg/errors"
)

func newRoleCommand() *cobra.Command {
	roleCmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles",
	}

	upsertCmd := &cobra.Command{
		Use:   "upsert NAME",
		Short: "Create a role or replace its permissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, _ := cmd.Flags().GetStringSlice("permission")
			role := models.Role{Name: strings.TrimSpace(args[0])}
			if role.Name == "" {
				return errors.ErrInvalidArgument("name", "must not be blank")
			}
			for _, spec := range specs {
				p, err := parsePermission(spec)
				if err != nil {
					return err
				}
				role.Permissions = append(role.Permissions, p)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.users.UpsertRole(cmd.Context(), role); err != nil {
				return err
			}
			holders, err := s.users.UsersWithRole(cmd.Context(), role.Name)
			if err != nil {
				return err
			}
			if err := s.invalidate(cmd, holders...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "role %s: %d permissions\n", role.Name, len(role.Permissions))
			return nil
		},
	}
	upsertCmd.Flags().StringSliceP("permission", "p", nil, "permission as resource:action:NAME (repeatable)")

	roleCmd.AddCommand(upsertCmd)
	return roleCmd
}

// parsePermission reads resource:action:NAME.
func parsePermission(spec string) (models.Permission, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return models.Permission{}, errors.ErrInvalidArgument("permission", fmt.Sprintf("%q is not resource:action:NAME", spec))
	}
	return models.NewPermission(parts[0], parts[1], parts[2])
}

func newUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user; a free username is generated when none is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			username, _ := cmd.Flags().GetString("username")
			roles, _ := cmd.Flags().GetStringSlice("role")
			disabled, _ := cmd.Flags().GetBool("disabled")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if username == "" {
				resolver := service.NewUsernameResolver(s.users, nil, nil, s.log)
				resolved, err := resolver.ResolveCollision(cmd.Context(), models.DeriveUsernameBase(email))
				if errors.HasCode(err, errors.CodeUsernameGenerationLimit) {
					resolved, err = resolver.Fallback(cmd.Context(), models.DeriveUsernameBase(email)), nil
				}
				if err != nil {
					return err
				}
				username = resolved.Username
			}

			user, err := s.users.CreateUser(cmd.Context(), postgres.NewUser{
				Email:    email,
				Username: username,
				Password: password,
				Enabled:  !disabled,
				Roles:    roles,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", user.ID, user.Email, user.Username)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "email address")
	createCmd.Flags().String("password", "", "initial password")
	createCmd.Flags().String("username", "", "username; generated from the email when empty")
	createCmd.Flags().StringSlice("role", nil, "role name (repeatable)")
	createCmd.Flags().Bool("disabled", false, "create the account disabled")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	setEnabled := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " USER_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openSession(cmd)
				if err != nil {
					return err
				}
				defer s.Close()
				if err := s.users.SetEnabled(cmd.Context(), args[0], enabled); err != nil {
					return err
				}
				user, found, err := s.users.FindByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if found {
					if err := s.invalidate(cmd, *user); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %sd\n", args[0], use)
				return nil
			},
		}
	}

	userCmd.AddCommand(createCmd,
		setEnabled("enable", "Allow a user to sign in", true),
		setEnabled("disable", "Stop a user from signing in or refreshing", false))
	return userCmd
}

//Personal.AI order the ending
