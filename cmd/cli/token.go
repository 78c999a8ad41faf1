package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/kms"
	"github.com/turtacn/authcore/internal/infrastructure/monitoring"
)

func newTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect issued tokens",
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect TOKEN",
		Short: "Validate a token with the configured secret and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			log, err := monitoring.NewZapLogger(config.LogConfig{Level: "warn", Format: "console", OutputPath: "stderr"})
			if err != nil {
				return err
			}
			cfg, err := config.NewLoader(configFile, log).Load()
			if err != nil {
				return err
			}

			secret := []byte(cfg.JWT.Secret)
			if cfg.Vault.Enabled {
				client, err := kms.NewVaultClient(cfg.Vault)
				if err != nil {
					return err
				}
				if secret, err = kms.NewVaultSecretSource(cfg.Vault, client, log).SigningSecret(cmd.Context()); err != nil {
					return err
				}
			}

			tokens, err := service.NewTokenService(service.TokenServiceConfig{
				Secret:     secret,
				Issuer:     cfg.JWT.Issuer,
				Audience:   cfg.JWT.Audience,
				AccessTTL:  cfg.JWT.AccessTokenTTL,
				RefreshTTL: cfg.JWT.RefreshTokenTTL,
			})
			if err != nil {
				return err
			}

			result := tokens.ValidateToken(args[0])
			out, err := json.MarshalIndent(map[string]interface{}{
				"valid":   result.Valid,
				"failure": result.Failure,
				"reason":  result.Reason,
				"claims":  result.Claims,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	tokenCmd.AddCommand(inspectCmd)
	return tokenCmd
}

//Personal.AI order the ending
