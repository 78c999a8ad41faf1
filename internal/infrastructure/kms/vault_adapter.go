// Package kms loads the token signing secret from HashiCorp Vault.
package kms

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/patrickmn/go-cache"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

const signingSecretCacheKey = "signing_secret"

// VaultSecretSource reads the HMAC signing secret from a KV v2 mount. The value is held in
// an in-memory cache for cfg.CacheTTL so repeated reads do not hit Vault.
type VaultSecretSource struct {
	kv      *vault.KVv2
	l1Cache *cache.Cache
	logger  logger.Logger
	config  config.VaultConfig
}

// NewVaultClient builds an authenticated client from cfg.
func NewVaultClient(cfg config.VaultConfig) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address
	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, errors.ErrInfrastructure("vault client", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return client, nil
}

// NewVaultSecretSource creates a source reading cfg.SecretKey under cfg.MountPath.
func NewVaultSecretSource(cfg config.VaultConfig, client *vault.Client, log logger.Logger) *VaultSecretSource {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.Field == "" {
		cfg.Field = "signing_key"
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VaultSecretSource{
		kv:      client.KVv2(cfg.MountPath),
		l1Cache: cache.New(ttl, 2*ttl),
		logger:  log.WithComponent("VaultSecretSource"),
		config:  cfg,
	}
}

// SigningSecret returns the configured secret. A missing secret or field is NotFound.
func (a *VaultSecretSource) SigningSecret(ctx context.Context) ([]byte, error) {
	if cached, found := a.l1Cache.Get(signingSecretCacheKey); found {
		return cached.([]byte), nil
	}

	secret, err := a.kv.Get(ctx, a.config.SecretKey)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return nil, errors.ErrNotFound("signing secret")
	}
	if err != nil {
		a.logger.Error(ctx, "failed to read signing secret from Vault", err, logger.String("path", a.config.SecretKey))
		return nil, errors.ErrInfrastructure("vault read", err)
	}

	value, ok := secret.Data[a.config.Field].(string)
	if !ok || value == "" {
		return nil, errors.ErrNotFound(fmt.Sprintf("field %q in signing secret", a.config.Field))
	}

	out := []byte(value)
	a.l1Cache.SetDefault(signingSecretCacheKey, out)
	return out, nil
}

// Invalidate drops the cached secret so the next read goes to Vault.
func (a *VaultSecretSource) Invalidate() {
	a.l1Cache.Delete(signingSecretCacheKey)
}

//Personal.AI order the ending
