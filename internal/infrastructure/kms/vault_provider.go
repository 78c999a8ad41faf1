package kms

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// generatedSecretBytes is the entropy of a bootstrapped signing secret.
const generatedSecretBytes = 48

// EnsureSigningSecret returns the stored secret, generating and writing a random one first
// when none exists yet. Infrastructure failures are returned and never replaced by a fresh secret.
func (a *VaultSecretSource) EnsureSigningSecret(ctx context.Context) ([]byte, error) {
	secret, err := a.SigningSecret(ctx)
	if err == nil {
		return secret, nil
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}

	raw := make([]byte, generatedSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.ErrInfrastructure("secret generation", err)
	}
	value := base64.RawURLEncoding.EncodeToString(raw)

	if _, err := a.kv.Put(ctx, a.config.SecretKey, map[string]interface{}{a.config.Field: value}); err != nil {
		a.logger.Error(ctx, "failed to write signing secret to Vault", err, logger.String("path", a.config.SecretKey))
		return nil, errors.ErrInfrastructure("vault write", err)
	}
	a.logger.Info(ctx, "Generated a new signing secret", logger.String("path", a.config.SecretKey))

	out := []byte(value)
	a.l1Cache.SetDefault(signingSecretCacheKey, out)
	return out, nil
}
