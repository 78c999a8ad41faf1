// Package config holds the service configuration and its validation rules.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Vault     VaultConfig     `mapstructure:"vault"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnablePprof     bool          `mapstructure:"enable_pprof"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GetDSN builds the connection string for the configured driver.
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Database
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Mode           string        `mapstructure:"mode"` // standalone, cluster, sentinel
	Addr           string        `mapstructure:"addr"`
	ClusterAddrs   []string      `mapstructure:"cluster_addrs"`
	SentinelAddrs  []string      `mapstructure:"sentinel_addrs"`
	SentinelMaster string        `mapstructure:"sentinel_master"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	MinIdleConns   int           `mapstructure:"min_idle_conns"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	EnableTLS      bool          `mapstructure:"enable_tls"`
}

type VaultConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Address   string        `mapstructure:"address"`
	Token     string        `mapstructure:"token"`
	MountPath string        `mapstructure:"mount_path"`
	SecretKey string        `mapstructure:"secret_key"`
	Field     string        `mapstructure:"field"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// JWTConfig configures token signing. Secret is ignored when Vault is enabled.
type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type CacheConfig struct {
	UserByEmailTTL     time.Duration `mapstructure:"user_by_email_ttl"`
	UserPermissionsTTL time.Duration `mapstructure:"user_permissions_ttl"`
	PermissionCheckTTL time.Duration `mapstructure:"permission_check_ttl"`
	NegativeTTL        time.Duration `mapstructure:"negative_ttl"`
	FailOnWriteError   bool          `mapstructure:"fail_on_write_error"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
}

// PolicyConfig is one rate-limit policy.
type PolicyConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
	Block       time.Duration `mapstructure:"block"`
}

type RateLimitConfig struct {
	ByIP     PolicyConfig `mapstructure:"by_ip"`
	ByUser   PolicyConfig `mapstructure:"by_user"`
	ByGlobal PolicyConfig `mapstructure:"by_global"`
}

// Policies converts the section into limiter policies.
func (c RateLimitConfig) Policies() map[constants.LimitType]models.RateLimitPolicy {
	convert := func(p PolicyConfig) models.RateLimitPolicy {
		return models.RateLimitPolicy{MaxAttempts: p.MaxAttempts, Window: p.Window, Block: p.Block}
	}
	return map[constants.LimitType]models.RateLimitPolicy{
		constants.LimitTypeByIP:     convert(c.ByIP),
		constants.LimitTypeByUser:   convert(c.ByUser),
		constants.LimitTypeByGlobal: convert(c.ByGlobal),
	}
}

// Validate checks one section of policies.
func (c RateLimitConfig) Validate() error {
	for limitType, p := range c.Policies() {
		if p.MaxAttempts <= 0 || p.Window <= 0 || p.Block <= 0 {
			return errors.ErrInvalidArgument("rate_limit."+strings.ToLower(string(limitType)),
				"max_attempts, window and block must be positive")
		}
	}
	return nil
}

type AuditConfig struct {
	Sink         string        `mapstructure:"sink"` // log, kafka or database
	KafkaBrokers []string      `mapstructure:"kafka_brokers"`
	KafkaTopic   string        `mapstructure:"kafka_topic"`
	BufferSize   int           `mapstructure:"buffer_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	SigningKey   string        `mapstructure:"signing_key"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ErrInvalidArgument("server.port", "must be between 1 and 65535")
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return errors.ErrInvalidArgument("jwt", "token TTLs must be positive")
	}
	if !c.Vault.Enabled && strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.ErrInsecureSigningKey("jwt.secret is empty and vault is disabled")
	}
	if c.Vault.Enabled && (c.Vault.Address == "" || c.Vault.SecretKey == "") {
		return errors.ErrInvalidArgument("vault", "address and secret_key are required when enabled")
	}
	if c.Cache.UserByEmailTTL <= 0 || c.Cache.UserPermissionsTTL <= 0 ||
		c.Cache.PermissionCheckTTL <= 0 || c.Cache.NegativeTTL <= 0 {
		return errors.ErrInvalidArgument("cache", "TTLs must be positive")
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	switch c.Redis.Mode {
	case "standalone", "cluster", "sentinel":
	default:
		return errors.ErrInvalidArgument("redis.mode", "must be standalone, cluster or sentinel")
	}
	switch c.Audit.Sink {
	case "log", "database":
	case "kafka":
		if len(c.Audit.KafkaBrokers) == 0 || c.Audit.KafkaTopic == "" {
			return errors.ErrInvalidArgument("audit", "kafka sink needs brokers and a topic")
		}
	default:
		return errors.ErrInvalidArgument("audit.sink", "must be log, kafka or database")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.ErrInvalidArgument("database.driver", "must be postgres or sqlite")
	}
	return nil
}

//Personal.AI order the ending
