package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. AUTHCORE_JWT_SECRET.
const EnvPrefix = "AUTHCORE"

// Loader reads the configuration and keeps the viper instance around for watching.
type Loader struct {
	v      *viper.Viper
	logger logger.Logger
}

// NewLoader creates a loader. configFile may be empty to search the default paths.
func NewLoader(configFile string, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/authcore/")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, logger: log.WithComponent("config")}
}

// Load reads the file (a missing file is fine), applies env overrides and validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, errors.KindValidation, errors.CodeInvalidArgument, "failed to read config file")
		}
		l.logger.Info(context.Background(), "No config file found, using defaults and environment")
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, errors.CodeInvalidArgument, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch re-reads the file on every change and hands the new rate-limit section to apply.
// Other sections are not runtime-tunable and are ignored after startup. An invalid file is
// logged and skipped so the running policies stay in force.
func (l *Loader) Watch(apply func(RateLimitConfig)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		ctx := context.Background()
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			l.logger.Warn(ctx, "Ignoring invalid configuration change",
				logger.String("file", e.Name),
				logger.Error(err))
			return
		}
		l.logger.Info(ctx, "Configuration changed, applying rate-limit policies", logger.String("file", e.Name))
		apply(cfg.RateLimit)
	})
	l.v.WatchConfig()
}

// LoadConfig loads the configuration from the default locations and the environment.
func LoadConfig(log logger.Logger) (*Config, error) {
	return NewLoader("", log).Load()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.enable_pprof", false)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "authcore")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "authcore")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.secret_key", "")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.field", "signing_key")
	v.SetDefault("vault.cache_ttl", "5m")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", constants.DefaultIssuer)
	v.SetDefault("jwt.audience", constants.DefaultAudience)
	v.SetDefault("jwt.access_token_ttl", constants.AccessTokenDefaultTTL.String())
	v.SetDefault("jwt.refresh_token_ttl", constants.RefreshTokenDefaultTTL.String())

	v.SetDefault("cache.user_by_email_ttl", constants.UserByEmailCacheTTL.String())
	v.SetDefault("cache.user_permissions_ttl", constants.UserPermissionsCacheTTL.String())
	v.SetDefault("cache.permission_check_ttl", constants.PermissionCheckCacheTTL.String())
	v.SetDefault("cache.negative_ttl", constants.NegativeCacheTTL.String())
	v.SetDefault("cache.fail_on_write_error", false)
	v.SetDefault("cache.cleanup_interval", "1m")

	v.SetDefault("rate_limit.by_ip.max_attempts", 5)
	v.SetDefault("rate_limit.by_ip.window", "15m")
	v.SetDefault("rate_limit.by_ip.block", "60m")
	v.SetDefault("rate_limit.by_user.max_attempts", 3)
	v.SetDefault("rate_limit.by_user.window", "15m")
	v.SetDefault("rate_limit.by_user.block", "30m")
	v.SetDefault("rate_limit.by_global.max_attempts", 100)
	v.SetDefault("rate_limit.by_global.window", "1m")
	v.SetDefault("rate_limit.by_global.block", "5m")

	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.kafka_topic", "authcore.audit")
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.batch_timeout", "1s")
	v.SetDefault("audit.kafka_brokers", []string{})
	v.SetDefault("audit.signing_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "authcore")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sampling_rate", 1.0)
}

//Personal.AI order the ending
