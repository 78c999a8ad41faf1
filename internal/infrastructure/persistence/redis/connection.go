// Package redis provides the Redis-backed key-value store shared by the permission cache
// and the sliding-window rate limiter. It supports standalone, cluster and sentinel modes.
package redis

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/pkg/logger"
)

// ConnectionMode defines Redis deployment mode
type ConnectionMode string

const (
	// ModeStandalone represents single Redis instance
	ModeStandalone ConnectionMode = "standalone"
	// ModeCluster represents Redis cluster mode
	ModeCluster ConnectionMode = "cluster"
	// ModeSentinel represents Redis sentinel mode for high availability
	ModeSentinel ConnectionMode = "sentinel"
)

// Config holds Redis connection configuration parameters.
type Config struct {
	Mode ConnectionMode

	// Standalone
	Addr     string
	Password string
	DB       int

	// Cluster
	ClusterAddrs []string

	// Sentinel
	SentinelAddrs  []string
	SentinelMaster string

	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int

	EnableTLS     bool
	TLSSkipVerify bool
	TLSCACertFile string
}

// ConfigFrom maps the application Redis settings onto a connection Config.
func ConfigFrom(cfg config.RedisConfig) Config {
	return Config{
		Mode:           ConnectionMode(strings.ToLower(cfg.Mode)),
		Addr:           cfg.Addr,
		Password:       cfg.Password,
		DB:             cfg.DB,
		ClusterAddrs:   cfg.ClusterAddrs,
		SentinelAddrs:  cfg.SentinelAddrs,
		SentinelMaster: cfg.SentinelMaster,
		PoolSize:       cfg.PoolSize,
		MinIdleConns:   cfg.MinIdleConns,
		DialTimeout:    cfg.DialTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxRetries:     cfg.MaxRetries,
		EnableTLS:      cfg.EnableTLS,
	}
}

// Connection owns the lifecycle of one UniversalClient.
type Connection struct {
	config Config
	client redis.UniversalClient
	logger logger.Logger
}

// NewConnection creates a connection manager. Connect must be called before Client.
func NewConnection(config Config, log logger.Logger) *Connection {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Connection{config: withDefaults(config), logger: log.WithComponent("redis")}
}

// NewConnectionFromClient wraps an existing client, e.g. one pointed at miniredis in tests.
func NewConnectionFromClient(client redis.UniversalClient, log logger.Logger) *Connection {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Connection{client: client, logger: log.WithComponent("redis")}
}

// Connect builds the client for the configured mode and verifies it with PING.
func (c *Connection) Connect(ctx context.Context) error {
	if c.client != nil {
		return nil
	}

	tlsConfig, err := c.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to build TLS config: %w", err)
	}

	var client redis.UniversalClient
	switch c.config.Mode {
	case ModeStandalone:
		client = redis.NewClient(&redis.Options{
			Addr:         c.config.Addr,
			Password:     c.config.Password,
			DB:           c.config.DB,
			PoolSize:     c.config.PoolSize,
			MinIdleConns: c.config.MinIdleConns,
			DialTimeout:  c.config.DialTimeout,
			ReadTimeout:  c.config.ReadTimeout,
			WriteTimeout: c.config.WriteTimeout,
			MaxRetries:   c.config.MaxRetries,
			TLSConfig:    tlsConfig,
		})
	case ModeCluster:
		if len(c.config.ClusterAddrs) == 0 {
			return fmt.Errorf("cluster addresses not configured")
		}
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        c.config.ClusterAddrs,
			Password:     c.config.Password,
			PoolSize:     c.config.PoolSize,
			MinIdleConns: c.config.MinIdleConns,
			DialTimeout:  c.config.DialTimeout,
			ReadTimeout:  c.config.ReadTimeout,
			WriteTimeout: c.config.WriteTimeout,
			MaxRetries:   c.config.MaxRetries,
			TLSConfig:    tlsConfig,
		})
	case ModeSentinel:
		if len(c.config.SentinelAddrs) == 0 || c.config.SentinelMaster == "" {
			return fmt.Errorf("sentinel addresses and master name are required")
		}
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    c.config.SentinelMaster,
			SentinelAddrs: c.config.SentinelAddrs,
			Password:      c.config.Password,
			DB:            c.config.DB,
			PoolSize:      c.config.PoolSize,
			MinIdleConns:  c.config.MinIdleConns,
			DialTimeout:   c.config.DialTimeout,
			ReadTimeout:   c.config.ReadTimeout,
			WriteTimeout:  c.config.WriteTimeout,
			MaxRetries:    c.config.MaxRetries,
			TLSConfig:     tlsConfig,
		})
	default:
		return fmt.Errorf("unsupported Redis mode: %s", c.config.Mode)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		c.logger.Error(ctx, "Redis ping failed", err, logger.String("mode", string(c.config.Mode)))
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.client = client
	c.logger.Info(ctx, "Redis connection established",
		logger.String("mode", string(c.config.Mode)),
		logger.Int("pool_size", c.config.PoolSize),
	)
	return nil
}

func (c *Connection) buildTLSConfig() (*tls.Config, error) {
	if !c.config.EnableTLS {
		return nil, nil
	}
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.config.TLSSkipVerify, //nolint:gosec // opt-in for local clusters
	}
	if c.config.TLSCACertFile != "" {
		pem, err := os.ReadFile(c.config.TLSCACertFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.config.TLSCACertFile)
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Mode == "" {
		cfg.Mode = ModeStandalone
	}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = 2
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return cfg
}

// Client returns the underlying client, or nil before Connect.
func (c *Connection) Client() redis.UniversalClient {
	return c.client
}

// Ping checks Redis server connectivity.
func (c *Connection) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis connection not initialized")
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Connection) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error(context.Background(), "Failed to close Redis connection", err)
		return err
	}
	c.logger.Info(context.Background(), "Redis connection closed")
	return nil
}

//Personal.AI order the ending
