package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/retry"
	"github.com/opencivica/legisync/pkg/utils"
)

// Client wraps a pooled ClickHouse connection for the canonical store.
type Client struct {
	Logger   *zap.Logger
	Db       driver.Conn
	Database string
}

// PoolConfig defines connection pool settings for a component. The stats
// calculator's bounded concurrency is sized against MaxOpenConns; keep the
// two in sync when tuning.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Component       string
}

// DefaultPoolConfig reads pool sizing from the environment.
func DefaultPoolConfig(component string) PoolConfig {
	return PoolConfig{
		MaxOpenConns:    utils.EnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    utils.EnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: utils.EnvDuration("CLICKHOUSE_CONN_MAX_LIFETIME", time.Hour),
		Component:       component,
	}
}

// New connects to ClickHouse (CLICKHOUSE_ADDR DSN, comma-separated replicas
// supported) and ensures the target database exists. Connection
// establishment is retried with backoff; a cold ClickHouse at daemon boot
// is routine, not fatal.
func New(ctx context.Context, logger *zap.Logger, dbName string, pool PoolConfig) (Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	client := Client{Logger: logger, Database: dbName}

	dsn := utils.Env("CLICKHOUSE_ADDR", "clickhouse://localhost:9000")
	username, password := extractCredentials(dsn)
	replicas := extractReplicas(dsn)

	options := &clickhouse.Options{
		Addr: replicas,
		// First replica wins while healthy: read-after-write consistency
		// matters more to the sync pipeline than read distribution.
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		Auth: clickhouse.Auth{
			Database: "default",
			Username: username,
			Password: password,
		},
		DialTimeout:     30 * time.Second,
		MaxOpenConns:    pool.MaxOpenConns,
		MaxIdleConns:    pool.MaxIdleConns,
		ConnMaxLifetime: pool.ConnMaxLifetime,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"prefer_column_name_to_alias": 1,
		},
	}

	err := retry.WithBackoff(connCtx, retry.DefaultConfig(), logger, "clickhouse_connection", func() error {
		conn, err := clickhouse.Open(options)
		if err != nil {
			return fmt.Errorf("open clickhouse connection: %w", err)
		}
		if err := conn.Ping(connCtx); err != nil {
			return fmt.Errorf("ping clickhouse: %w", err)
		}
		client.Db = conn
		return nil
	})
	if err != nil {
		return Client{}, err
	}

	if err := client.Exec(ctx, fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS "%s"`, dbName)); err != nil {
		return Client{}, fmt.Errorf("create database %s: %w", dbName, err)
	}

	logger.Info("ClickHouse connection pool configured",
		zap.String("database", dbName),
		zap.String("component", pool.Component),
		zap.Strings("replicas", replicas),
		zap.Int("max_open_conns", pool.MaxOpenConns),
		zap.Int("max_idle_conns", pool.MaxIdleConns))

	return client, nil
}

// SanitizeName sanitizes a database name to be compatible with ClickHouse.
func SanitizeName(id string) string {
	s := strings.ToLower(id)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}

// extractReplicas parses comma-separated replica addresses from the DSN.
func extractReplicas(dsn string) []string {
	cleaned := strings.TrimPrefix(dsn, "clickhouse://")
	cleaned = strings.TrimPrefix(cleaned, "tcp://")

	hostPart := cleaned
	if idx := strings.Index(cleaned, "@"); idx != -1 {
		hostPart = cleaned[idx+1:]
	}
	if idx := strings.IndexAny(hostPart, "/?"); idx != -1 {
		hostPart = hostPart[:idx]
	}

	result := make([]string, 0, 2)
	for _, r := range strings.Split(hostPart, ",") {
		if r = strings.TrimSpace(r); r != "" {
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		return []string{"localhost:9000"}
	}
	return result
}

// extractCredentials extracts username and password from the DSN.
func extractCredentials(dsn string) (string, string) {
	dsn = strings.TrimPrefix(dsn, "clickhouse://")
	dsn = strings.TrimPrefix(dsn, "tcp://")

	atIdx := strings.Index(dsn, "@")
	if atIdx == -1 {
		return "default", ""
	}
	credentials := dsn[:atIdx]
	colonIdx := strings.Index(credentials, ":")
	if colonIdx == -1 {
		return credentials, ""
	}
	return credentials[:colonIdx], credentials[colonIdx+1:]
}

// Exec executes a raw SQL statement.
func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.Db.Exec(ctx, query, args...)
}

// QueryRow queries a single row.
func (c *Client) QueryRow(ctx context.Context, query string, args ...interface{}) driver.Row {
	return c.Db.QueryRow(ctx, query, args...)
}

// Query queries multiple rows.
func (c *Client) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return c.Db.Query(ctx, query, args...)
}

// Select selects into a slice of structs.
func (c *Client) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.Db.Select(ctx, dest, query, args...)
}

// PrepareBatch prepares a batch insert.
func (c *Client) PrepareBatch(ctx context.Context, query string) (driver.Batch, error) {
	return c.Db.PrepareBatch(ctx, query)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.Db.Close()
}
