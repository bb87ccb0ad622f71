package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectionConfig параметры пула соединений
type ConnectionConfig struct {
	DSN      string
	MaxConns int32
	// ConnectTimeout общий бюджет на подключение с повторами
	ConnectTimeout time.Duration
}

// NewConnection создает новое подключение к PostgreSQL.
// Пока база поднимается, подключение повторяется с экспоненциальной задержкой.
func NewConnection(ctx context.Context, cfg ConnectionConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	log.Infow("Connecting to PostgreSQL")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Настраиваем пул соединений
	poolConfig.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = cfg.ConnectTimeout
	if policy.MaxElapsedTime <= 0 {
		policy.MaxElapsedTime = 30 * time.Second
	}

	var pool *pgxpool.Pool
	connect := func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return fmt.Errorf("unable to create connection pool: %w", err)
		}
		// Проверяем подключение
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("unable to ping database: %w", err)
		}
		pool = p
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warnw("PostgreSQL not ready, retrying", "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(connect, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}

	log.Infow("Successfully connected to PostgreSQL", "max_conns", poolConfig.MaxConns)
	return pool, nil
}
