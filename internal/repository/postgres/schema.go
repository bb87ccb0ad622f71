package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema таблица users здесь проекция учетной записи: только поля подписки и роль.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                  TEXT PRIMARY KEY,
	email               TEXT NOT NULL DEFAULT '',
	role                TEXT NOT NULL DEFAULT 'user',
	subscription_id     TEXT,
	subscription_status TEXT,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS payment_records (
	id                      UUID PRIMARY KEY,
	gateway_payment_id      TEXT NOT NULL UNIQUE,
	gateway_subscription_id TEXT NOT NULL UNIQUE,
	signature               TEXT NOT NULL,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema создает таблицы, если их нет
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
