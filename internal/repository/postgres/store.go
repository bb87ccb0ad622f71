package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// querier общий интерфейс pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store реализует repository.Store поверх PostgreSQL
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewStore создает хранилище
func NewStore(pool *pgxpool.Pool, log *logger.Logger) *Store {
	return &Store{pool: pool, log: log}
}

func (s *Store) Users() repository.UserRepository {
	return &UserRepository{q: s.pool, log: s.log}
}

func (s *Store) PaymentRecords() repository.PaymentRecordRepository {
	return &PaymentRecordRepository{q: s.pool, log: s.log}
}

// Ping проверяет доступность базы
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type txRepos struct {
	tx  pgx.Tx
	log *logger.Logger
}

func (t *txRepos) Users() repository.UserRepository {
	return &UserRepository{q: t.tx, log: t.log}
}

func (t *txRepos) PaymentRecords() repository.PaymentRecordRepository {
	return &PaymentRecordRepository{q: t.tx, log: t.log}
}

// WithUserLock открывает транзакцию и блокирует строку пользователя (SELECT ... FOR UPDATE).
func (s *Store) WithUserLock(ctx context.Context, actor domain.Actor, fn func(ctx context.Context, tx repository.Tx, user *domain.User) error) (err error) {
	if actor.UserID == "" {
		return fmt.Errorf("%w: empty user id", repository.ErrInvalidData)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Errorw("Failed to rollback transaction", "error", rbErr, "userID", actor.UserID)
			}
		}
	}()

	role := actor.Role
	if role == "" {
		role = domain.RoleUser
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO users (id, email, role) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		actor.UserID, actor.Email, string(role),
	); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	user, err := scanUser(tx.QueryRow(ctx, selectUserSQL+` FOR UPDATE`, actor.UserID))
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}

	if err = fn(ctx, &txRepos{tx: tx, log: s.log}, user); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr, true
	}
	return nil, false
}
