package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const selectUserSQL = `SELECT id, email, role, subscription_id, subscription_status, updated_at FROM users WHERE id = $1`

// UserRepository читает и пишет подписку и роль пользователя
type UserRepository struct {
	q   querier
	log *logger.Logger
}

// GetByID возвращает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, selectUserSQL, userID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("user", userID)
		}
		r.log.Errorw("Failed to get user", "error", err, "userID", userID)
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateSubscription сохраняет subscription и role. Пустой ID подписки пишется как NULL.
func (r *UserRepository) UpdateSubscription(ctx context.Context, user *domain.User) error {
	var subID, subStatus *string
	if !user.Subscription.IsZero() {
		id := user.Subscription.ID
		status := string(user.Subscription.Status)
		subID, subStatus = &id, &status
	}

	err := r.q.QueryRow(ctx,
		`UPDATE users SET subscription_id = $2, subscription_status = $3, role = $4, updated_at = now()
		 WHERE id = $1 RETURNING updated_at`,
		user.ID, subID, subStatus, string(user.Role),
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("user", user.ID)
		}
		r.log.Errorw("Failed to update user subscription", "error", err, "userID", user.ID)
		return fmt.Errorf("update user subscription: %w", err)
	}

	r.log.Debugw("User subscription updated", "userID", user.ID, "subscriptionID", user.Subscription.ID, "status", user.Subscription.Status)
	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		user      domain.User
		role      string
		subID     *string
		subStatus *string
	)
	if err := row.Scan(&user.ID, &user.Email, &role, &subID, &subStatus, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	user.Role = domain.Role(role)
	if subID != nil {
		user.Subscription.ID = *subID
		if subStatus != nil {
			user.Subscription.Status = domain.SubscriptionStatus(*subStatus)
		}
	}
	return &user, nil
}
