package repository

import (
	"context"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/google/uuid"
)

// UserRepository доступ к подписке и роли пользователя.
// Остальная часть учетной записи принадлежит сервису аккаунтов.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	// UpdateSubscription сохраняет subscription и role пользователя.
	UpdateSubscription(ctx context.Context, user *domain.User) error
}

// PaymentRecordRepository хранилище подтвержденных платежей.
type PaymentRecordRepository interface {
	// Create возвращает ErrDuplicate, если платеж или подписка уже записаны.
	Create(ctx context.Context, record *domain.PaymentRecord) error
	// GetBySubscriptionID возвращает ErrNotFound, если записи нет.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.PaymentRecord, error)
	// Delete возвращает ErrNotFound, если записи нет.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Tx репозитории, привязанные к одной транзакции.
type Tx interface {
	Users() UserRepository
	PaymentRecords() PaymentRecordRepository
}

// Store корень хранилища.
type Store interface {
	Tx

	// WithUserLock выполняет fn в одной транзакции, удерживая блокировку строки пользователя.
	// Пользователь создается, если его еще нет. Ошибка fn откатывает все изменения.
	// fn не должна вызывать WithUserLock повторно.
	WithUserLock(ctx context.Context, actor domain.Actor, fn func(ctx context.Context, tx Tx, user *domain.User) error) error
}
