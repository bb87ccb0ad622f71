package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore хранилище в памяти. Используется в тестах и при запуске без DATABASE_DSN.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	records map[uuid.UUID]domain.PaymentRecord
	locks   sync.Map // userID -> *sync.Mutex
}

// NewMemoryStore создает пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		records: make(map[uuid.UUID]domain.PaymentRecord),
	}
}

// PutUser сохраняет пользователя как есть
func (s *MemoryStore) PutUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// PaymentRecordCount количество записей о платежах
func (s *MemoryStore) PaymentRecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Users() UserRepository {
	return &memoryUsers{s: s}
}

func (s *MemoryStore) PaymentRecords() PaymentRecordRepository {
	return &memoryRecords{s: s}
}

func (s *MemoryStore) userLock(userID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// WithUserLock сериализует операции одного пользователя и откатывает изменения при ошибке fn.
func (s *MemoryStore) WithUserLock(ctx context.Context, actor domain.Actor, fn func(ctx context.Context, tx Tx, user *domain.User) error) error {
	if actor.UserID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidData)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.userLock(actor.UserID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	user, ok := s.users[actor.UserID]
	if !ok {
		role := actor.Role
		if role == "" {
			role = domain.RoleUser
		}
		user = domain.User{ID: actor.UserID, Email: actor.Email, Role: role, UpdatedAt: time.Now().UTC()}
		s.users[user.ID] = user
	}
	s.mu.Unlock()

	tx := &memoryTx{s: s}
	if err := fn(ctx, tx, &user); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memoryTx журнал отмены для одной транзакции
type memoryTx struct {
	s    *MemoryStore
	undo []func()
}

func (t *memoryTx) Users() UserRepository {
	return &memoryUsers{s: t.s, tx: t}
}

func (t *memoryTx) PaymentRecords() PaymentRecordRepository {
	return &memoryRecords{s: t.s, tx: t}
}

func (t *memoryTx) record(undo func()) {
	t.undo = append(t.undo, undo)
}

func (t *memoryTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

type memoryUsers struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r *memoryUsers) GetByID(_ context.Context, userID string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[userID]
	if !ok {
		return nil, domain.NewNotFoundError("user", userID)
	}
	return &user, nil
}

func (r *memoryUsers) UpdateSubscription(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.users[user.ID]
	if !ok {
		return domain.NewNotFoundError("user", user.ID)
	}
	if r.tx != nil {
		original := prev
		r.tx.record(func() { r.s.users[original.ID] = original })
	}
	updated := prev
	updated.Subscription = user.Subscription
	updated.Role = user.Role
	updated.UpdatedAt = time.Now().UTC()
	r.s.users[user.ID] = updated
	user.UpdatedAt = updated.UpdatedAt
	return nil
}

type memoryRecords struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r *memoryRecords) Create(_ context.Context, record *domain.PaymentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.records {
		if existing.GatewayPaymentID == record.GatewayPaymentID {
			return domain.NewDuplicateError("payment_record", "razorpay_payment_id", record.GatewayPaymentID)
		}
		if existing.GatewaySubscriptionID == record.GatewaySubscriptionID {
			return domain.NewDuplicateError("payment_record", "razorpay_subscription_id", record.GatewaySubscriptionID)
		}
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.s.records[record.ID] = *record
	if r.tx != nil {
		id := record.ID
		r.tx.record(func() { delete(r.s.records, id) })
	}
	return nil
}

func (r *memoryRecords) GetBySubscriptionID(_ context.Context, subscriptionID string) (*domain.PaymentRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, record := range r.s.records {
		if record.GatewaySubscriptionID == subscriptionID {
			rec := record
			return &rec, nil
		}
	}
	return nil, domain.NewNotFoundError("payment_record", subscriptionID)
}

func (r *memoryRecords) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record, ok := r.s.records[id]
	if !ok {
		return domain.NewNotFoundError("payment_record", id.String())
	}
	delete(r.s.records, id)
	if r.tx != nil {
		r.tx.record(func() { r.s.records[id] = record })
	}
	return nil
}
