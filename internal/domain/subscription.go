package domain

import "time"

// SubscriptionStatus статус подписки, хранимый в учетной записи пользователя
type SubscriptionStatus string

const (
	SubscriptionStatusNone      SubscriptionStatus = ""
	SubscriptionStatusCreated   SubscriptionStatus = "created"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// IsTerminal сообщает, что подписка уже отменена.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusInactive || s == SubscriptionStatusCancelled
}

// Valid проверяет, что статус входит в известный набор.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusNone, SubscriptionStatusCreated, SubscriptionStatusActive,
		SubscriptionStatusInactive, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// Role роль пользователя
type Role string

const (
	RoleUser       Role = "user"
	RoleSubscriber Role = "subscriber"
	RoleAdmin      Role = "admin"
)

// UserSubscription вложенная запись подписки пользователя.
// Status имеет смысл только при непустом ID.
type UserSubscription struct {
	ID     string             `json:"id,omitempty"`
	Status SubscriptionStatus `json:"status,omitempty"`
}

// IsZero сообщает, что подписки нет.
func (s UserSubscription) IsZero() bool {
	return s.ID == ""
}

// User часть учетной записи, которую читает и пишет сервис подписок
type User struct {
	ID           string           `json:"id"`
	Email        string           `json:"email,omitempty"`
	Role         Role             `json:"role"`
	Subscription UserSubscription `json:"subscription"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsAdmin true для администраторов
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// GatewaySubscription снимок подписки на стороне платежного шлюза
type GatewaySubscription struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	PlanID     string `json:"plan_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	// StartAt секунды Unix; 0 если шлюз не вернул значение
	StartAt    int64 `json:"start_at,omitempty"`
	TotalCount int   `json:"total_count,omitempty"`
	PaidCount  int   `json:"paid_count,omitempty"`
	CreatedAt  int64 `json:"created_at,omitempty"`
}
