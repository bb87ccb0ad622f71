package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Application errors
var (
	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden действие запрещено для роли пользователя
	ErrForbidden = errors.New("forbidden")

	// ErrPrecondition состояние подписки не допускает операцию
	ErrPrecondition = errors.New("precondition failed")

	// ErrVerificationFailed подпись платежа не совпала
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrDuplicate дубликат записи
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrRefundWindowExpired окно возврата истекло
	ErrRefundWindowExpired = errors.New("refund window expired")

	// ErrUpstream ошибка платежного шлюза
	ErrUpstream = errors.New("payment gateway failure")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("internal error")
)

// ErrorKind категория ошибки, определяющая HTTP статус
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindPrecondition   ErrorKind = "precondition"
	KindVerification   ErrorKind = "verification"
	KindConflict       ErrorKind = "conflict"
	KindNotFound       ErrorKind = "not_found"
	KindPolicy         ErrorKind = "policy"
	KindUpstream       ErrorKind = "upstream"
	KindValidation     ErrorKind = "validation"
	KindInternal       ErrorKind = "internal"
)

var kindSentinels = map[ErrorKind]error{
	KindAuthentication: ErrUnauthenticated,
	KindAuthorization:  ErrForbidden,
	KindPrecondition:   ErrPrecondition,
	KindVerification:   ErrVerificationFailed,
	KindConflict:       ErrDuplicate,
	KindNotFound:       ErrNotFound,
	KindPolicy:         ErrRefundWindowExpired,
	KindUpstream:       ErrUpstream,
	KindValidation:     ErrInvalidInput,
	KindInternal:       ErrInternal,
}

var kindStatus = map[ErrorKind]int{
	KindAuthentication: http.StatusUnauthorized,
	KindAuthorization:  http.StatusForbidden,
	KindPrecondition:   http.StatusBadRequest,
	KindVerification:   http.StatusBadRequest,
	KindConflict:       http.StatusConflict,
	KindNotFound:       http.StatusNotFound,
	KindPolicy:         http.StatusBadRequest,
	KindUpstream:       http.StatusInternalServerError,
	KindValidation:     http.StatusUnprocessableEntity,
	KindInternal:       http.StatusInternalServerError,
}

// SubscriptionError представляет ошибку операции над подпиской
type SubscriptionError struct {
	Kind           ErrorKind
	Message        string
	SubscriptionID string
	StatusCode     int
	OriginalErr    error
}

// Error реализует интерфейс error
func (e *SubscriptionError) Error() string {
	msg := fmt.Sprintf("subscription error [%s]: %s", e.Kind, e.Message)
	if e.OriginalErr != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.OriginalErr)
	}
	if e.SubscriptionID != "" {
		msg = fmt.Sprintf("%s (subscription_id: %s)", msg, e.SubscriptionID)
	}
	return msg
}

// Unwrap возвращает оригинальную ошибку
func (e *SubscriptionError) Unwrap() error {
	return e.OriginalErr
}

// Is сопоставляет ошибку с сентинелом ее категории
func (e *SubscriptionError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewSubscriptionError создает ошибку с HTTP статусом по умолчанию для категории
func NewSubscriptionError(kind ErrorKind, message, subscriptionID string, err error) *SubscriptionError {
	return &SubscriptionError{
		Kind:           kind,
		Message:        message,
		SubscriptionID: subscriptionID,
		StatusCode:     kindStatus[kind],
		OriginalErr:    err,
	}
}

// GatewayError ошибка, которую вернул платежный шлюз.
// OutcomeUnknown выставляется, когда запрос уже ушел в шлюз, а ответ не дождались.
type GatewayError struct {
	Operation      string
	Description    string
	StatusCode     int
	OutcomeUnknown bool
	OriginalErr    error
}

// Error реализует интерфейс error
func (e *GatewayError) Error() string {
	return fmt.Sprintf("razorpay %s failed (%d): %s", e.Operation, e.StatusCode, e.Description)
}

// Unwrap возвращает оригинальную ошибку
func (e *GatewayError) Unwrap() error {
	return e.OriginalErr
}

// Is позволяет проверять errors.Is(err, ErrUpstream)
func (e *GatewayError) Is(target error) bool {
	return target == ErrUpstream
}

// NewGatewayError создает ошибку шлюза; нулевой статус заменяется на 500.
func NewGatewayError(operation, description string, statusCode int, err error) *GatewayError {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	return &GatewayError{
		Operation:   operation,
		Description: description,
		StatusCode:  statusCode,
		OriginalErr: err,
	}
}

// IsOutcomeUnknown сообщает, что шлюз мог выполнить операцию несмотря на ошибку
func IsOutcomeUnknown(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.OutcomeUnknown
}

// UpstreamError переводит ошибку шлюза в ошибку подписки, сохраняя описание и статус.
func UpstreamError(fallback, subscriptionID string, err error) *SubscriptionError {
	se := NewSubscriptionError(KindUpstream, fallback, subscriptionID, err)
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Description != "" {
			se.Message = gwErr.Description
		}
		se.StatusCode = gwErr.StatusCode
	}
	return se
}

// KindOf возвращает категорию ошибки; неизвестные ошибки считаются внутренними.
func KindOf(err error) ErrorKind {
	var se *SubscriptionError
	if errors.As(err, &se) {
		return se.Kind
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return KindUpstream
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// StatusCode возвращает HTTP статус для ошибки
func StatusCode(err error) int {
	var se *SubscriptionError
	if errors.As(err, &se) && se.StatusCode != 0 {
		return se.StatusCode
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.StatusCode
	}
	return kindStatus[KindOf(err)]
}

// PublicMessage возвращает сообщение, которое можно показать клиенту
func PublicMessage(err error) string {
	var se *SubscriptionError
	if errors.As(err, &se) {
		return se.Message
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) && gwErr.Description != "" {
		return gwErr.Description
	}
	if KindOf(err) == KindInternal {
		return "Internal server error"
	}
	return err.Error()
}

// NotFoundError представляет ошибку "не найдено"
type NotFoundError struct {
	Entity string
	ID     string
}

// Error реализует интерфейс error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is проверяет, является ли ошибка ошибкой типа "не найдено"
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError создает новую ошибку "не найдено"
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// DuplicateError представляет ошибку дубликата
type DuplicateError struct {
	Entity string
	Field  string
	Value  string
}

// Error реализует интерфейс error
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s '%s' already exists", e.Entity, e.Field, e.Value)
}

// Is проверяет, является ли ошибка ошибкой дубликата
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// NewDuplicateError создает новую ошибку дубликата
func NewDuplicateError(entity, field, value string) *DuplicateError {
	return &DuplicateError{
		Entity: entity,
		Field:  field,
		Value:  value,
	}
}
