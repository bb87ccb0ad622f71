package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/razorpay"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/google/uuid"
)

// Операции для метрик и логов
const (
	opCreate = "create"
	opVerify = "verify"
	opCancel = "cancel"
	opRefund = "refund"
)

// gatewayCancelledStatuses статусы шлюза, подтверждающие отмену
var gatewayCancelledStatuses = map[string]bool{
	"cancelled": true,
	"inactive":  true,
	"completed": true,
	"expired":   true,
}

// SubscriptionConfig параметры подписки
type SubscriptionConfig struct {
	PlanID         string
	TotalCount     int
	RefundSpeed    domain.RefundSpeed
	TerminalStatus domain.SubscriptionStatus
}

// Dependencies зависимости сервиса подписок
type Dependencies struct {
	Store     repository.Store
	Gateway   razorpay.Client
	Verifier  *razorpay.SignatureVerifier
	Policy    RefundPolicy
	Producer  kafka.Producer
	PageCache repository.SubscriptionPageCache
	Metrics   metrics.SubscriptionMetrics
	Log       *logger.Logger
}

// VerifyInput данные подтверждения платежа от клиента
type VerifyInput struct {
	PaymentID string
	Signature string
	// SubscriptionID из запроса клиента; для подписи не используется
	SubscriptionID string
}

// CancelResult итог отмены. Cancelled может быть true даже при ошибке возврата.
type CancelResult struct {
	SubscriptionID string
	Cancelled      bool
	Refunded       bool
	RefundID       string
}

// SubscriptionService машина состояний подписки пользователя
type SubscriptionService struct {
	cfg       SubscriptionConfig
	store     repository.Store
	gateway   razorpay.Client
	verifier  *razorpay.SignatureVerifier
	policy    RefundPolicy
	producer  kafka.Producer
	pageCache repository.SubscriptionPageCache
	metrics   metrics.SubscriptionMetrics
	log       *logger.Logger
	now       func() time.Time
	newKey    func() string
}

// NewSubscriptionService создает сервис подписок
func NewSubscriptionService(cfg SubscriptionConfig, deps Dependencies) *SubscriptionService {
	if cfg.TotalCount <= 0 {
		cfg.TotalCount = 12
	}
	if cfg.RefundSpeed == "" {
		cfg.RefundSpeed = domain.RefundSpeedOptimum
	}
	if !cfg.TerminalStatus.IsTerminal() {
		cfg.TerminalStatus = domain.SubscriptionStatusInactive
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopSubscriptionMetrics{}
	}
	if deps.Producer == nil {
		deps.Producer = kafka.NewNoOpProducer(deps.Log)
	}

	return &SubscriptionService{
		cfg:       cfg,
		store:     deps.Store,
		gateway:   deps.Gateway,
		verifier:  deps.Verifier,
		policy:    deps.Policy,
		producer:  deps.Producer,
		pageCache: deps.PageCache,
		metrics:   deps.Metrics,
		log:       deps.Log,
		now:       func() time.Time { return time.Now().UTC() },
		newKey:    uuid.NewString,
	}
}

// WithClock подменяет часы. Используется в тестах.
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	s.now = now
	return s
}

// PublicKey ключ Razorpay для checkout на клиенте
func (s *SubscriptionService) PublicKey() string {
	return s.gateway.KeyID()
}

// Create создает подписку в шлюзе и сохраняет ее ID и статус у пользователя.
func (s *SubscriptionService) Create(ctx context.Context, actor domain.Actor) (subscriptionID string, err error) {
	defer func() { s.metrics.IncOperation(opCreate, err) }()

	if actor.IsAdmin() {
		return "", domain.NewSubscriptionError(domain.KindAuthorization, "Admin cannot purchase a subscription", "", nil)
	}

	err = s.store.WithUserLock(ctx, actor, func(ctx context.Context, tx repository.Tx, user *domain.User) error {
		if user.IsAdmin() {
			return domain.NewSubscriptionError(domain.KindAuthorization, "Admin cannot purchase a subscription", "", nil)
		}
		if user.Subscription.Status == domain.SubscriptionStatusActive {
			return domain.NewSubscriptionError(domain.KindPrecondition, "Subscription is already active", user.Subscription.ID, nil)
		}

		sub, err := s.gateway.CreateSubscription(ctx, razorpay.CreateSubscriptionParams{
			PlanID:         s.cfg.PlanID,
			TotalCount:     s.cfg.TotalCount,
			CustomerNotify: true,
			UserID:         user.ID,
			IdempotencyKey: s.newKey(),
		})
		if err != nil {
			return domain.UpstreamError("Failed to create subscription", "", err)
		}
		if sub.ID == "" {
			return domain.NewSubscriptionError(domain.KindUpstream, "Payment gateway returned no subscription id", "", nil)
		}

		status := domain.SubscriptionStatus(sub.Status)
		if status == domain.SubscriptionStatusNone || !status.Valid() {
			status = domain.SubscriptionStatusCreated
		}
		user.Subscription = domain.UserSubscription{ID: sub.ID, Status: status}
		if err := tx.Users().UpdateSubscription(ctx, user); err != nil {
			s.log.Errorw("Gateway subscription created but not saved", "error", err, "userID", user.ID, "subscriptionID", sub.ID)
			return err
		}
		subscriptionID = sub.ID
		return nil
	})
	if err != nil {
		s.logFailure(opCreate, actor, subscriptionID, err)
		return "", err
	}

	s.log.Infow("Subscription created", "userID", actor.UserID, "subscriptionID", subscriptionID)
	s.publish(ctx, kafka.SubscriptionEvent{
		Type:           kafka.EventSubscriptionCreated,
		UserID:         actor.UserID,
		Email:          actor.Email,
		SubscriptionID: subscriptionID,
		Status:         string(domain.SubscriptionStatusCreated),
	})
	s.invalidatePages(ctx)
	return subscriptionID, nil
}

// Verify проверяет подпись платежа против сохраненного ID подписки,
// затем в одной транзакции записывает платеж и активирует подписку.
func (s *SubscriptionService) Verify(ctx context.Context, actor domain.Actor, input VerifyInput) (err error) {
	defer func() { s.metrics.IncOperation(opVerify, err) }()

	if input.PaymentID == "" || input.Signature == "" {
		return domain.NewSubscriptionError(domain.KindValidation, "razorpay_payment_id and razorpay_signature are required", "", nil)
	}

	var subscriptionID string
	err = s.store.WithUserLock(ctx, actor, func(ctx context.Context, tx repository.Tx, user *domain.User) error {
		subscriptionID = user.Subscription.ID
		if subscriptionID == "" {
			return domain.NewSubscriptionError(domain.KindPrecondition, "No subscription found for user", "", nil)
		}
		if user.Subscription.Status.IsTerminal() {
			return domain.NewSubscriptionError(domain.KindPrecondition, "Subscription is already cancelled", subscriptionID, nil)
		}
		if input.SubscriptionID != "" && input.SubscriptionID != subscriptionID {
			s.log.Warnw("Client subscription id differs from stored one",
				"userID", user.ID, "stored", subscriptionID, "client", input.SubscriptionID)
		}

		if !s.verifier.Verify(input.PaymentID, subscriptionID, input.Signature) {
			return domain.NewSubscriptionError(domain.KindVerification, "Payment not verified, please try again", subscriptionID, nil)
		}

		record := domain.NewPaymentRecord(input.PaymentID, subscriptionID, input.Signature, s.now())
		if err := tx.PaymentRecords().Create(ctx, record); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.NewSubscriptionError(domain.KindConflict, "Payment already recorded", subscriptionID, err)
			}
			return err
		}

		user.Subscription.Status = domain.SubscriptionStatusActive
		if user.Role == domain.RoleUser || user.Role == "" {
			user.Role = domain.RoleSubscriber
		}
		return tx.Users().UpdateSubscription(ctx, user)
	})
	if err != nil {
		s.logFailure(opVerify, actor, subscriptionID, err)
		return err
	}

	s.log.Infow("Subscription payment verified", "userID", actor.UserID, "subscriptionID", subscriptionID, "paymentID", input.PaymentID)
	s.publish(ctx, kafka.SubscriptionEvent{
		Type:           kafka.EventSubscriptionActivated,
		UserID:         actor.UserID,
		Email:          actor.Email,
		SubscriptionID: subscriptionID,
		Status:         string(domain.SubscriptionStatusActive),
		PaymentID:      input.PaymentID,
	})
	s.invalidatePages(ctx)
	return nil
}

// Cancel отменяет подписку в шлюзе, затем пытается вернуть платеж.
// Отмена и возврат - две транзакции: отказ в возврате не отменяет отмену.
func (s *SubscriptionService) Cancel(ctx context.Context, actor domain.Actor) (result CancelResult, err error) {
	defer func() { s.metrics.IncOperation(opCancel, err) }()

	if actor.IsAdmin() {
		return result, domain.NewSubscriptionError(domain.KindAuthorization, "Admin cannot cancel subscription", "", nil)
	}

	err = s.store.WithUserLock(ctx, actor, func(ctx context.Context, tx repository.Tx, user *domain.User) error {
		if user.IsAdmin() {
			return domain.NewSubscriptionError(domain.KindAuthorization, "Admin cannot cancel subscription", "", nil)
		}
		result.SubscriptionID = user.Subscription.ID
		if result.SubscriptionID == "" {
			return domain.NewSubscriptionError(domain.KindPrecondition, "No subscription found for user", "", nil)
		}
		if user.Subscription.Status.IsTerminal() {
			return domain.NewSubscriptionError(domain.KindPrecondition, "Subscription is already cancelled", result.SubscriptionID, nil)
		}

		sub, err := s.gateway.CancelSubscription(ctx, result.SubscriptionID, s.newKey())
		if err != nil {
			return domain.UpstreamError("Failed to cancel subscription", result.SubscriptionID, err)
		}
		if !gatewayCancelledStatuses[sub.Status] {
			s.log.Errorw("Gateway did not confirm cancellation", "subscriptionID", result.SubscriptionID, "gatewayStatus", sub.Status)
			return domain.NewSubscriptionError(domain.KindUpstream, "Subscription was not cancelled by the payment gateway", result.SubscriptionID, nil)
		}

		user.Subscription.Status = s.cfg.TerminalStatus
		if err := tx.Users().UpdateSubscription(ctx, user); err != nil {
			s.log.Errorw("Gateway subscription cancelled but local status not saved",
				"error", err, "userID", user.ID, "subscriptionID", result.SubscriptionID)
			return err
		}
		return nil
	})
	if err != nil {
		s.logFailure(opCancel, actor, result.SubscriptionID, err)
		return CancelResult{SubscriptionID: result.SubscriptionID}, err
	}

	result.Cancelled = true
	s.log.Infow("Subscription cancelled", "userID", actor.UserID, "subscriptionID", result.SubscriptionID)
	s.publish(ctx, kafka.SubscriptionEvent{
		Type:           kafka.EventSubscriptionCancelled,
		UserID:         actor.UserID,
		Email:          actor.Email,
		SubscriptionID: result.SubscriptionID,
		Status:         string(s.cfg.TerminalStatus),
	})
	s.invalidatePages(ctx)

	refund, err := s.refund(ctx, actor, result.SubscriptionID)
	if err != nil {
		return result, err
	}
	result.Refunded = true
	result.RefundID = refund.ID
	return result, nil
}

// refund второй шаг отмены. Локальные изменения выполняются до вызова шлюза,
// коммит происходит только после успешного возврата.
func (s *SubscriptionService) refund(ctx context.Context, actor domain.Actor, subscriptionID string) (refund domain.Refund, err error) {
	var (
		paymentID    string
		refundIssued bool
	)

	err = s.store.WithUserLock(ctx, actor, func(ctx context.Context, tx repository.Tx, user *domain.User) error {
		if user.Subscription.ID != subscriptionID || !user.Subscription.Status.IsTerminal() {
			return domain.NewSubscriptionError(domain.KindPrecondition, "Subscription changed during cancellation", subscriptionID, nil)
		}

		record, err := tx.PaymentRecords().GetBySubscriptionID(ctx, subscriptionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewSubscriptionError(domain.KindNotFound, "Payment record not found", subscriptionID, err)
			}
			return err
		}
		paymentID = record.GatewayPaymentID

		if !s.policy.Eligible(record.CreatedAt, s.now()) {
			return domain.NewSubscriptionError(domain.KindPolicy, "Refund period is over", subscriptionID, nil)
		}

		if err := tx.PaymentRecords().Delete(ctx, record.ID); err != nil {
			return err
		}
		user.Subscription = domain.UserSubscription{}
		if user.Role == domain.RoleSubscriber {
			user.Role = domain.RoleUser
		}
		if err := tx.Users().UpdateSubscription(ctx, user); err != nil {
			return err
		}

		refund, err = s.gateway.RefundPayment(ctx, record.GatewayPaymentID, razorpay.RefundParams{
			Speed:          s.cfg.RefundSpeed,
			IdempotencyKey: s.newKey(),
		})
		if err != nil {
			return domain.UpstreamError("Failed to process refund", subscriptionID, err)
		}
		refundIssued = true
		return nil
	})
	if err != nil {
		switch {
		case refundIssued:
			s.log.Errorw("Refund issued but local state was not committed, manual reconciliation required",
				"error", err, "userID", actor.UserID, "subscriptionID", subscriptionID, "paymentID", paymentID, "refundID", refund.ID)
		case domain.IsOutcomeUnknown(err):
			// запись платежа остается для сверки с шлюзом
			s.log.Errorw("Refund outcome unknown, manual reconciliation required",
				"error", err, "userID", actor.UserID, "subscriptionID", subscriptionID, "paymentID", paymentID)
		}
		s.metrics.IncRefund(string(domain.KindOf(err)))
		s.logFailure(opRefund, actor, subscriptionID, err)
		return domain.Refund{}, err
	}

	s.metrics.IncRefund("refunded")
	s.log.Infow("Subscription payment refunded", "userID", actor.UserID, "subscriptionID", subscriptionID, "paymentID", paymentID, "refundID", refund.ID)
	s.publish(ctx, kafka.SubscriptionEvent{
		Type:           kafka.EventSubscriptionRefunded,
		UserID:         actor.UserID,
		Email:          actor.Email,
		SubscriptionID: subscriptionID,
		PaymentID:      paymentID,
		RefundID:       refund.ID,
	})
	return refund, nil
}

// publish отправляет событие; ошибка публикации не влияет на результат операции
func (s *SubscriptionService) publish(ctx context.Context, event kafka.SubscriptionEvent) {
	event.Timestamp = s.now()
	if err := s.producer.PublishSubscriptionEvent(ctx, event); err != nil {
		s.log.Warnw("Failed to publish subscription event", "error", err, "type", event.Type, "userID", event.UserID)
	}
}

func (s *SubscriptionService) invalidatePages(ctx context.Context) {
	if s.pageCache == nil {
		return
	}
	if err := s.pageCache.InvalidatePages(ctx); err != nil {
		s.log.Warnw("Failed to invalidate subscriptions page cache", "error", err)
	}
}

func (s *SubscriptionService) logFailure(op string, actor domain.Actor, subscriptionID string, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal || kind == domain.KindUpstream {
		s.log.Errorw("Subscription operation failed", "operation", op, "userID", actor.UserID, "subscriptionID", subscriptionID, "error", err)
		return
	}
	s.log.Warnw("Subscription operation rejected", "operation", op, "userID", actor.UserID, "subscriptionID", subscriptionID, "kind", kind, "error", err)
}
