package razorpay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"

	sdk "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
)

// Client определяет методы для взаимодействия с Razorpay API.
type Client interface {
	// CreateSubscription создает подписку по плану и возвращает ее снимок.
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (domain.GatewaySubscription, error)

	// CancelSubscription немедленно отменяет подписку.
	CancelSubscription(ctx context.Context, subscriptionID, idempotencyKey string) (domain.GatewaySubscription, error)

	// RefundPayment возвращает полную сумму платежа.
	RefundPayment(ctx context.Context, paymentID string, params RefundParams) (domain.Refund, error)

	// ListSubscriptions возвращает страницу подписок.
	ListSubscriptions(ctx context.Context, count, skip int) ([]domain.GatewaySubscription, error)

	// KeyID публичный ключ для checkout на клиенте.
	KeyID() string
}

// CreateSubscriptionParams параметры создания подписки
type CreateSubscriptionParams struct {
	PlanID         string
	TotalCount     int
	CustomerNotify bool
	UserID         string
	IdempotencyKey string
}

// RefundParams параметры возврата
type RefundParams struct {
	Speed          domain.RefundSpeed
	IdempotencyKey string
}

// Observer получает длительность каждого запроса к шлюзу
type Observer interface {
	ObserveGatewayRequest(operation string, err error, duration time.Duration)
}

// Config конфигурация для клиента Razorpay
type Config struct {
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// subscriptionAPI часть SDK, отвечающая за подписки
type subscriptionAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Cancel(subscriptionID string, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	All(queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// paymentAPI часть SDK, отвечающая за платежи
type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// razorpayClient реализует интерфейс Client.
type razorpayClient struct {
	keyID         string
	timeout       time.Duration
	subscriptions subscriptionAPI
	payments      paymentAPI
	observer      Observer
	log           *logger.Logger
}

// NewClient создает клиент Razorpay. Создается один раз при старте и передается зависимым.
func NewClient(cfg Config, observer Observer, log *logger.Logger) Client {
	api := sdk.NewClient(cfg.KeyID, cfg.KeySecret)
	return newClient(cfg, api.Subscription, api.Payment, observer, log)
}

func newClient(cfg Config, subs subscriptionAPI, payments paymentAPI, observer Observer, log *logger.Logger) *razorpayClient {
	return &razorpayClient{
		keyID:         cfg.KeyID,
		timeout:       cfg.Timeout,
		subscriptions: subs,
		payments:      payments,
		observer:      observer,
		log:           log,
	}
}

func (c *razorpayClient) KeyID() string {
	return c.keyID
}

// CreateSubscription создает подписку в Razorpay.
func (c *razorpayClient) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (domain.GatewaySubscription, error) {
	notify := 0
	if params.CustomerNotify {
		notify = 1
	}
	data := map[string]interface{}{
		"plan_id":         params.PlanID,
		"customer_notify": notify,
		"total_count":     params.TotalCount,
		"notes": map[string]interface{}{
			"user_id":         params.UserID,
			"idempotency_key": params.IdempotencyKey,
		},
	}

	body, err := c.call(ctx, "create_subscription", func() (map[string]interface{}, error) {
		return c.subscriptions.Create(data, nil)
	})
	if err != nil {
		return domain.GatewaySubscription{}, err
	}

	sub := toGatewaySubscription(body)
	c.log.Infow("Razorpay subscription created", "subscriptionID", sub.ID, "status", sub.Status, "userID", params.UserID)
	return sub, nil
}

// CancelSubscription отменяет подписку немедленно (cancel_at_cycle_end = 0).
func (c *razorpayClient) CancelSubscription(ctx context.Context, subscriptionID, idempotencyKey string) (domain.GatewaySubscription, error) {
	data := map[string]interface{}{
		"cancel_at_cycle_end": 0,
	}
	if idempotencyKey != "" {
		data["notes"] = map[string]interface{}{
			"idempotency_key": idempotencyKey,
		}
	}

	body, err := c.call(ctx, "cancel_subscription", func() (map[string]interface{}, error) {
		return c.subscriptions.Cancel(subscriptionID, data, nil)
	})
	if err != nil {
		return domain.GatewaySubscription{}, err
	}

	sub := toGatewaySubscription(body)
	c.log.Infow("Razorpay subscription cancelled", "subscriptionID", sub.ID, "status", sub.Status, "idempotencyKey", idempotencyKey)
	return sub, nil
}

// RefundPayment получает сумму платежа и возвращает ее полностью.
func (c *razorpayClient) RefundPayment(ctx context.Context, paymentID string, params RefundParams) (domain.Refund, error) {
	payment, err := c.call(ctx, "fetch_payment", func() (map[string]interface{}, error) {
		return c.payments.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return domain.Refund{}, err
	}

	amount := int(int64Value(payment, "amount"))
	if amount <= 0 {
		return domain.Refund{}, domain.NewGatewayError("refund", "payment has no refundable amount", http.StatusBadRequest, nil)
	}

	speed := params.Speed
	if speed == "" {
		speed = domain.RefundSpeedOptimum
	}
	data := map[string]interface{}{
		"speed":   string(speed),
		"receipt": params.IdempotencyKey,
		"notes": map[string]interface{}{
			"idempotency_key": params.IdempotencyKey,
		},
	}

	body, err := c.call(ctx, "refund", func() (map[string]interface{}, error) {
		return c.payments.Refund(paymentID, amount, data, nil)
	})
	if err != nil {
		return domain.Refund{}, err
	}

	refund := toRefund(body)
	c.log.Infow("Razorpay refund issued", "paymentID", paymentID, "refundID", refund.ID, "amount", refund.Amount, "status", refund.Status)
	return refund, nil
}

// ListSubscriptions возвращает страницу подписок.
func (c *razorpayClient) ListSubscriptions(ctx context.Context, count, skip int) ([]domain.GatewaySubscription, error) {
	query := map[string]interface{}{
		"count": count,
		"skip":  skip,
	}

	body, err := c.call(ctx, "list_subscriptions", func() (map[string]interface{}, error) {
		return c.subscriptions.All(query, nil)
	})
	if err != nil {
		return nil, err
	}
	return toGatewaySubscriptions(body), nil
}

type callResult struct {
	body map[string]interface{}
	err  error
}

// call выполняет запрос SDK с учетом контекста и таймаута.
// SDK не принимает context, поэтому запрос идет в отдельной горутине.
func (c *razorpayClient) call(ctx context.Context, operation string, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewGatewayError(operation, "request cancelled", http.StatusGatewayTimeout, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan callResult, 1)
	go func() {
		body, err := fn()
		done <- callResult{body: body, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-ctx.Done():
		// горутина SDK продолжает работу, результат запроса неизвестен
		gwErr := domain.NewGatewayError(operation, "request timed out, outcome unknown", http.StatusGatewayTimeout, ctx.Err())
		gwErr.OutcomeUnknown = true
		res.err = gwErr
		go c.logLateResult(operation, done)
	}

	if res.err != nil {
		res.err = c.wrapError(operation, res.err)
	}
	if c.observer != nil {
		c.observer.ObserveGatewayRequest(operation, res.err, time.Since(start))
	}
	return res.body, res.err
}

// logLateResult дожидается брошенного запроса и пишет его итог для сверки
func (c *razorpayClient) logLateResult(operation string, done <-chan callResult) {
	res := <-done
	if res.err != nil {
		c.log.Warnw("Abandoned Razorpay request failed", "operation", operation, "error", res.err)
		return
	}
	c.log.Warnw("Abandoned Razorpay request completed after timeout", "operation", operation, "id", stringValue(res.body, "id"))
}

// wrapError приводит ошибки SDK к domain.GatewayError
func (c *razorpayClient) wrapError(operation string, err error) error {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		c.log.Errorw("Razorpay request failed", "operation", operation, "status", gwErr.StatusCode, "error", gwErr.Description)
		return err
	}

	status := http.StatusInternalServerError
	var badRequest *rzperrors.BadRequestError
	var serverErr *rzperrors.ServerError
	var gatewayErr *rzperrors.GatewayError
	switch {
	case errors.As(err, &badRequest):
		status = http.StatusBadRequest
	case errors.As(err, &gatewayErr):
		status = http.StatusBadGateway
	case errors.As(err, &serverErr):
		status = http.StatusInternalServerError
	}

	c.log.Errorw("Razorpay request failed", "operation", operation, "status", status, "error", err)
	return domain.NewGatewayError(operation, err.Error(), status, fmt.Errorf("razorpay %s: %w", operation, err))
}
