package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/middleware"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/req"
	"github.com/Dhoini/subscription-service/pkg/res"
)

// SubscriptionService операции жизненного цикла подписки
type SubscriptionService interface {
	Create(ctx context.Context, actor domain.Actor) (string, error)
	Verify(ctx context.Context, actor domain.Actor, input service.VerifyInput) error
	Cancel(ctx context.Context, actor domain.Actor) (service.CancelResult, error)
	PublicKey() string
}

// SubscriptionHandler обрабатывает HTTP запросы, связанные с подписками.
type SubscriptionHandler struct {
	service SubscriptionService
	log     *logger.Logger
}

// NewSubscriptionHandler создает новый экземпляр SubscriptionHandler.
func NewSubscriptionHandler(service SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		log:     log,
	}
}

// VerifyRequest тело запроса подтверждения платежа от Razorpay Checkout
type VerifyRequest struct {
	PaymentID      string `json:"razorpay_payment_id" validate:"required"`
	Signature      string `json:"razorpay_signature" validate:"required"`
	SubscriptionID string `json:"razorpay_subscription_id"`
}

// Subscribe обрабатывает POST /payments/subscribe
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	subscriptionID, err := h.service.Create(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err, nil, h.log)
		return
	}

	res.Success(c.Writer, http.StatusCreated, "Subscribed successfully", map[string]any{
		"subscription_id": subscriptionID,
	})
}

// Verify обрабатывает POST /payments/verify
func (h *SubscriptionHandler) Verify(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	body, err := req.HandleBody[VerifyRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	err = h.service.Verify(c.Request.Context(), actor, service.VerifyInput{
		PaymentID:      body.PaymentID,
		Signature:      body.Signature,
		SubscriptionID: body.SubscriptionID,
	})
	if err != nil {
		writeError(c, err, nil, h.log)
		return
	}

	res.Success(c.Writer, http.StatusOK, "Payment verified successfully", nil)
}

// Unsubscribe обрабатывает POST /payments/unsubscribe.
// Ошибка возврата не отменяет отмену подписки, это видно по полю cancelled.
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), actor)
	if err != nil {
		var details any
		if result.Cancelled {
			details = gin.H{"cancelled": true, "refunded": false, "subscription_id": result.SubscriptionID}
		}
		writeError(c, err, details, h.log)
		return
	}

	res.Success(c.Writer, http.StatusOK, "Subscription cancelled and refunded successfully", map[string]any{
		"subscription_id": result.SubscriptionID,
		"cancelled":       result.Cancelled,
		"refunded":        result.Refunded,
		"refund_id":       result.RefundID,
	})
}

// RazorpayKey обрабатывает GET /payments/razorpay-key
func (h *SubscriptionHandler) RazorpayKey(c *gin.Context) {
	res.Success(c.Writer, http.StatusOK, "Razorpay key", map[string]any{
		"key": h.service.PublicKey(),
	})
}

func (h *SubscriptionHandler) actor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		writeError(c, domain.NewSubscriptionError(domain.KindAuthentication, "Unauthorized", "", nil), nil, h.log)
		return domain.Actor{}, false
	}
	return actor, true
}

// writeError пишет ошибку подписки с ее HTTP статусом
func writeError(c *gin.Context, err error, details any, log *logger.Logger) {
	_ = c.Error(err)
	res.JsonErrorResponse(c.Writer, res.ErrorResponse{
		Message: domain.PublicMessage(err),
		Details: details,
	}, domain.StatusCode(err), log)
	c.Abort()
}
