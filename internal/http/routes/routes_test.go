package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dhoini/subscription-service/internal/app"
	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/razorpay"
	"github.com/Dhoini/subscription-service/internal/middleware"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	next int
	subs []domain.GatewaySubscription
}

func (g *stubGateway) CreateSubscription(_ context.Context, p razorpay.CreateSubscriptionParams) (domain.GatewaySubscription, error) {
	g.next++
	sub := domain.GatewaySubscription{
		ID:      fmt.Sprintf("sub_%d", g.next),
		Status:  "created",
		PlanID:  p.PlanID,
		StartAt: time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC).Unix(),
	}
	g.subs = append(g.subs, sub)
	return sub, nil
}

func (g *stubGateway) CancelSubscription(_ context.Context, id, _ string) (domain.GatewaySubscription, error) {
	return domain.GatewaySubscription{ID: id, Status: "cancelled"}, nil
}

func (g *stubGateway) RefundPayment(_ context.Context, paymentID string, _ razorpay.RefundParams) (domain.Refund, error) {
	return domain.Refund{ID: "rfnd_1", PaymentID: paymentID}, nil
}

func (g *stubGateway) ListSubscriptions(context.Context, int, int) ([]domain.GatewaySubscription, error) {
	return g.subs, nil
}

func (g *stubGateway) KeyID() string { return "rzp_test_123" }

type testServer struct {
	router    *gin.Engine
	store     *repository.MemoryStore
	verifier  *razorpay.SignatureVerifier
	validator *middleware.DefaultTokenValidator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	store := repository.NewMemoryStore()
	gateway := &stubGateway{}
	verifier := razorpay.NewSignatureVerifier("signing-secret")
	validator := middleware.NewTokenValidator("jwt-secret")

	subscriptions := service.NewSubscriptionService(service.SubscriptionConfig{PlanID: "plan_1"}, service.Dependencies{
		Store:    store,
		Gateway:  gateway,
		Verifier: verifier,
		Policy:   service.NewRefundPolicy(service.DefaultRefundWindow),
		Log:      log,
	})
	reports := service.NewReportService(gateway, nil, log)

	application := app.NewApp(&config.Config{}, app.Services{
		Subscriptions: subscriptions,
		Reports:       reports,
		Users:         store.Users(),
		Metrics:       promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
	}, validator, log)

	router := gin.New()
	SetupRoutes(router, application, log)
	return &testServer{router: router, store: store, verifier: verifier, validator: validator}
}

func (s *testServer) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token, err := s.validator.Issue(userID, userID+"@example.com", role, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestSubscriptionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", domain.RoleUser)

	code, body := s.do(t, http.MethodPost, "/api/v1/payments/subscribe", token, nil)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, true, body["success"])
	subID, _ := body["subscription_id"].(string)
	require.NotEmpty(t, subID)

	// до подтверждения отписка недоступна: роль еще user
	code, _ = s.do(t, http.MethodPost, "/api/v1/payments/unsubscribe", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(t, http.MethodPost, "/api/v1/payments/verify", token, map[string]string{
		"razorpay_payment_id":      "pay_1",
		"razorpay_signature":       "0000",
		"razorpay_subscription_id": subID,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Payment not verified, please try again", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/v1/payments/verify", token, map[string]string{
		"razorpay_payment_id":      "pay_1",
		"razorpay_signature":       s.verifier.Sign("pay_1", subID),
		"razorpay_subscription_id": subID,
	})
	require.Equal(t, http.StatusOK, code, body)

	code, body = s.do(t, http.MethodPost, "/api/v1/payments/unsubscribe", token, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["cancelled"])
	assert.Equal(t, true, body["refunded"])

	u, err := s.store.Users().GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, u.Subscription.IsZero())
	assert.Equal(t, domain.RoleUser, u.Role)
}

func TestVerifyValidatesBody(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", domain.RoleUser)

	code, body := s.do(t, http.MethodPost, "/api/v1/payments/verify", token, map[string]string{"razorpay_payment_id": "pay_1"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Invalid request data", body["message"])
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.token(t, "admin-1", domain.RoleAdmin)
	userToken := s.token(t, "user-1", domain.RoleUser)

	code, _ := s.do(t, http.MethodPost, "/api/v1/payments/subscribe", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/payments/subscribe", userToken, nil)
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/payments", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := s.do(t, http.MethodGet, "/api/v1/payments?count=5", adminToken, nil)
	require.Equal(t, http.StatusOK, code, body)
	months, _ := body["finalMonths"].(map[string]any)
	assert.Equal(t, float64(1), months["January"])
	assert.Len(t, body["allPayments"], 1)

	code, _ = s.do(t, http.MethodGet, "/api/v1/payments?count=500", adminToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/payments?skip=abc", adminToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/api/v1/payments/razorpay-key", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "rzp_test_123", body["key"])

	code, body = s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/payments/subscribe", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
