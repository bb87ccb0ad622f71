package metrics

import (
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubscriptionMetrics интерфейс для метрик жизненного цикла подписок
type SubscriptionMetrics interface {
	IncOperation(operation string, err error)
	IncRefund(result string)
	ObserveGatewayRequest(operation string, err error, duration time.Duration)
}

type subscriptionMetrics struct {
	operations      *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

// NewSubscriptionMetrics создает метрики подписок
func NewSubscriptionMetrics(registry prometheus.Registerer) SubscriptionMetrics {
	operations := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_operations_total",
			Help: "The total number of subscription operations by result",
		},
		[]string{"operation", "result"},
	)

	refunds := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_refunds_total",
			Help: "The total number of refund attempts by result",
		},
		[]string{"result"},
	)

	gatewayDuration := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "razorpay_request_duration_seconds",
			Help:    "Razorpay API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	return &subscriptionMetrics{
		operations:      operations,
		refunds:         refunds,
		gatewayDuration: gatewayDuration,
	}
}

// IncOperation увеличивает счетчик операции; result = ok или категория ошибки
func (m *subscriptionMetrics) IncOperation(operation string, err error) {
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// IncRefund увеличивает счетчик возвратов
func (m *subscriptionMetrics) IncRefund(result string) {
	m.refunds.WithLabelValues(result).Inc()
}

// ObserveGatewayRequest записывает длительность запроса к шлюзу
func (m *subscriptionMetrics) ObserveGatewayRequest(operation string, err error, duration time.Duration) {
	m.gatewayDuration.WithLabelValues(operation, resultLabel(err)).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}

// NoopSubscriptionMetrics ничего не записывает
type NoopSubscriptionMetrics struct{}

func (NoopSubscriptionMetrics) IncOperation(string, error)                         {}
func (NoopSubscriptionMetrics) IncRefund(string)                                   {}
func (NoopSubscriptionMetrics) ObserveGatewayRequest(string, error, time.Duration) {}
