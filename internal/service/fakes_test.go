package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/razorpay"
	"github.com/Dhoini/subscription-service/internal/kafka"
)

type fakeGateway struct {
	mu sync.Mutex

	nextID       int
	cancelStatus string
	createErr    error
	cancelErr    error
	refundErr    error
	listErr      error
	listItems    []domain.GatewaySubscription

	createParams []razorpay.CreateSubscriptionParams
	cancelled    []string
	refunded     []string
	refundParams []razorpay.RefundParams
	listCalls    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{cancelStatus: "cancelled"}
}

func (g *fakeGateway) CreateSubscription(_ context.Context, params razorpay.CreateSubscriptionParams) (domain.GatewaySubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createParams = append(g.createParams, params)
	if g.createErr != nil {
		return domain.GatewaySubscription{}, g.createErr
	}
	g.nextID++
	return domain.GatewaySubscription{
		ID:         fmt.Sprintf("sub_%04d", g.nextID),
		Status:     "created",
		PlanID:     params.PlanID,
		TotalCount: params.TotalCount,
	}, nil
}

func (g *fakeGateway) CancelSubscription(_ context.Context, subscriptionID, _ string) (domain.GatewaySubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return domain.GatewaySubscription{}, g.cancelErr
	}
	g.cancelled = append(g.cancelled, subscriptionID)
	return domain.GatewaySubscription{ID: subscriptionID, Status: g.cancelStatus}, nil
}

func (g *fakeGateway) RefundPayment(_ context.Context, paymentID string, params razorpay.RefundParams) (domain.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return domain.Refund{}, g.refundErr
	}
	g.refunded = append(g.refunded, paymentID)
	g.refundParams = append(g.refundParams, params)
	return domain.Refund{ID: "rfnd_" + paymentID, PaymentID: paymentID, Status: "processed"}, nil
}

func (g *fakeGateway) ListSubscriptions(_ context.Context, _, _ int) ([]domain.GatewaySubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.listItems, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type fakeProducer struct {
	mu     sync.Mutex
	events []kafka.SubscriptionEvent
	err    error
}

func (p *fakeProducer) PublishSubscriptionEvent(_ context.Context, event kafka.SubscriptionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakeProducer) Close() error { return nil }

func (p *fakeProducer) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakePageCache struct {
	pages       map[string][]domain.GatewaySubscription
	getErr      error
	invalidated int
}

func newFakePageCache() *fakePageCache {
	return &fakePageCache{pages: make(map[string][]domain.GatewaySubscription)}
}

func (c *fakePageCache) key(count, skip int) string { return fmt.Sprintf("%d:%d", count, skip) }

func (c *fakePageCache) GetPage(_ context.Context, count, skip int) ([]domain.GatewaySubscription, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.pages[c.key(count, skip)], nil
}

func (c *fakePageCache) SetPage(_ context.Context, count, skip int, items []domain.GatewaySubscription) error {
	c.pages[c.key(count, skip)] = items
	return nil
}

func (c *fakePageCache) InvalidatePages(context.Context) error {
	c.invalidated++
	c.pages = make(map[string][]domain.GatewaySubscription)
	return nil
}
