package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startAt(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC).Unix()
}

func TestMonthlyReportRejectsNonAdmin(t *testing.T) {
	gw := newFakeGateway()
	svc := NewReportService(gw, nil, logger.NewNop())

	_, err := svc.MonthlyReport(context.Background(), alice, 0, 0)
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, gw.listCalls)
}

func TestMonthlyReportCountsByStartMonth(t *testing.T) {
	gw := newFakeGateway()
	gw.listItems = []domain.GatewaySubscription{
		{ID: "sub_1", StartAt: startAt(2024, time.January, 5)},
		{ID: "sub_2", StartAt: startAt(2024, time.January, 20)},
		{ID: "sub_3", StartAt: startAt(2024, time.March, 1)},
		{ID: "sub_4"},
	}
	svc := NewReportService(gw, nil, logger.NewNop())

	report, err := svc.MonthlyReport(context.Background(), admin, 0, -3)
	require.NoError(t, err)

	assert.Len(t, report.AllPayments, 4)
	assert.Equal(t, 2, report.FinalMonths["January"])
	assert.Equal(t, 1, report.FinalMonths["March"])
	assert.Equal(t, 0, report.FinalMonths["December"])
	assert.Len(t, report.FinalMonths, 12)
	assert.Equal(t, [12]int{2, 0, 1}, report.MonthlySalesRecord)
}

func TestMonthlyReportRejectsLargePage(t *testing.T) {
	gw := newFakeGateway()
	svc := NewReportService(gw, nil, logger.NewNop())

	_, err := svc.MonthlyReport(context.Background(), admin, MaxReportCount+1, 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, gw.listCalls)
}

func TestMonthlyReportUsesCache(t *testing.T) {
	gw := newFakeGateway()
	gw.listItems = []domain.GatewaySubscription{{ID: "sub_1", StartAt: startAt(2024, time.May, 2)}}
	cache := newFakePageCache()
	svc := NewReportService(gw, cache, logger.NewNop())
	ctx := context.Background()

	first, err := svc.MonthlyReport(ctx, admin, 0, 0)
	require.NoError(t, err)
	second, err := svc.MonthlyReport(ctx, admin, DefaultReportCount, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, gw.listCalls)
	assert.Equal(t, first, second)

	require.NoError(t, cache.InvalidatePages(ctx))
	_, err = svc.MonthlyReport(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.listCalls)
}

func TestMonthlyReportCacheErrorFallsBackToGateway(t *testing.T) {
	gw := newFakeGateway()
	cache := newFakePageCache()
	cache.getErr = assert.AnError
	svc := NewReportService(gw, cache, logger.NewNop())

	report, err := svc.MonthlyReport(context.Background(), admin, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, report.AllPayments)
	assert.Equal(t, 1, gw.listCalls)
}

func TestMonthlyReportGatewayError(t *testing.T) {
	gw := newFakeGateway()
	gw.listErr = domain.NewGatewayError("list_subscriptions", "Authentication failed", http.StatusBadRequest, nil)
	svc := NewReportService(gw, nil, logger.NewNop())

	_, err := svc.MonthlyReport(context.Background(), admin, 0, 0)
	require.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, http.StatusBadRequest, domain.StatusCode(err))
	assert.Equal(t, "Authentication failed", domain.PublicMessage(err))
}
