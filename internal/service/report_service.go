package service

import (
	"context"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/razorpay"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

// Параметры страницы отчета
const (
	DefaultReportCount = 10
	MaxReportCount     = 100
)

// ReportService строит помесячный отчет по подпискам для администраторов.
type ReportService struct {
	gateway razorpay.Client
	cache   repository.SubscriptionPageCache
	log     *logger.Logger
}

// NewReportService создает сервис отчетов; cache может быть nil.
func NewReportService(gateway razorpay.Client, cache repository.SubscriptionPageCache, log *logger.Logger) *ReportService {
	return &ReportService{gateway: gateway, cache: cache, log: log}
}

// MonthlyReport возвращает страницу подписок и гистограмму по месяцам начала.
// count <= 0 заменяется на 10, skip < 0 на 0.
func (s *ReportService) MonthlyReport(ctx context.Context, actor domain.Actor, count, skip int) (domain.MonthlyReport, error) {
	if !actor.IsAdmin() {
		return domain.MonthlyReport{}, domain.NewSubscriptionError(domain.KindAuthorization, "Only admins can view payments", "", nil)
	}
	if count <= 0 {
		count = DefaultReportCount
	}
	if count > MaxReportCount {
		return domain.MonthlyReport{}, domain.NewSubscriptionError(domain.KindValidation, "count must not exceed 100", "", nil)
	}
	if skip < 0 {
		skip = 0
	}

	items, err := s.listPage(ctx, count, skip)
	if err != nil {
		return domain.MonthlyReport{}, domain.UpstreamError("Failed to fetch subscriptions", "", err)
	}
	return domain.NewMonthlyReport(items), nil
}

// listPage читает страницу из кеша, при промахе идет в шлюз.
// Ошибки кеша только логируются.
func (s *ReportService) listPage(ctx context.Context, count, skip int) ([]domain.GatewaySubscription, error) {
	if s.cache != nil {
		cached, err := s.cache.GetPage(ctx, count, skip)
		if err != nil {
			s.log.Warnw("Error getting subscriptions page from cache", "error", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	items, err := s.gateway.ListSubscriptions(ctx, count, skip)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetPage(ctx, count, skip, items); err != nil {
			s.log.Warnw("Failed to cache subscriptions page", "error", err)
		}
	}
	return items, nil
}
