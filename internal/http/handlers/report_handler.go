package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/middleware"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/req"
	"github.com/Dhoini/subscription-service/pkg/res"
)

type ReportService interface {
	MonthlyReport(ctx context.Context, actor domain.Actor, count, skip int) (domain.MonthlyReport, error)
}

// ReportHandler отдает администраторам помесячный отчет по подпискам.
type ReportHandler struct {
	service ReportService
	log     *logger.Logger
}

func NewReportHandler(service ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{service: service, log: log}
}

// ReportQuery параметры страницы
type ReportQuery struct {
	Count int `form:"count" validate:"gte=0,lte=100"`
	Skip  int `form:"skip" validate:"gte=0"`
}

// MonthlyReport обрабатывает GET /payments?count=&skip=
func (h *ReportHandler) MonthlyReport(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		writeError(c, domain.NewSubscriptionError(domain.KindAuthentication, "Unauthorized", "", nil), nil, h.log)
		return
	}

	var query ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{Message: "Invalid query parameters"}, http.StatusUnprocessableEntity, h.log)
		c.Abort()
		return
	}
	if err := req.IsValid(query); err != nil {
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{
			Message: "Invalid query parameters",
			Details: req.FieldErrors(err),
		}, http.StatusUnprocessableEntity, h.log)
		c.Abort()
		return
	}

	report, err := h.service.MonthlyReport(c.Request.Context(), actor, query.Count, query.Skip)
	if err != nil {
		writeError(c, err, nil, h.log)
		return
	}

	res.Success(c.Writer, http.StatusOK, "Payments report", map[string]any{
		"allPayments":        report.AllPayments,
		"finalMonths":        report.FinalMonths,
		"monthlySalesRecord": report.MonthlySalesRecord,
	})
}
