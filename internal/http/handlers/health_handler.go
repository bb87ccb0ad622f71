package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger проверка доступности зависимости
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler проверка работоспособности сервиса
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler создает обработчик; db может быть nil при работе без базы.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
