package res

import (
	"encoding/json"
	"net/http"

	"github.com/Dhoini/subscription-service/pkg/logger"
)

// ErrorResponse представляет формат JSON-ответа для ошибок.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`              // Сообщение об ошибке (для пользователя)
	ErrorCode int    `json:"error_code,omitempty"` // HTTP статус для программной обработки
	Details   any    `json:"details,omitempty"`    // Детали ошибки (например, ошибки валидации)
	DebugInfo string `json:"debug_info,omitempty"` // Отладочная информация (ТОЛЬКО в development среде!)
}

// JsonResponse отправляет JSON-ответ с заданным статусом.
func JsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ: {"success": true, "message": ...} плюс поля payload.
func Success(w http.ResponseWriter, status int, message string, payload map[string]any) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	body["message"] = message
	JsonResponse(w, body, status)
}

// JsonErrorResponse отправляет JSON ответ ошибки и пишет его в лог.
func JsonErrorResponse(w http.ResponseWriter, errResponse ErrorResponse, status int, log *logger.Logger) {
	errResponse.Success = false
	if errResponse.ErrorCode == 0 {
		errResponse.ErrorCode = status
	}
	JsonResponse(w, errResponse, status)
	if status >= http.StatusInternalServerError {
		log.Errorw("Error response", "status", status, "message", errResponse.Message, "debug", errResponse.DebugInfo)
		return
	}
	log.Warnw("Error response", "status", status, "message", errResponse.Message)
}
