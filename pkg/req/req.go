package req

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Decode декодирует JSON из io.ReadCloser в структуру типа T.
// Пустое тело допустимо и дает нулевое значение T.
func Decode[T any](body io.ReadCloser) (T, error) {
	var payload T
	if body == nil {
		return payload, nil
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return payload, err
	}
	return payload, nil
}

// IsValid валидирует структуру типа T.
func IsValid[T any](payload T) error {
	return getValidator().Struct(payload)
}

// FieldErrors превращает ошибку валидатора в карту поле -> правило.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// HandleBody декодирует, валидирует и обрабатывает тело запроса.
// При ошибке ответ уже записан, вызывающему остается только выйти.
func HandleBody[T any](w http.ResponseWriter, r *http.Request, log *logger.Logger) (*T, error) {
	body, err := Decode[T](r.Body)
	if err != nil {
		log.Warnw("Failed to decode request body", "error", err)
		res.JsonErrorResponse(w, res.ErrorResponse{Message: "Invalid request format"}, http.StatusUnprocessableEntity, log)
		return nil, err
	}

	if err := IsValid(body); err != nil {
		log.Warnw("Request body validation failed", "error", err)
		res.JsonErrorResponse(w, res.ErrorResponse{
			Message: "Invalid request data",
			Details: FieldErrors(err),
		}, http.StatusUnprocessableEntity, log)
		return nil, err
	}
	return &body, nil
}
