package httpapi

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// retryAfterSeconds подсказка клиенту при временном конфликте блокировок
const retryAfterSeconds = "1"

// statusFor переводит класс доменной ошибки в HTTP статус
func statusFor(err error) int {
	if model.IsTransient(err) {
		return http.StatusServiceUnavailable
	}
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindSelfSwap:
		return http.StatusUnprocessableEntity
	case model.KindAuthorization:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict, model.KindSlotNotAvailable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает JSON ошибкой. Детали неизвестных ошибок в ответ не попадают.
func (h *handler) writeError(c *gin.Context, err error, operation string) {
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("operation", operation),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.Error(err),
		)
		abortJSON(c, status, "internal", "internal error")
		return
	}

	kind := string(model.KindOf(err))
	if model.IsTransient(err) {
		kind = "transient_conflict"
		c.Header("Retry-After", retryAfterSeconds)
	}
	abortJSON(c, status, kind, publicMessage(err))
}

// publicMessage текст доменной ошибки без обёрнутых причин из базы
func publicMessage(err error) string {
	var e *model.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	return (&model.Error{Kind: e.Kind}).Error()
}
