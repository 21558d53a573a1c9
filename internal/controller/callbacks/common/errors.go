package common

import (
	"errors"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
)

// Ошибки уровня обработчиков
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNoMessage     = errors.New("no message in callback")
	ErrInvalidFormat = errors.New("invalid callback format")
)

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "❌ Пользователь не найден. Используйте /start"
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case model.IsTransient(err):
		return "⏳ Слот сейчас участвует в другой операции. Попробуйте ещё раз."
	case errors.Is(err, model.ErrSelfSwap):
		return "❌ Нельзя обменять слот на свой же слот"
	case errors.Is(err, model.ErrSlotNotAvailable):
		return "❌ Слот больше не доступен для обмена"
	case errors.Is(err, model.ErrConflict):
		return "❌ Действие уже неактуально: заявка обработана или слот участвует в обмене"
	case errors.Is(err, model.ErrAuthorization):
		return "❌ У вас нет доступа к этому действию"
	case errors.Is(err, model.ErrNotFound):
		return "❌ Не найдено. Возможно, слот или заявка были удалены"
	case errors.Is(err, model.ErrValidation):
		return "❌ Некорректные данные: " + validationDetail(err)
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

func validationDetail(err error) string {
	var e *model.Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return "проверьте ввод"
}

// IsMessageNotModifiedError Telegram отвечает так на редактирование без изменений
func IsMessageNotModifiedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func isDomainError(err error) bool {
	return model.KindOf(err) != ""
}
