package common

import (
	"context"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/callbacktypes"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// WithUser создаёт HandlerContext и загружает пользователя.
// При ошибке сам отвечает пользователю и не вызывает handler.
func WithUser(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	handler func(*HandlerContext),
) {
	hc := NewHandlerContext(ctx, b, callback, h)

	if err := hc.LoadUser(); err != nil {
		h.Logger.Error("Failed to load user",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
		hc.AnswerAlert(ErrorMessage(err))
		return
	}

	handler(hc)
}

// WithUserAndIDs как WithUser, но сначала разбирает n идентификаторов из callback data
func WithUserAndIDs(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	n int,
	handler func(*HandlerContext, []int64),
) {
	ids, err := ParseIDsFromCallback(callback.Data, n)
	if err != nil {
		h.Logger.Warn("Bad callback data", zap.String("data", callback.Data), zap.Error(err))
		AnswerCallbackAlert(ctx, b, callback.ID, ErrorMessage(err))
		return
	}

	WithUser(ctx, b, callback, h, func(hc *HandlerContext) {
		handler(hc, ids)
	})
}

// HandleError логирует ошибку и показывает её пользователю.
// Ожидаемые доменные ошибки пишутся в Info, остальные в Error.
func HandleError(hc *HandlerContext, err error, operation string) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Int64("telegram_id", hc.TelegramID),
		zap.Error(err),
	}
	if isDomainError(err) {
		hc.Handler.Logger.Info("Operation rejected", fields...)
	} else {
		hc.Handler.Logger.Error("Operation failed", fields...)
	}
	hc.AnswerAlert(ErrorMessage(err))
}

// ShowScreen заменяет сообщение с кнопкой на экран и подтверждает callback
func ShowScreen(hc *HandlerContext, screen Screen, answer string) {
	if err := hc.EditMessage(screen.Text, screen.Keyboard); err != nil {
		hc.Handler.Logger.Error("Failed to edit message",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
		hc.AnswerAlert(ErrorMessage(err))
		return
	}
	hc.Answer(answer)
}
