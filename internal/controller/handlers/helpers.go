package handlers

import (
	"context"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// replyError логирует ошибку сервиса и отвечает пользователю понятным текстом
func (h *Handlers) replyError(ctx context.Context, b *bot.Bot, chatID int64, err error, operation string) {
	if model.KindOf(err) != "" {
		h.logger.Info("Operation rejected", zap.String("operation", operation), zap.Error(err))
	} else {
		h.logger.Error("Operation failed", zap.String("operation", operation), zap.Error(err))
	}
	h.sendError(ctx, b, chatID, common.ErrorMessage(err))
}
