package controller

import (
	"context"
	"strconv"

	"github.com/Freeeeeet/slotswap_bot/internal/ratelimit"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// senderID telegram id автора сообщения или нажатия кнопки
func senderID(update *models.Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, true
	}
	return 0, false
}

// RateLimit отбрасывает апдейты пользователя сверх лимита.
// На нажатие кнопки отвечаем, чтобы в клиенте не висели часики.
func RateLimit(store *ratelimit.Store, logger *zap.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			id, ok := senderID(update)
			if !ok || store.Allow("tg:"+strconv.FormatInt(id, 10)) {
				next(ctx, b, update)
				return
			}

			logger.Debug("Update throttled", zap.Int64("telegram_id", id))

			if update.CallbackQuery != nil {
				_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
					CallbackQueryID: update.CallbackQuery.ID,
					Text:            "⏳ Слишком много запросов, подождите немного",
				})
				if err != nil {
					logger.Warn("Failed to answer throttled callback", zap.Error(err))
				}
			}
		}
	}
}
