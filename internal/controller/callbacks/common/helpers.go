package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AnswerCallback отвечает на callback query (без alert)
func AnswerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       false,
	})
}

// AnswerCallbackAlert отвечает на callback query с alert (всплывающее окно)
func AnswerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// GetMessageFromCallback извлекает сообщение из callback query
func GetMessageFromCallback(callback *models.CallbackQuery) *models.Message {
	if callback.Message.Message != nil {
		return callback.Message.Message
	}
	return nil
}

// ParseIDFromCallback извлекает ID из callback data
// Например: "slot:123" -> 123
func ParseIDFromCallback(data string) (int64, error) {
	ids, err := ParseIDsFromCallback(data, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// ParseIDsFromCallback извлекает n идентификаторов после префикса
// Например: "propose:12:34" -> [12 34]
func ParseIDsFromCallback(data string, n int) ([]int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != n+1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
	}

	ids := make([]int64, 0, n)
	for _, p := range parts[1:] {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
