package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/state"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// handleRenameSlot принимает новое название слота
func (h *Handlers) handleRenameSlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	title := strings.TrimSpace(update.Message.Text)

	slotID, ok := h.stateManager.GetInt64(telegramID, state.DataSlotID)
	if !ok {
		h.logger.Error("Missing slot id in rename dialog", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ Ошибка: данные не найдены. Начните заново через /myslots")
		return
	}

	if title == "" || len([]rune(title)) > model.MaxSlotTitleLength {
		// Остаёмся в диалоге, ждём корректный ввод
		h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Название должно быть непустым и не длиннее %d символов.\n\nПопробуйте ещё раз или /cancel", model.MaxSlotTitleLength))
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	slot, err := h.slotService.UpdateSlot(ctx, slotID, user.ID, service.SlotUpdate{Title: &title})
	h.stateManager.ClearState(telegramID)
	if err != nil {
		h.replyError(ctx, b, chatID, err, "rename slot")
		return
	}

	screen := common.SlotScreen(slot)
	screen.Text = "✅ Название обновлено\n\n" + screen.Text
	h.sendScreen(ctx, b, chatID, screen)
}
