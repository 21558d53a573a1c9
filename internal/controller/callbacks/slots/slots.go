package slots

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/state"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleMySlots показывает список слотов пользователя
func HandleMySlots(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		slots, err := h.SlotService.ListMySlots(hc.Ctx, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "list my slots")
			return
		}
		common.ShowScreen(hc, common.MySlotsScreen(slots), "")
	})
}

// ownSlot загружает слот и проверяет, что он принадлежит пользователю
func ownSlot(hc *common.HandlerContext, slotID int64) (*model.Slot, error) {
	slot, err := hc.Handler.SlotService.GetSlot(hc.Ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.OwnerID != hc.User.ID {
		return nil, model.NewAuthorizationError("view slot", "not your slot")
	}
	return slot, nil
}

// HandleViewSlot показывает карточку слота
func HandleViewSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUserAndIDs(ctx, b, callback, h, 1, func(hc *common.HandlerContext, ids []int64) {
		slot, err := ownSlot(hc, ids[0])
		if err != nil {
			common.HandleError(hc, err, "view slot")
			return
		}
		common.ShowScreen(hc, common.SlotScreen(slot), "")
	})
}

// HandleToggleExchangeable выставляет слот на обмен или снимает с обмена
func HandleToggleExchangeable(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUserAndIDs(ctx, b, callback, h, 1, func(hc *common.HandlerContext, ids []int64) {
		current, err := ownSlot(hc, ids[0])
		if err != nil {
			common.HandleError(hc, err, "toggle exchangeable")
			return
		}

		exchangeable := current.Status != model.SlotStatusExchangeable
		slot, err := h.SlotService.SetExchangeable(hc.Ctx, current.ID, hc.User.ID, exchangeable)
		if err != nil {
			common.HandleError(hc, err, "toggle exchangeable")
			return
		}

		answer := "🔒 Слот снят с обмена"
		if exchangeable {
			answer = "🔄 Слот выставлен на обмен"
		}
		common.ShowScreen(hc, common.SlotScreen(slot), answer)
	})
}

// HandleDeleteSlot спрашивает подтверждение удаления
func HandleDeleteSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUserAndIDs(ctx, b, callback, h, 1, func(hc *common.HandlerContext, ids []int64) {
		slot, err := ownSlot(hc, ids[0])
		if err != nil {
			common.HandleError(hc, err, "delete slot")
			return
		}
		if slot.IsPending() {
			common.HandleError(hc, model.NewConflictError("delete slot", "slot is pending"), "delete slot")
			return
		}
		common.ShowScreen(hc, common.DeleteConfirmScreen(slot), "")
	})
}

// HandleConfirmDeleteSlot удаляет слот и возвращает к списку
func HandleConfirmDeleteSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUserAndIDs(ctx, b, callback, h, 1, func(hc *common.HandlerContext, ids []int64) {
		if err := h.SlotService.DeleteSlot(hc.Ctx, ids[0], hc.User.ID); err != nil {
			common.HandleError(hc, err, "delete slot")
			return
		}

		slots, err := h.SlotService.ListMySlots(hc.Ctx, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "list my slots")
			return
		}
		common.ShowScreen(hc, common.MySlotsScreen(slots), "🗑 Слот удалён")
	})
}

// HandleRenameSlot начинает диалог переименования
func HandleRenameSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUserAndIDs(ctx, b, callback, h, 1, func(hc *common.HandlerContext, ids []int64) {
		slot, err := ownSlot(hc, ids[0])
		if err != nil {
			common.HandleError(hc, err, "rename slot")
			return
		}

		hc.SetState(callbacktypes.UserState(state.StateRenameSlot))
		hc.SetData(state.DataSlotID, slot.ID)

		h.Logger.Info("Rename dialog started",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Int64("slot_id", slot.ID))

		hc.Answer("")
		text := fmt.Sprintf("✏️ Введите новое название для слота «%s» (до %d символов).\n\nДля отмены используйте /cancel",
			slot.Title, model.MaxSlotTitleLength)
		if err := hc.SendMessage(text, nil); err != nil {
			h.Logger.Error("Failed to send rename prompt", zap.Error(err))
		}
	})
}
