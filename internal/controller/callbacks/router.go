package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/exchange"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/slots"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type routeFunc func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler)

// Префиксы проверяются по порядку: более длинный префикс должен идти раньше
// совпадающего с ним короткого (slot_delete_ok: раньше slot_delete:).
var prefixRoutes = []struct {
	prefix string
	handle routeFunc
}{
	{common.CbDeleteOK, slots.HandleConfirmDeleteSlot},
	{common.CbDelete, slots.HandleDeleteSlot},
	{common.CbToggle, slots.HandleToggleExchangeable},
	{common.CbRename, slots.HandleRenameSlot},
	{common.CbSlot, slots.HandleViewSlot},
	{common.CbMarketPage, exchange.HandleMarketPage},
	{common.CbOffer, exchange.HandleOffer},
	{common.CbPropose, exchange.HandlePropose},
	{common.CbAccept, exchange.HandleAccept},
	{common.CbReject, exchange.HandleReject},
}

var exactRoutes = map[string]routeFunc{
	common.CbMySlots:  slots.HandleMySlots,
	common.CbIncoming: exchange.HandleIncoming,
	common.CbOutgoing: exchange.HandleOutgoing,
}

// resolve находит обработчик для callback data
func resolve(data string) (routeFunc, bool) {
	if handle, ok := exactRoutes[data]; ok {
		return handle, true
	}
	for _, r := range prefixRoutes {
		if strings.HasPrefix(data, r.prefix) {
			return r.handle, true
		}
	}
	return nil, false
}

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	data := callback.Data

	h.Logger.Debug("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID))

	if data == keyboard.Noop {
		common.AnswerCallback(ctx, b, callback.ID, "")
		return
	}

	handle, ok := resolve(data)
	if !ok {
		h.Logger.Warn("Unknown callback",
			zap.String("data", data),
			zap.Int64("user_id", callback.From.ID))
		common.AnswerCallback(ctx, b, callback.ID, "❌ Неизвестная команда")
		return
	}

	handle(ctx, b, callback, h)
}
