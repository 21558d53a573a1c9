package exchange

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleMarketPage показывает страницу витрины
func HandleMarketPage(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUserAndIDs(ctx, b, callback, h, 1, func(hc *common.HandlerContext, ids []int64) {
		slots, err := h.SlotService.ListExchangeableSlots(hc.Ctx, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "list marketplace")
			return
		}
		common.ShowScreen(hc, common.MarketScreen(slots, int(ids[0])), "")
	})
}

// HandleOffer предлагает выбрать свой слот для обмена на выбранный на витрине
func HandleOffer(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUserAndIDs(ctx, b, callback, h, 1, func(hc *common.HandlerContext, ids []int64) {
		target, err := h.SlotService.GetSlot(hc.Ctx, ids[0])
		if err != nil {
			common.HandleError(hc, err, "offer exchange")
			return
		}
		if target.OwnerID == hc.User.ID {
			common.HandleError(hc, model.NewSelfSwapError("offer exchange"), "offer exchange")
			return
		}
		if target.Status != model.SlotStatusExchangeable {
			common.HandleError(hc, model.NewSlotNotAvailableError("offer exchange", target.ID), "offer exchange")
			return
		}

		mine, err := h.SlotService.ListMySlots(hc.Ctx, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "list my slots")
			return
		}
		common.ShowScreen(hc, common.OfferScreen(target, mine), "")
	})
}

// HandlePropose создаёт заявку на обмен
func HandlePropose(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUserAndIDs(ctx, b, callback, h, 2, func(hc *common.HandlerContext, ids []int64) {
		req, err := h.ExchangeService.ProposeExchange(hc.Ctx, ids[0], ids[1], hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "propose exchange")
			return
		}

		kb := keyboard.NewBuilder().
			Row(keyboard.Button("📤 Мои заявки", common.CbOutgoing)).
			Row(keyboard.Button("⬅️ К витрине", common.CbMarketPage+"0"))
		screen := common.Screen{
			Text: fmt.Sprintf("✅ Заявка #%d отправлена.\n\n"+
				"Оба слота зарезервированы до ответа. Вы получите уведомление, когда владелец ответит.", req.ID),
			Keyboard: kb.Build(),
		}
		common.ShowScreen(hc, screen, "✅ Заявка отправлена")
	})
}

// HandleAccept принимает входящую заявку
func HandleAccept(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	respond(ctx, b, callback, h, true)
}

// HandleReject отклоняет входящую заявку
func HandleReject(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	respond(ctx, b, callback, h, false)
}

func respond(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler, accept bool) {
	common.WithUserAndIDs(ctx, b, callback, h, 1, func(hc *common.HandlerContext, ids []int64) {
		req, err := h.ExchangeService.RespondToExchange(hc.Ctx, ids[0], hc.User.ID, accept)
		if err != nil {
			common.HandleError(hc, err, "respond to exchange")
			return
		}

		incoming, err := h.ExchangeService.ListIncoming(hc.Ctx, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "list incoming")
			return
		}

		status := formatting.GetExchangeStatusDisplay(req.Status)
		common.ShowScreen(hc, common.IncomingScreen(incoming), fmt.Sprintf("%s Заявка #%d: %s", status.Emoji, req.ID, status.Text))
	})
}

// HandleIncoming показывает входящие заявки
func HandleIncoming(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		views, err := h.ExchangeService.ListIncoming(hc.Ctx, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "list incoming")
			return
		}
		common.ShowScreen(hc, common.IncomingScreen(views), "")
	})
}

// HandleOutgoing показывает исходящие заявки
func HandleOutgoing(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		views, err := h.ExchangeService.ListOutgoing(hc.Ctx, hc.User.ID)
		if err != nil {
			common.HandleError(hc, err, "list outgoing")
			return
		}
		common.ShowScreen(hc, common.OutgoingScreen(views), "")
	})
}
