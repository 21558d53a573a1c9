package handlers

import (
	"context"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleMarket обрабатывает команду /market
func (h *Handlers) HandleMarket(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slots, err := h.slotService.ListExchangeableSlots(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list marketplace")
		return
	}

	h.sendScreen(ctx, b, update.Message.Chat.ID, common.MarketScreen(slots, 0))
}

// HandleIncoming обрабатывает команду /incoming
func (h *Handlers) HandleIncoming(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	views, err := h.exchangeService.ListIncoming(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list incoming")
		return
	}

	h.sendScreen(ctx, b, update.Message.Chat.ID, common.IncomingScreen(views))
}

// HandleOutgoing обрабатывает команду /outgoing
func (h *Handlers) HandleOutgoing(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	views, err := h.exchangeService.ListOutgoing(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list outgoing")
		return
	}

	h.sendScreen(ctx, b, update.Message.Chat.ID, common.OutgoingScreen(views))
}
