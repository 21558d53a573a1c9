package callbacks

import (
	"context"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler обёртка для callbacktypes.Handler с методами
type Handler struct {
	*callbacktypes.Handler
}

// NewHandler создаёт новый обработчик callbacks с зависимостями
func NewHandler(
	userService *service.UserService,
	slotService *service.SlotService,
	exchangeService *service.ExchangeService,
	stateManager callbacktypes.StateManager,
	logger *zap.Logger,
) *Handler {
	return &Handler{Handler: &callbacktypes.Handler{
		UserService:     userService,
		SlotService:     slotService,
		ExchangeService: exchangeService,
		StateManager:    stateManager,
		Logger:          logger,
	}}
}

// HandleCallbackQuery главный обработчик callback queries
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	Route(ctx, b, update.CallbackQuery, h.Handler)
}
