package controller

import (
	"context"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/handlers"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/state"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	userService *service.UserService,
	slotService *service.SlotService,
	exchangeService *service.ExchangeService,
	logger *zap.Logger,
) *BotController {
	// Создаём менеджер состояний
	stateManager := state.NewManager()

	// Создаём обработчики команд
	cmdHandlers := handlers.NewHandlers(
		userService,
		slotService,
		exchangeService,
		stateManager,
		logger,
	)

	// Создаём адаптер для callback handlers
	stateAdapter := state.NewAdapter(stateManager)

	// Создаём callback handler с зависимостями
	callbackHandler := callbacks.NewHandler(
		userService,
		slotService,
		exchangeService,
		stateAdapter,
		logger,
	)

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		logger:          logger,
	}
}

// isDialogText текст без команды, обрабатывается диалогами
func isDialogText(update *models.Update) bool {
	return update.Message != nil && update.Message.Text != "" && !strings.HasPrefix(update.Message.Text, "/")
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// Регистрируем команды
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	// Слоты
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/myslots", bot.MatchTypeExact, c.handlers.HandleMySlots)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/newslot", bot.MatchTypePrefix, c.handlers.HandleNewSlot)

	// Обмен
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/market", bot.MatchTypeExact, c.handlers.HandleMarket)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/incoming", bot.MatchTypeExact, c.handlers.HandleIncoming)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/outgoing", bot.MatchTypeExact, c.handlers.HandleOutgoing)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandlerMatchFunc(isDialogText, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "myslots", Description: "📅 Мои слоты"},
		{Command: "newslot", Description: "➕ Добавить слот"},
		{Command: "market", Description: "🔁 Слоты на обмен"},
		{Command: "incoming", Description: "📥 Входящие заявки"},
		{Command: "outgoing", Description: "📤 Мои заявки"},
		{Command: "cancel", Description: "✖️ Отменить действие"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота, блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
