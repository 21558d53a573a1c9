package callbacktypes

import (
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"go.uber.org/zap"
)

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

// StateManager интерфейс для управления состоянием пользователей
type StateManager interface {
	ClearState(telegramID int64)
	GetState(telegramID int64) UserState
	SetState(telegramID int64, state UserState)
	SetData(telegramID int64, key string, value any)
	GetData(telegramID int64, key string) (any, bool)
}

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	UserService     *service.UserService
	SlotService     *service.SlotService
	ExchangeService *service.ExchangeService
	StateManager    StateManager
	Logger          *zap.Logger
}
