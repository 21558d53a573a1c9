package formatting

import "github.com/Freeeeeet/slotswap_bot/internal/model"

// StatusDisplay emoji и текст статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetSlotStatusDisplay возвращает emoji и текст для статуса слота
func GetSlotStatusDisplay(status model.SlotStatus) StatusDisplay {
	displays := map[model.SlotStatus]StatusDisplay{
		model.SlotStatusBusy:            {"🔒", "Занят"},
		model.SlotStatusExchangeable:    {"🔄", "Доступен для обмена"},
		model.SlotStatusExchangePending: {"⏳", "Ожидает ответа на обмен"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetExchangeStatusDisplay возвращает emoji и текст для статуса заявки
func GetExchangeStatusDisplay(status model.ExchangeStatus) StatusDisplay {
	displays := map[model.ExchangeStatus]StatusDisplay{
		model.ExchangeStatusPending:     {"⏳", "Ожидает ответа"},
		model.ExchangeStatusAccepted:    {"✅", "Принята"},
		model.ExchangeStatusRejected:    {"🚫", "Отклонена"},
		model.ExchangeStatusInvalidated: {"⚫️", "Аннулирована"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}
