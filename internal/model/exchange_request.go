package model

import "time"

type ExchangeStatus string

const (
	ExchangeStatusPending     ExchangeStatus = "pending"     // Ожидает ответа получателя
	ExchangeStatusAccepted    ExchangeStatus = "accepted"    // Слоты обменяны
	ExchangeStatusRejected    ExchangeStatus = "rejected"    // Отклонено получателем
	ExchangeStatusInvalidated ExchangeStatus = "invalidated" // Слот ушёл в другой обмен
)

// IsTerminal терминальные статусы больше не меняются
func (s ExchangeStatus) IsTerminal() bool {
	return s == ExchangeStatusAccepted || s == ExchangeStatusRejected || s == ExchangeStatusInvalidated
}

type ExchangeRequest struct {
	ID              int64          `json:"id"`
	RequesterSlotID int64          `json:"requester_slot_id"`
	RecipientSlotID int64          `json:"recipient_slot_id"`
	RequesterUserID int64          `json:"requester_user_id"` // владельцы слотов на момент создания
	RecipientUserID int64          `json:"recipient_user_id"`
	Status          ExchangeStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	RespondedAt     *time.Time     `json:"responded_at,omitempty"`
}

// References проверяет, ссылается ли заявка на слот
func (r *ExchangeRequest) References(slotID int64) bool {
	return r.RequesterSlotID == slotID || r.RecipientSlotID == slotID
}

// SlotIDs возвращает оба слота заявки
func (r *ExchangeRequest) SlotIDs() []int64 {
	return []int64{r.RequesterSlotID, r.RecipientSlotID}
}

type ExchangeEventType string

const (
	ExchangeEventProposed    ExchangeEventType = "proposed"
	ExchangeEventAccepted    ExchangeEventType = "accepted"
	ExchangeEventRejected    ExchangeEventType = "rejected"
	ExchangeEventInvalidated ExchangeEventType = "invalidated"
)

// ExchangeEvent событие о зафиксированном изменении заявки, для уведомлений
type ExchangeEvent struct {
	Type    ExchangeEventType
	Request ExchangeRequest
}
