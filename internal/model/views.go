package model

import "time"

// MarketSlot слот на бирже обмена вместе с именем владельца
type MarketSlot struct {
	Slot
	OwnerName string `json:"owner_name"`
}

// SlotSummary краткие данные слота внутри заявки.
// Title пустой, если слот был удалён после завершения заявки.
type SlotSummary struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// ExchangeRequestView заявка для списков входящих и исходящих
type ExchangeRequestView struct {
	ExchangeRequest
	RequesterName string      `json:"requester_name"`
	RecipientName string      `json:"recipient_name"`
	RequesterSlot SlotSummary `json:"requester_slot"`
	RecipientSlot SlotSummary `json:"recipient_slot"`
}

// AuditViolation нарушенный инвариант и ID первых нарушающих записей
type AuditViolation struct {
	Oracle string  `json:"oracle"`
	IDs    []int64 `json:"ids"`
}
