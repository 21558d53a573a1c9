package model

import (
	"strings"
	"time"
)

type SlotStatus string

const (
	SlotStatusBusy            SlotStatus = "busy"
	SlotStatusExchangeable    SlotStatus = "exchangeable"
	SlotStatusExchangePending SlotStatus = "exchange_pending" // Заблокирован ровно одной открытой заявкой
)

// MaxSlotTitleLength ограничение на длину названия слота
const MaxSlotTitleLength = 200

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusBusy, SlotStatusExchangeable, SlotStatusExchangePending:
		return true
	default:
		return false
	}
}

type Slot struct {
	ID               int64      `json:"id"`
	OwnerID          int64      `json:"owner_id"`
	Title            string     `json:"title"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	Status           SlotStatus `json:"status"`
	PendingRequestID *int64     `json:"pending_request_id,omitempty"` // не nil только в статусе exchange_pending
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsPending сообщает, участвует ли слот в открытой заявке на обмен
func (s *Slot) IsPending() bool {
	return s.Status == SlotStatusExchangePending
}

// LockedBy проверяет, что слот удерживается именно заявкой requestID
func (s *Slot) LockedBy(requestID int64) bool {
	return s.IsPending() && s.PendingRequestID != nil && *s.PendingRequestID == requestID
}

// Lock переводит слот в exchange_pending под заявкой requestID
func (s *Slot) Lock(requestID int64) {
	id := requestID
	s.Status = SlotStatusExchangePending
	s.PendingRequestID = &id
}

// Release снимает блокировку заявки и выставляет итоговый статус
func (s *Slot) Release(status SlotStatus) {
	s.Status = status
	s.PendingRequestID = nil
}

// ValidateSlotFields проверяет обязательные поля слота
func ValidateSlotFields(title string, start, end time.Time) error {
	const op = "validate slot"

	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return NewValidationError(op, "title is required")
	case len([]rune(title)) > MaxSlotTitleLength:
		return NewValidationError(op, "title is too long")
	case start.IsZero():
		return NewValidationError(op, "start time is required")
	case end.IsZero():
		return NewValidationError(op, "end time is required")
	case !start.Before(end):
		return NewValidationError(op, "start time must be before end time")
	}

	return nil
}
