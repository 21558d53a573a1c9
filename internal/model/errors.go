package model

import (
	"errors"
	"fmt"
)

// ErrorKind класс ошибки ядра обмена
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindAuthorization    ErrorKind = "authorization"
	KindConflict         ErrorKind = "conflict"
	KindSelfSwap         ErrorKind = "self_swap"
	KindSlotNotAvailable ErrorKind = "slot_not_available"
)

// Сентинелы для errors.Is
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrAuthorization    = errors.New("not authorized")
	ErrConflict         = errors.New("conflict")
	ErrSelfSwap         = errors.New("cannot exchange slots of the same user")
	ErrSlotNotAvailable = errors.New("slot not available")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:       ErrValidation,
	KindNotFound:         ErrNotFound,
	KindAuthorization:    ErrAuthorization,
	KindConflict:         ErrConflict,
	KindSelfSwap:         ErrSelfSwap,
	KindSlotNotAvailable: ErrSlotNotAvailable,
}

// Error типизированная ошибка операции над слотами и заявками
type Error struct {
	Kind      ErrorKind
	Op        string
	Msg       string
	Transient bool // конфликт блокировок, вызывающая сторона может повторить
	Err       error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = kindSentinels[e.Kind].Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с сентинелом её класса.
// Недоступность слота является частным случаем конфликта.
func (e *Error) Is(target error) bool {
	if target == kindSentinels[e.Kind] {
		return true
	}
	return e.Kind == KindSlotNotAvailable && target == ErrConflict
}

func NewValidationError(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func NewNotFoundError(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func NewAuthorizationError(op, msg string) error {
	return &Error{Kind: KindAuthorization, Op: op, Msg: msg}
}

func NewConflictError(op, msg string) error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg}
}

func NewSelfSwapError(op string) error {
	return &Error{Kind: KindSelfSwap, Op: op}
}

func NewSlotNotAvailableError(op string, slotID int64) error {
	return &Error{Kind: KindSlotNotAvailable, Op: op, Msg: fmt.Sprintf("slot %d is not available for exchange", slotID)}
}

// NewTransientConflictError оборачивает ошибку конкурентного доступа к строкам
func NewTransientConflictError(op string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Msg: "concurrent update, try again", Transient: true, Err: err}
}

// IsTransient сообщает, можно ли повторить операцию
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Transient
}

// KindOf возвращает класс ошибки или пустую строку для неизвестных ошибок
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
