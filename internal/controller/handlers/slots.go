package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

var (
	errNewSlotFormat = errors.New("неверный формат команды")
	errNewSlotDate   = errors.New("неверная дата")
	errNewSlotTime   = errors.New("неверное время")
)

// NewSlotArgs разобранные аргументы /newslot
type NewSlotArgs struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
}

// ParseNewSlotArgs разбирает строку "ДД.ММ.ГГГГ ЧЧ:ММ-ЧЧ:ММ Название".
// Если конец раньше начала, слот заканчивается на следующий день.
func ParseNewSlotArgs(args string, loc *time.Location) (NewSlotArgs, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return NewSlotArgs{}, errNewSlotFormat
	}

	day, err := time.ParseInLocation(slotDateLayout, fields[0], loc)
	if err != nil {
		return NewSlotArgs{}, errNewSlotDate
	}

	from, to, ok := strings.Cut(fields[1], "-")
	if !ok {
		return NewSlotArgs{}, errNewSlotFormat
	}
	start, err := atClock(day, from, loc)
	if err != nil {
		return NewSlotArgs{}, err
	}
	end, err := atClock(day, to, loc)
	if err != nil {
		return NewSlotArgs{}, err
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	return NewSlotArgs{
		Title:     strings.Join(fields[2:], " "),
		StartTime: start,
		EndTime:   end,
	}, nil
}

func atClock(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(slotTimeLayout, clock)
	if err != nil {
		return time.Time{}, errNewSlotTime
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// commandArgs возвращает текст после команды
func commandArgs(text string) string {
	_, args, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(args)
}

// HandleMySlots обрабатывает команду /myslots
func (h *Handlers) HandleMySlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slots, err := h.slotService.ListMySlots(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err, "list my slots")
		return
	}

	h.sendScreen(ctx, b, update.Message.Chat.ID, common.MySlotsScreen(slots))
}

// HandleNewSlot обрабатывает команду /newslot
func (h *Handlers) HandleNewSlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if args == "" {
		h.sendMessage(ctx, b, chatID, "➕ Новый слот\n\n"+newSlotUsage)
		return
	}

	parsed, err := ParseNewSlotArgs(args, h.location)
	if err != nil {
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("❌ %s.\n\n%s", err, newSlotUsage))
		return
	}

	slot, err := h.slotService.CreateSlot(ctx, service.CreateSlotParams{
		OwnerID:   user.ID,
		Title:     parsed.Title,
		StartTime: parsed.StartTime,
		EndTime:   parsed.EndTime,
	})
	if err != nil {
		h.replyError(ctx, b, chatID, err, "create slot")
		return
	}

	screen := common.SlotScreen(slot)
	screen.Text = "✅ Слот добавлен\n\n" + screen.Text
	h.sendScreen(ctx, b, chatID, screen)
}
