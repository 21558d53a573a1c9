package formatting

import (
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
)

// FormatSlot карточка слота для HTML-сообщения
func FormatSlot(slot *model.Slot) string {
	status := GetSlotStatusDisplay(slot.Status)
	return fmt.Sprintf("%s <b>%s</b>\n🕐 %s\n📊 %s",
		status.Emoji,
		html.EscapeString(slot.Title),
		FormatPeriod(slot.StartTime, slot.EndTime),
		status.Text,
	)
}

// FormatSlotLine краткая строка слота для списков
func FormatSlotLine(slot *model.Slot) string {
	return fmt.Sprintf("%s %s, %s",
		GetSlotStatusDisplay(slot.Status).Emoji,
		html.EscapeString(slot.Title),
		FormatPeriod(slot.StartTime, slot.EndTime),
	)
}

// FormatMarketSlot слот на витрине с именем владельца
func FormatMarketSlot(slot *model.MarketSlot) string {
	return fmt.Sprintf("<b>%s</b>\n🕐 %s\n👤 %s",
		html.EscapeString(slot.Title),
		FormatPeriod(slot.StartTime, slot.EndTime),
		html.EscapeString(slot.OwnerName),
	)
}

// FormatSlotSummary слот из заявки. Удалённый слот показывается по номеру.
func FormatSlotSummary(s model.SlotSummary) string {
	if s.StartTime == nil || s.EndTime == nil {
		return fmt.Sprintf("слот #%d (удалён)", s.ID)
	}
	return fmt.Sprintf("%s (%s)", html.EscapeString(s.Title), FormatPeriod(*s.StartTime, *s.EndTime))
}

// FormatIncomingRequest входящая заявка: что предлагают и что просят взамен
func FormatIncomingRequest(v *model.ExchangeRequestView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📨 Заявка #%d от %s\n", v.ID, html.EscapeString(v.RequesterName))
	fmt.Fprintf(&sb, "Предлагает: %s\n", FormatSlotSummary(v.RequesterSlot))
	fmt.Fprintf(&sb, "В обмен на ваш: %s", FormatSlotSummary(v.RecipientSlot))
	return sb.String()
}

// FormatOutgoingRequest исходящая заявка со статусом
func FormatOutgoingRequest(v *model.ExchangeRequestView) string {
	status := GetExchangeStatusDisplay(v.Status)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Заявка #%d для %s: %s\n", status.Emoji, v.ID, html.EscapeString(v.RecipientName), status.Text)
	fmt.Fprintf(&sb, "Ваш слот: %s\n", FormatSlotSummary(v.RequesterSlot))
	fmt.Fprintf(&sb, "Запрошенный: %s", FormatSlotSummary(v.RecipientSlot))
	if v.RespondedAt != nil {
		fmt.Fprintf(&sb, "\nОтвет: %s", FormatDateTime(*v.RespondedAt))
	}
	return sb.String()
}
