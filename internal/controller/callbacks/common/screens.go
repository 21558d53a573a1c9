package common

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

const (
	// MarketPageSize слотов на одной странице витрины
	MarketPageSize = 6
	// RequestsLimit заявок в одном сообщении, ограничено длиной сообщения Telegram
	RequestsLimit = 15
)

// Screen текст сообщения и его клавиатура
type Screen struct {
	Text     string
	Keyboard *models.InlineKeyboardMarkup
}

// MySlotsScreen список слотов пользователя, по кнопке на слот
func MySlotsScreen(slots []*model.Slot) Screen {
	if len(slots) == 0 {
		return Screen{
			Text: "📭 У вас пока нет слотов.\n\n" +
				"Добавьте слот командой:\n<code>/newslot 20.10.2026 09:00-10:00 Название</code>",
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 Ваши слоты (%d %s):\n\n", len(slots), formatting.PluralizeSlots(len(slots)))

	kb := keyboard.NewBuilder()
	for _, slot := range slots {
		sb.WriteString(formatting.FormatSlotLine(slot))
		sb.WriteString("\n")
		kb.Row(keyboard.Button(
			fmt.Sprintf("%s %s", formatting.GetSlotStatusDisplay(slot.Status).Emoji, truncate(slot.Title, 40)),
			SlotData(CbSlot, slot.ID),
		))
	}

	return Screen{Text: sb.String(), Keyboard: kb.Build()}
}

// SlotScreen карточка слота с действиями владельца
func SlotScreen(slot *model.Slot) Screen {
	kb := keyboard.NewBuilder()

	switch slot.Status {
	case model.SlotStatusBusy:
		kb.Row(keyboard.Button("🔄 Выставить на обмен", SlotData(CbToggle, slot.ID)))
	case model.SlotStatusExchangeable:
		kb.Row(keyboard.Button("🔒 Снять с обмена", SlotData(CbToggle, slot.ID)))
	}

	pending := slot.IsPending()
	kb.RowIf(!pending,
		keyboard.Button("✏️ Переименовать", SlotData(CbRename, slot.ID)),
		keyboard.Button("🗑 Удалить", SlotData(CbDelete, slot.ID)),
	)
	kb.Row(keyboard.Button("⬅️ К моим слотам", CbMySlots))

	text := formatting.FormatSlot(slot)
	if pending {
		text += "\n\nСлот участвует в заявке на обмен. Изменить его можно после ответа на заявку."
	}

	return Screen{Text: text, Keyboard: kb.Build()}
}

// DeleteConfirmScreen подтверждение удаления
func DeleteConfirmScreen(slot *model.Slot) Screen {
	kb := keyboard.NewBuilder().
		Row(
			keyboard.Button("✅ Да, удалить", SlotData(CbDeleteOK, slot.ID)),
			keyboard.Button("❌ Отмена", SlotData(CbSlot, slot.ID)),
		)
	return Screen{
		Text:     "🗑 Удалить слот?\n\n" + formatting.FormatSlot(slot),
		Keyboard: kb.Build(),
	}
}

// MarketScreen страница витрины слотов других пользователей
func MarketScreen(slots []*model.MarketSlot, page int) Screen {
	if len(slots) == 0 {
		return Screen{Text: "🏪 Сейчас нет слотов, доступных для обмена."}
	}

	from, to, current, pages := keyboard.Page(len(slots), page, MarketPageSize)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏪 Доступно для обмена: %d %s\n\n", len(slots), formatting.PluralizeSlots(len(slots)))

	kb := keyboard.NewBuilder()
	for i, slot := range slots[from:to] {
		fmt.Fprintf(&sb, "%d. %s\n\n", from+i+1, formatting.FormatMarketSlot(slot))
		kb.Row(keyboard.Button(
			fmt.Sprintf("🔁 %d. %s", from+i+1, truncate(slot.Title, 40)),
			SlotData(CbOffer, slot.ID),
		))
	}
	kb.AddPagination(CbMarketPage, current, pages)

	return Screen{Text: sb.String(), Keyboard: kb.Build()}
}

// OfferScreen выбор своего слота для предложения обмена на target
func OfferScreen(target *model.Slot, mine []*model.Slot) Screen {
	kb := keyboard.NewBuilder()

	var offered int
	for _, slot := range mine {
		if slot.Status != model.SlotStatusExchangeable {
			continue
		}
		offered++
		kb.Row(keyboard.Button(
			fmt.Sprintf("%s, %s", truncate(slot.Title, 30), formatting.FormatDateTime(slot.StartTime)),
			ProposeData(slot.ID, target.ID),
		))
	}
	kb.Row(keyboard.Button("⬅️ К витрине", CbMarketPage+"0"))

	text := "🔁 Обмен на слот:\n" + formatting.FormatSlot(target) + "\n\n"
	if offered == 0 {
		text += "У вас нет слотов, выставленных на обмен. Откройте /myslots и выставьте слот на обмен."
	} else {
		text += "Выберите свой слот, который предложите взамен:"
	}

	return Screen{Text: text, Keyboard: kb.Build()}
}

// IncomingScreen входящие заявки с кнопками ответа
func IncomingScreen(views []*model.ExchangeRequestView) Screen {
	if len(views) == 0 {
		return Screen{Text: "📭 Входящих заявок нет."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 Входящие: %d %s\n\n", len(views), formatting.PluralizeRequests(len(views)))

	kb := keyboard.NewBuilder()
	for _, v := range views[:min(len(views), RequestsLimit)] {
		sb.WriteString(formatting.FormatIncomingRequest(v))
		sb.WriteString("\n\n")
		kb.Row(
			keyboard.Button(fmt.Sprintf("✅ Принять #%d", v.ID), SlotData(CbAccept, v.ID)),
			keyboard.Button(fmt.Sprintf("🚫 Отклонить #%d", v.ID), SlotData(CbReject, v.ID)),
		)
	}
	if rest := len(views) - RequestsLimit; rest > 0 {
		fmt.Fprintf(&sb, "…и ещё %d %s", rest, formatting.PluralizeRequests(rest))
	}

	return Screen{Text: sb.String(), Keyboard: kb.Build()}
}

// OutgoingScreen исходящие заявки во всех статусах
func OutgoingScreen(views []*model.ExchangeRequestView) Screen {
	if len(views) == 0 {
		return Screen{Text: "📭 Вы ещё не отправляли заявок. Найдите слот через /market."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📤 Исходящие: %d %s\n\n", len(views), formatting.PluralizeRequests(len(views)))
	for _, v := range views[:min(len(views), RequestsLimit)] {
		sb.WriteString(formatting.FormatOutgoingRequest(v))
		sb.WriteString("\n\n")
	}
	if rest := len(views) - RequestsLimit; rest > 0 {
		fmt.Fprintf(&sb, "…и ещё %d %s", rest, formatting.PluralizeRequests(rest))
	}

	return Screen{Text: sb.String()}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
