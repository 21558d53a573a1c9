package handlers

// Формат команды /newslot
const (
	slotDateLayout = "02.01.2006"
	slotTimeLayout = "15:04"

	newSlotUsage = "Формат: <code>/newslot ДД.ММ.ГГГГ ЧЧ:ММ-ЧЧ:ММ Название</code>\n" +
		"Например: <code>/newslot 20.10.2026 09:00-10:30 Дежурство</code>"
)
