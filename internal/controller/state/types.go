package state

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Переименование слота: ждём новое название
	StateRenameSlot UserState = "rename_slot"
)

// Ключи временных данных диалога
const (
	DataSlotID = "slot_id"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State UserState
	Data  map[string]any
}
