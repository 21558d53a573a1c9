package model

import (
	"strings"
	"time"
)

type User struct {
	ID         int64     `json:"id"`
	TelegramID *int64    `json:"telegram_id,omitempty"` // nil для пользователей, пришедших не из Telegram
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName возвращает имя для показа другим пользователям
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "Пользователь"
}
