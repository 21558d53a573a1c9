package keyboard

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Noop callback для кнопок-индикаторов
const Noop = "noop"

// PaginationButtons создаёт ряд кнопок пагинации
// prefix - префикс для callback (например "market_page:")
// currentPage - текущая страница (0-based)
func PaginationButtons(prefix string, currentPage, totalPages int) []models.InlineKeyboardButton {
	if totalPages <= 1 {
		return nil
	}

	var buttons []models.InlineKeyboardButton

	if currentPage > 0 {
		buttons = append(buttons, Button("⬅️", fmt.Sprintf("%s%d", prefix, currentPage-1)))
	}

	buttons = append(buttons, Button(
		fmt.Sprintf("📄 %d/%d", currentPage+1, totalPages),
		Noop,
	))

	if currentPage < totalPages-1 {
		buttons = append(buttons, Button("➡️", fmt.Sprintf("%s%d", prefix, currentPage+1)))
	}

	return buttons
}

// AddPagination добавляет пагинацию к builder
func (b *Builder) AddPagination(prefix string, currentPage, totalPages int) *Builder {
	return b.Row(PaginationButtons(prefix, currentPage, totalPages)...)
}

// Page возвращает границы страницы и число страниц. Страница за пределами диапазона прижимается к краю.
func Page(total, page, perPage int) (from, to, current, pages int) {
	if perPage <= 0 {
		perPage = 1
	}
	pages = (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	current = min(max(page, 0), pages-1)
	from = current * perPage
	to = min(from+perPage, total)
	return from, to, current, pages
}
