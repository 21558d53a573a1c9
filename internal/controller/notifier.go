package controller

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender отправка сообщений, *bot.Bot подходит
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
}

type SlotLookup interface {
	GetSlot(ctx context.Context, slotID int64) (*model.Slot, error)
}

// Notifier сообщает участникам обмена о зафиксированных изменениях заявок
type Notifier struct {
	sender MessageSender
	users  UserLookup
	slots  SlotLookup
	logger *zap.Logger
}

func NewNotifier(sender MessageSender, users UserLookup, slots SlotLookup, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		users:  users,
		slots:  slots,
		logger: logger,
	}
}

// NotifyExchange о новой заявке узнаёт получатель, об ответе и аннулировании автор заявки
func (n *Notifier) NotifyExchange(ctx context.Context, ev model.ExchangeEvent) error {
	req := ev.Request

	recipientID := req.RequesterUserID
	if ev.Type == model.ExchangeEventProposed {
		recipientID = req.RecipientUserID
	}

	user, err := n.users.GetByID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", recipientID, err)
	}
	if user == nil || user.TelegramID == nil {
		n.logger.Debug("Skip notification, user has no telegram chat",
			zap.Int64("user_id", recipientID),
			zap.Int64("request_id", req.ID),
		)
		return nil
	}

	requesterSlot := n.describeSlot(ctx, req.RequesterSlotID)
	recipientSlot := n.describeSlot(ctx, req.RecipientSlotID)

	params := &bot.SendMessageParams{
		ChatID:    *user.TelegramID,
		ParseMode: models.ParseModeHTML,
	}

	switch ev.Type {
	case model.ExchangeEventProposed:
		params.Text = fmt.Sprintf(
			"🔄 Новая заявка на обмен #%d\n\nВам предлагают: %s\nВ обмен на ваш: %s",
			req.ID, requesterSlot, recipientSlot,
		)
		params.ReplyMarkup = keyboard.NewBuilder().
			Row(
				keyboard.Button("✅ Принять", common.SlotData(common.CbAccept, req.ID)),
				keyboard.Button("🚫 Отклонить", common.SlotData(common.CbReject, req.ID)),
			).
			Build()
	case model.ExchangeEventAccepted:
		params.Text = fmt.Sprintf(
			"✅ Заявка #%d принята\n\nТеперь ваш слот: %s\nВзамен отдан: %s",
			req.ID, recipientSlot, requesterSlot,
		)
	case model.ExchangeEventRejected:
		params.Text = fmt.Sprintf(
			"🚫 Заявка #%d отклонена\n\nСлот %s снова в вашем распоряжении.",
			req.ID, requesterSlot,
		)
	case model.ExchangeEventInvalidated:
		params.Text = fmt.Sprintf(
			"⚠️ Заявка #%d аннулирована: запрошенный слот %s уже участвует в другом обмене.",
			req.ID, recipientSlot,
		)
	default:
		return fmt.Errorf("unknown exchange event %q", ev.Type)
	}

	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send %s notification: %w", ev.Type, err)
	}
	return nil
}

// describeSlot название и время слота, для удалённого слота только номер
func (n *Notifier) describeSlot(ctx context.Context, slotID int64) string {
	slot, err := n.slots.GetSlot(ctx, slotID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			n.logger.Warn("Failed to load slot for notification", zap.Int64("slot_id", slotID), zap.Error(err))
		}
		return fmt.Sprintf("слот #%d", slotID)
	}
	return fmt.Sprintf("<b>%s</b> (%s)",
		html.EscapeString(slot.Title),
		formatting.FormatPeriod(slot.StartTime, slot.EndTime),
	)
}
