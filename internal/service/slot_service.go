package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CreateSlotParams параметры нового слота
type CreateSlotParams struct {
	OwnerID   int64
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Status    model.SlotStatus // busy по умолчанию
}

// SlotUpdate изменяемые поля слота, nil - оставить как есть
type SlotUpdate struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
}

type SlotService struct {
	tx       *TxRunner
	slotRepo SlotRepository
	userRepo UserRepository
	logger   *zap.Logger
}

func NewSlotService(tx *TxRunner, slotRepo SlotRepository, userRepo UserRepository, logger *zap.Logger) *SlotService {
	return &SlotService{
		tx:       tx,
		slotRepo: slotRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// CreateSlot создаёт слот владельца
func (s *SlotService) CreateSlot(ctx context.Context, params CreateSlotParams) (*model.Slot, error) {
	const op = "create slot"

	if params.OwnerID <= 0 {
		return nil, model.NewValidationError(op, "owner is required")
	}
	if err := model.ValidateSlotFields(params.Title, params.StartTime, params.EndTime); err != nil {
		return nil, err
	}

	status := params.Status
	if status == "" {
		status = model.SlotStatusBusy
	}
	// В exchange_pending слот переводит только координатор обмена
	if status != model.SlotStatusBusy && status != model.SlotStatusExchangeable {
		return nil, model.NewValidationError(op, fmt.Sprintf("initial status %q is not allowed", status))
	}

	slot := &model.Slot{
		OwnerID:   params.OwnerID,
		Title:     strings.TrimSpace(params.Title),
		StartTime: params.StartTime,
		EndTime:   params.EndTime,
		Status:    status,
	}

	err := s.tx.Write(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		owner, err := s.userRepo.GetByID(ctx, tx, params.OwnerID)
		if err != nil {
			return fmt.Errorf("get owner: %w", err)
		}
		if owner == nil {
			return model.NewValidationError(op, "owner does not exist")
		}

		return s.slotRepo.Create(ctx, tx, slot)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("owner_id", slot.OwnerID),
		zap.String("status", string(slot.Status)),
	)

	return slot, nil
}

// lockOwnedSlot блокирует слот и проверяет, что им владеет caller
func (s *SlotService) lockOwnedSlot(ctx context.Context, tx pgx.Tx, op string, slotID, callerID int64) (*model.Slot, error) {
	slots, err := s.slotRepo.LockByIDs(ctx, tx, []int64{slotID})
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, model.NewNotFoundError(op, fmt.Sprintf("slot %d not found", slotID))
	}

	slot := slots[0]
	if slot.OwnerID != callerID {
		return nil, model.NewAuthorizationError(op, "only the owner can modify the slot")
	}

	return slot, nil
}

// UpdateSlot меняет название и время слота. Пока слот участвует в заявке, менять нельзя.
func (s *SlotService) UpdateSlot(ctx context.Context, slotID, callerID int64, upd SlotUpdate) (*model.Slot, error) {
	const op = "update slot"

	var slot *model.Slot
	err := s.tx.Write(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		slot, err = s.lockOwnedSlot(ctx, tx, op, slotID, callerID)
		if err != nil {
			return err
		}

		if slot.IsPending() {
			return model.NewConflictError(op, "slot is part of a pending exchange")
		}

		if upd.Title != nil {
			slot.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.StartTime != nil {
			slot.StartTime = *upd.StartTime
		}
		if upd.EndTime != nil {
			slot.EndTime = *upd.EndTime
		}
		if err := model.ValidateSlotFields(slot.Title, slot.StartTime, slot.EndTime); err != nil {
			return err
		}

		return s.slotRepo.Update(ctx, tx, slot)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot updated",
		zap.Int64("slot_id", slotID),
		zap.Int64("owner_id", callerID),
	)

	return slot, nil
}

// DeleteSlot удаляет слот. Слот в открытой заявке удалить нельзя.
func (s *SlotService) DeleteSlot(ctx context.Context, slotID, callerID int64) error {
	const op = "delete slot"

	err := s.tx.Write(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		slot, err := s.lockOwnedSlot(ctx, tx, op, slotID, callerID)
		if err != nil {
			return err
		}

		if slot.IsPending() {
			return model.NewConflictError(op, "slot is part of a pending exchange, resolve it first")
		}

		return s.slotRepo.Delete(ctx, tx, slotID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("owner_id", callerID),
	)

	return nil
}

// SetExchangeable переключает слот между busy и exchangeable
func (s *SlotService) SetExchangeable(ctx context.Context, slotID, callerID int64, exchangeable bool) (*model.Slot, error) {
	const op = "set exchangeable"

	target := model.SlotStatusBusy
	if exchangeable {
		target = model.SlotStatusExchangeable
	}

	var slot *model.Slot
	err := s.tx.Write(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		slot, err = s.lockOwnedSlot(ctx, tx, op, slotID, callerID)
		if err != nil {
			return err
		}

		// Выйти из exchange_pending можно только через ответ на заявку
		if slot.IsPending() {
			return model.NewConflictError(op, "slot is part of a pending exchange")
		}
		if slot.Status == target {
			return nil
		}

		slot.Status = target
		return s.slotRepo.Update(ctx, tx, slot)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot status changed",
		zap.Int64("slot_id", slotID),
		zap.String("status", string(slot.Status)),
	)

	return slot, nil
}

// GetSlot получает слот по ID
func (s *SlotService) GetSlot(ctx context.Context, slotID int64) (*model.Slot, error) {
	var slot *model.Slot
	err := s.tx.Read(ctx, "get slot", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		slot, err = s.slotRepo.GetByID(ctx, tx, slotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, model.NewNotFoundError("get slot", fmt.Sprintf("slot %d not found", slotID))
	}
	return slot, nil
}

// ListMySlots получает все слоты пользователя
func (s *SlotService) ListMySlots(ctx context.Context, userID int64) ([]*model.Slot, error) {
	var slots []*model.Slot
	err := s.tx.Read(ctx, "list my slots", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		slots, err = s.slotRepo.ListByOwner(ctx, tx, userID)
		return err
	})
	return slots, err
}

// ListExchangeableSlots витрина: слоты на обмен, кроме слотов excludeUserID
func (s *SlotService) ListExchangeableSlots(ctx context.Context, excludeUserID int64) ([]*model.MarketSlot, error) {
	var slots []*model.MarketSlot
	err := s.tx.Read(ctx, "list exchangeable slots", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		slots, err = s.slotRepo.ListExchangeable(ctx, tx, excludeUserID)
		return err
	})
	return slots, err
}
