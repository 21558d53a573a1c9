package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, owner_id, title, start_time, end_time, status, pending_request_id, created_at, updated_at`

type SlotRepository struct{}

func NewSlotRepository() *SlotRepository {
	return &SlotRepository{}
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.Title,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Status,
		&slot.PendingRequestID,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func scanSlotRows(rows pgx.Rows) (*model.Slot, error) {
	return scanSlot(rows)
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, q base.DBTX, slot *model.Slot) error {
	query := `
		INSERT INTO slots (owner_id, title, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		slot.OwnerID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID, nil если слота нет
func (r *SlotRepository) GetByID(ctx context.Context, q base.DBTX, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// LockByIDs блокирует слоты (FOR UPDATE) строго по возрастанию ID.
// Единый порядок захвата исключает взаимную блокировку двух обменов с общими слотами.
// Отсутствующие слоты просто не попадают в результат.
func (r *SlotRepository) LockByIDs(ctx context.Context, q base.DBTX, ids []int64) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + `
		FROM slots
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock slots: %w", err)
	}

	slots, err := base.CollectRows(rows, scanSlotRows)
	if err != nil {
		return nil, fmt.Errorf("scan slot: %w", err)
	}

	return slots, nil
}

// Update сохраняет все изменяемые поля слота
func (r *SlotRepository) Update(ctx context.Context, q base.DBTX, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET owner_id = $2, title = $3, start_time = $4, end_time = $5,
		    status = $6, pending_request_id = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := q.QueryRow(
		ctx, query,
		slot.ID,
		slot.OwnerID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
		slot.PendingRequestID,
	).Scan(&slot.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("slot %d not found", slot.ID)
		}
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

// Delete удаляет слот
func (r *SlotRepository) Delete(ctx context.Context, q base.DBTX, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %d not found", id)
	}

	return nil
}

// ListByOwner получает все слоты пользователя
func (r *SlotRepository) ListByOwner(ctx context.Context, q base.DBTX, ownerID int64) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + `
		FROM slots
		WHERE owner_id = $1
		ORDER BY start_time, id
	`

	rows, err := q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get slots by owner: %w", err)
	}

	slots, err := base.CollectRows(rows, scanSlotRows)
	if err != nil {
		return nil, fmt.Errorf("scan slot: %w", err)
	}

	return slots, nil
}

// ListExchangeable получает слоты, выставленные на обмен всеми кроме excludeUserID
func (r *SlotRepository) ListExchangeable(ctx context.Context, q base.DBTX, excludeUserID int64) ([]*model.MarketSlot, error) {
	query := `
		SELECT s.id, s.owner_id, s.title, s.start_time, s.end_time, s.status, s.pending_request_id,
		       s.created_at, s.updated_at, u.first_name, u.last_name, u.username
		FROM slots s
		JOIN users u ON u.id = s.owner_id
		WHERE s.status = 'exchangeable'
		  AND s.owner_id <> $1
		ORDER BY s.start_time, s.id
	`

	rows, err := q.Query(ctx, query, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("get exchangeable slots: %w", err)
	}

	slots, err := base.CollectRows(rows, func(rows pgx.Rows) (*model.MarketSlot, error) {
		var (
			ms    model.MarketSlot
			owner model.User
		)
		err := rows.Scan(
			&ms.ID,
			&ms.OwnerID,
			&ms.Title,
			&ms.StartTime,
			&ms.EndTime,
			&ms.Status,
			&ms.PendingRequestID,
			&ms.CreatedAt,
			&ms.UpdatedAt,
			&owner.FirstName,
			&owner.LastName,
			&owner.Username,
		)
		if err != nil {
			return nil, err
		}
		ms.OwnerName = owner.DisplayName()
		return &ms, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan market slot: %w", err)
	}

	return slots, nil
}
