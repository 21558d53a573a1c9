package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// ErrRequestNotPending заявка уже перешла в терминальный статус
var ErrRequestNotPending = errors.New("exchange request is not pending")

const exchangeColumns = `id, requester_slot_id, recipient_slot_id, requester_user_id, recipient_user_id, status, created_at, responded_at`

type ExchangeRepository struct{}

func NewExchangeRepository() *ExchangeRepository {
	return &ExchangeRepository{}
}

func scanExchange(row pgx.Row) (*model.ExchangeRequest, error) {
	var req model.ExchangeRequest
	err := row.Scan(
		&req.ID,
		&req.RequesterSlotID,
		&req.RecipientSlotID,
		&req.RequesterUserID,
		&req.RecipientUserID,
		&req.Status,
		&req.CreatedAt,
		&req.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func scanExchangeRows(rows pgx.Rows) (*model.ExchangeRequest, error) {
	return scanExchange(rows)
}

// Create создаёт заявку в статусе pending
func (r *ExchangeRepository) Create(ctx context.Context, q base.DBTX, req *model.ExchangeRequest) error {
	query := `
		INSERT INTO exchange_requests (requester_slot_id, recipient_slot_id, requester_user_id, recipient_user_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := q.QueryRow(
		ctx, query,
		req.RequesterSlotID,
		req.RecipientSlotID,
		req.RequesterUserID,
		req.RecipientUserID,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt)

	if err != nil {
		return fmt.Errorf("create exchange request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID, nil если заявки нет
func (r *ExchangeRepository) GetByID(ctx context.Context, q base.DBTX, id int64) (*model.ExchangeRequest, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchange_requests WHERE id = $1`

	req, err := scanExchange(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exchange request by id: %w", err)
	}

	return req, nil
}

// LockByIDs блокирует заявки по возрастанию ID.
// Вызывается после блокировки слотов: сначала слоты, потом заявки.
func (r *ExchangeRepository) LockByIDs(ctx context.Context, q base.DBTX, ids []int64) ([]*model.ExchangeRequest, error) {
	query := `SELECT ` + exchangeColumns + `
		FROM exchange_requests
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock exchange requests: %w", err)
	}

	reqs, err := base.CollectRows(rows, scanExchangeRows)
	if err != nil {
		return nil, fmt.Errorf("scan exchange request: %w", err)
	}

	return reqs, nil
}

// UpdateStatus переводит pending заявку в терминальный статус
func (r *ExchangeRepository) UpdateStatus(ctx context.Context, q base.DBTX, req *model.ExchangeRequest, status model.ExchangeStatus) error {
	query := `
		UPDATE exchange_requests
		SET status = $2, responded_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING responded_at
	`

	var respondedAt time.Time
	err := q.QueryRow(ctx, query, req.ID, status).Scan(&respondedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return ErrRequestNotPending
		}
		return fmt.Errorf("update exchange request status: %w", err)
	}

	req.Status = status
	req.RespondedAt = &respondedAt
	return nil
}

// ListPendingBySlots получает pending заявки, ссылающиеся на любой из слотов
func (r *ExchangeRepository) ListPendingBySlots(ctx context.Context, q base.DBTX, slotIDs []int64) ([]*model.ExchangeRequest, error) {
	query := `SELECT ` + exchangeColumns + `
		FROM exchange_requests
		WHERE status = 'pending'
		  AND (requester_slot_id = ANY($1) OR recipient_slot_id = ANY($1))
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, slotIDs)
	if err != nil {
		return nil, fmt.Errorf("get pending requests by slots: %w", err)
	}

	reqs, err := base.CollectRows(rows, scanExchangeRows)
	if err != nil {
		return nil, fmt.Errorf("scan exchange request: %w", err)
	}

	return reqs, nil
}

const exchangeViewQuery = `
	SELECT r.id, r.requester_slot_id, r.recipient_slot_id, r.requester_user_id, r.recipient_user_id,
	       r.status, r.created_at, r.responded_at,
	       ru.first_name, ru.last_name, ru.username,
	       cu.first_name, cu.last_name, cu.username,
	       rs.title, rs.start_time, rs.end_time,
	       cs.title, cs.start_time, cs.end_time
	FROM exchange_requests r
	JOIN users ru ON ru.id = r.requester_user_id
	JOIN users cu ON cu.id = r.recipient_user_id
	LEFT JOIN slots rs ON rs.id = r.requester_slot_id
	LEFT JOIN slots cs ON cs.id = r.recipient_slot_id
`

func scanExchangeView(rows pgx.Rows) (*model.ExchangeRequestView, error) {
	var (
		v                  model.ExchangeRequestView
		requester          model.User
		recipient          model.User
		reqTitle, recTitle *string
	)
	err := rows.Scan(
		&v.ID,
		&v.RequesterSlotID,
		&v.RecipientSlotID,
		&v.RequesterUserID,
		&v.RecipientUserID,
		&v.Status,
		&v.CreatedAt,
		&v.RespondedAt,
		&requester.FirstName,
		&requester.LastName,
		&requester.Username,
		&recipient.FirstName,
		&recipient.LastName,
		&recipient.Username,
		&reqTitle,
		&v.RequesterSlot.StartTime,
		&v.RequesterSlot.EndTime,
		&recTitle,
		&v.RecipientSlot.StartTime,
		&v.RecipientSlot.EndTime,
	)
	if err != nil {
		return nil, err
	}

	v.RequesterName = requester.DisplayName()
	v.RecipientName = recipient.DisplayName()
	v.RequesterSlot.ID = v.RequesterSlotID
	v.RecipientSlot.ID = v.RecipientSlotID
	if reqTitle != nil {
		v.RequesterSlot.Title = *reqTitle
	}
	if recTitle != nil {
		v.RecipientSlot.Title = *recTitle
	}

	return &v, nil
}

// ListIncoming получает pending заявки, адресованные пользователю
func (r *ExchangeRepository) ListIncoming(ctx context.Context, q base.DBTX, userID int64) ([]*model.ExchangeRequestView, error) {
	query := exchangeViewQuery + `
		WHERE r.status = 'pending'
		  AND cs.owner_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get incoming requests: %w", err)
	}

	views, err := base.CollectRows(rows, scanExchangeView)
	if err != nil {
		return nil, fmt.Errorf("scan exchange request view: %w", err)
	}

	return views, nil
}

// ListOutgoing получает все заявки пользователя в любом статусе
func (r *ExchangeRepository) ListOutgoing(ctx context.Context, q base.DBTX, userID int64) ([]*model.ExchangeRequestView, error) {
	// Фильтр по автору заявки, а не по текущему владельцу слотов:
	// после обмена история остаётся у того, кто её создал
	query := exchangeViewQuery + `
		WHERE r.requester_user_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get outgoing requests: %w", err)
	}

	views, err := base.CollectRows(rows, scanExchangeView)
	if err != nil {
		return nil, fmt.Errorf("scan exchange request view: %w", err)
	}

	return views, nil
}
