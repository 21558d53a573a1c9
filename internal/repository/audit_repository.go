package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// Oracle SQL-запрос, возвращающий строки, нарушающие инвариант обмена.
// Пустой результат означает, что инвариант соблюдён.
type Oracle struct {
	Name string
	SQL  string
}

// Oracles все проверки согласованности слотов и заявок
func Oracles() []Oracle {
	return []Oracle{
		{
			Name: "pending_slot_without_request",
			SQL: `SELECT s.id FROM slots s
			      LEFT JOIN exchange_requests r ON r.id = s.pending_request_id AND r.status = 'pending'
			      WHERE s.status = 'exchange_pending' AND r.id IS NULL`,
		},
		{
			Name: "pending_request_slot_not_locked",
			SQL: `SELECT r.id FROM exchange_requests r
			      JOIN slots s ON s.id IN (r.requester_slot_id, r.recipient_slot_id)
			      WHERE r.status = 'pending'
			        AND (s.status <> 'exchange_pending' OR s.pending_request_id IS DISTINCT FROM r.id)`,
		},
		{
			Name: "pending_request_slot_missing",
			SQL: `SELECT r.id FROM exchange_requests r
			      WHERE r.status = 'pending'
			        AND (SELECT COUNT(*) FROM slots s
			             WHERE s.id IN (r.requester_slot_id, r.recipient_slot_id)) < 2`,
		},
		{
			Name: "slot_in_two_pending_requests",
			SQL: `SELECT slot_id FROM (
			          SELECT requester_slot_id AS slot_id FROM exchange_requests WHERE status = 'pending'
			          UNION ALL
			          SELECT recipient_slot_id FROM exchange_requests WHERE status = 'pending'
			      ) refs
			      GROUP BY slot_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "request_same_owner",
			SQL: `SELECT id FROM exchange_requests
			      WHERE requester_user_id = recipient_user_id OR requester_slot_id = recipient_slot_id`,
		},
	}
}

type AuditRepository struct{}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// maxViolationIDs сколько ID нарушителей сохранять на один оракул
const maxViolationIDs = 20

// Run выполняет все оракулы и возвращает найденные нарушения
func (r *AuditRepository) Run(ctx context.Context, q base.DBTX) ([]model.AuditViolation, error) {
	var violations []model.AuditViolation

	for _, o := range Oracles() {
		rows, err := q.Query(ctx, o.SQL+` LIMIT `+fmt.Sprint(maxViolationIDs))
		if err != nil {
			return nil, fmt.Errorf("run oracle %s: %w", o.Name, err)
		}

		ids, err := base.CollectRows(rows, func(rows pgx.Rows) (*int64, error) {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			return &id, nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan oracle %s: %w", o.Name, err)
		}

		if len(ids) > 0 {
			v := model.AuditViolation{Oracle: o.Name}
			for _, id := range ids {
				v.IDs = append(v.IDs, *id)
			}
			violations = append(violations, v)
		}
	}

	return violations, nil
}
