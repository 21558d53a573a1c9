package service

import (
	"context"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
)

// Интерфейсы хранилища, которые использует ядро.
// Реализации в пакете repository работают поверх PostgreSQL.

type SlotRepository interface {
	Create(ctx context.Context, q base.DBTX, slot *model.Slot) error
	GetByID(ctx context.Context, q base.DBTX, id int64) (*model.Slot, error)
	LockByIDs(ctx context.Context, q base.DBTX, ids []int64) ([]*model.Slot, error)
	Update(ctx context.Context, q base.DBTX, slot *model.Slot) error
	Delete(ctx context.Context, q base.DBTX, id int64) error
	ListByOwner(ctx context.Context, q base.DBTX, ownerID int64) ([]*model.Slot, error)
	ListExchangeable(ctx context.Context, q base.DBTX, excludeUserID int64) ([]*model.MarketSlot, error)
}

type ExchangeRepository interface {
	Create(ctx context.Context, q base.DBTX, req *model.ExchangeRequest) error
	GetByID(ctx context.Context, q base.DBTX, id int64) (*model.ExchangeRequest, error)
	LockByIDs(ctx context.Context, q base.DBTX, ids []int64) ([]*model.ExchangeRequest, error)
	UpdateStatus(ctx context.Context, q base.DBTX, req *model.ExchangeRequest, status model.ExchangeStatus) error
	ListPendingBySlots(ctx context.Context, q base.DBTX, slotIDs []int64) ([]*model.ExchangeRequest, error)
	ListIncoming(ctx context.Context, q base.DBTX, userID int64) ([]*model.ExchangeRequestView, error)
	ListOutgoing(ctx context.Context, q base.DBTX, userID int64) ([]*model.ExchangeRequestView, error)
}

type UserRepository interface {
	Create(ctx context.Context, q base.DBTX, user *model.User) error
	GetByID(ctx context.Context, q base.DBTX, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, q base.DBTX, telegramID int64) (*model.User, error)
	Update(ctx context.Context, q base.DBTX, user *model.User) error
}

type AuditRepository interface {
	Run(ctx context.Context, q base.DBTX) ([]model.AuditViolation, error)
}
