package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Notifier доставляет события обмена участникам. Вызывается только после коммита.
type Notifier interface {
	NotifyExchange(ctx context.Context, event model.ExchangeEvent) error
}

// ExchangeService координатор обмена слотами: создание заявки, принятие, отклонение
// и аннулирование конфликтующих заявок.
//
// Каждая изменяющая операция выполняется одной транзакцией. Строки блокируются в
// едином порядке: сначала слоты по возрастанию ID, затем заявки по возрастанию ID.
type ExchangeService struct {
	tx           *TxRunner
	slotRepo     SlotRepository
	exchangeRepo ExchangeRepository
	auditRepo    AuditRepository
	notifier     Notifier
	logger       *zap.Logger
}

func NewExchangeService(
	tx *TxRunner,
	slotRepo SlotRepository,
	exchangeRepo ExchangeRepository,
	auditRepo AuditRepository,
	logger *zap.Logger,
) *ExchangeService {
	return &ExchangeService{
		tx:           tx,
		slotRepo:     slotRepo,
		exchangeRepo: exchangeRepo,
		auditRepo:    auditRepo,
		logger:       logger,
	}
}

// SetNotifier подключает доставку уведомлений
func (s *ExchangeService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ProposeExchange создаёт заявку на обмен requesterSlotID на recipientSlotID.
// Это единственный путь, переводящий слоты в exchange_pending.
func (s *ExchangeService) ProposeExchange(ctx context.Context, requesterSlotID, recipientSlotID, callerID int64) (*model.ExchangeRequest, error) {
	const op = "propose exchange"

	if requesterSlotID == recipientSlotID {
		return nil, model.NewSelfSwapError(op)
	}

	var req *model.ExchangeRequest
	err := s.tx.Write(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := s.slotRepo.LockByIDs(ctx, tx, sortedUnique(requesterSlotID, recipientSlotID))
		if err != nil {
			return err
		}
		slots := indexSlots(locked)

		requesterSlot, ok := slots[requesterSlotID]
		if !ok {
			return model.NewNotFoundError(op, fmt.Sprintf("slot %d not found", requesterSlotID))
		}
		recipientSlot, ok := slots[recipientSlotID]
		if !ok {
			return model.NewNotFoundError(op, fmt.Sprintf("slot %d not found", recipientSlotID))
		}

		if requesterSlot.OwnerID != callerID {
			return model.NewAuthorizationError(op, "you can only offer your own slot")
		}
		if requesterSlot.OwnerID == recipientSlot.OwnerID {
			return model.NewSelfSwapError(op)
		}

		for _, slot := range []*model.Slot{requesterSlot, recipientSlot} {
			if slot.Status != model.SlotStatusExchangeable {
				return model.NewSlotNotAvailableError(op, slot.ID)
			}
		}

		req = &model.ExchangeRequest{
			RequesterSlotID: requesterSlot.ID,
			RecipientSlotID: recipientSlot.ID,
			RequesterUserID: requesterSlot.OwnerID,
			RecipientUserID: recipientSlot.OwnerID,
			Status:          model.ExchangeStatusPending,
		}
		if err := s.exchangeRepo.Create(ctx, tx, req); err != nil {
			return err
		}

		for _, slot := range []*model.Slot{requesterSlot, recipientSlot} {
			slot.Lock(req.ID)
			if err := s.slotRepo.Update(ctx, tx, slot); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exchange proposed",
		zap.Int64("request_id", req.ID),
		zap.Int64("requester_slot_id", req.RequesterSlotID),
		zap.Int64("recipient_slot_id", req.RecipientSlotID),
		zap.Int64("requester_id", req.RequesterUserID),
		zap.Int64("recipient_id", req.RecipientUserID),
	)

	s.notify(ctx, model.ExchangeEvent{Type: model.ExchangeEventProposed, Request: *req})

	return req, nil
}

// RespondToExchange принимает (accept=true) или отклоняет заявку от имени получателя
func (s *ExchangeService) RespondToExchange(ctx context.Context, requestID, callerID int64, accept bool) (*model.ExchangeRequest, error) {
	op := "reject exchange"
	if accept {
		op = "accept exchange"
	}

	var (
		result *model.ExchangeRequest
		events []model.ExchangeEvent
	)
	err := s.tx.Write(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		events = events[:0]

		ls, err := s.lockExchange(ctx, tx, op, requestID, callerID)
		if err != nil {
			return err
		}

		if accept {
			events, err = s.accept(ctx, tx, ls)
		} else {
			events, err = s.reject(ctx, tx, ls)
		}
		if err != nil {
			return err
		}

		result = ls.request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exchange resolved",
		zap.Int64("request_id", result.ID),
		zap.String("status", string(result.Status)),
		zap.Int64("recipient_id", callerID),
		zap.Int("invalidated", countEvents(events, model.ExchangeEventInvalidated)),
	)

	for _, ev := range events {
		s.notify(ctx, ev)
	}

	return result, nil
}

// lockSet заблокированные строки одной операции ответа на заявку
type lockSet struct {
	request *model.ExchangeRequest
	others  []*model.ExchangeRequest // прочие pending заявки на те же слоты
	slots   map[int64]*model.Slot
}

// lockExchange планирует и захватывает блокировки для ответа на заявку.
// Сначала без блокировок читается заявка и конфликтующие с ней pending заявки,
// затем слоты и заявки блокируются по возрастанию ID, после чего набор
// конфликтующих заявок перечитывается. Если он изменился, попытка повторяется.
func (s *ExchangeService) lockExchange(ctx context.Context, tx pgx.Tx, op string, requestID, callerID int64) (*lockSet, error) {
	req, err := s.exchangeRepo.GetByID(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.NewNotFoundError(op, fmt.Sprintf("exchange request %d not found", requestID))
	}
	if req.RecipientUserID != callerID {
		return nil, model.NewAuthorizationError(op, "only the recipient can respond to the request")
	}
	if req.Status != model.ExchangeStatusPending {
		return nil, model.NewConflictError(op, fmt.Sprintf("request is already %s", req.Status))
	}

	planned, err := s.conflictingRequests(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	slotIDs := req.SlotIDs()
	requestIDs := []int64{req.ID}
	for _, other := range planned {
		slotIDs = append(slotIDs, other.SlotIDs()...)
		requestIDs = append(requestIDs, other.ID)
	}

	lockedSlots, err := s.slotRepo.LockByIDs(ctx, tx, sortedUnique(slotIDs...))
	if err != nil {
		return nil, err
	}
	lockedReqs, err := s.exchangeRepo.LockByIDs(ctx, tx, sortedUnique(requestIDs...))
	if err != nil {
		return nil, err
	}

	var current *model.ExchangeRequest
	for _, r := range lockedReqs {
		if r.ID == req.ID {
			current = r
		}
	}
	if current == nil {
		return nil, model.NewNotFoundError(op, fmt.Sprintf("exchange request %d not found", requestID))
	}
	// Пока ждали блокировку, заявку мог обработать параллельный ответ
	if current.Status != model.ExchangeStatusPending {
		return nil, model.NewConflictError(op, fmt.Sprintf("request is already %s", current.Status))
	}

	others, err := s.conflictingRequests(ctx, tx, current)
	if err != nil {
		return nil, err
	}
	if !sameRequestIDs(planned, others) {
		return nil, errLockSetChanged
	}

	ls := &lockSet{
		request: current,
		others:  others,
		slots:   indexSlots(lockedSlots),
	}

	// Заявка устарела, если хотя бы один из её слотов уже не удерживается ею
	for _, id := range current.SlotIDs() {
		slot, ok := ls.slots[id]
		if !ok || !slot.LockedBy(current.ID) {
			return nil, model.NewConflictError(op, fmt.Sprintf("slot %d is no longer held by this request", id))
		}
	}
	if ls.slots[current.RecipientSlotID].OwnerID != callerID {
		return nil, model.NewAuthorizationError(op, "only the recipient can respond to the request")
	}

	return ls, nil
}

// conflictingRequests pending заявки, разделяющие слот с req
func (s *ExchangeService) conflictingRequests(ctx context.Context, tx pgx.Tx, req *model.ExchangeRequest) ([]*model.ExchangeRequest, error) {
	pending, err := s.exchangeRepo.ListPendingBySlots(ctx, tx, req.SlotIDs())
	if err != nil {
		return nil, err
	}

	others := make([]*model.ExchangeRequest, 0, len(pending))
	for _, p := range pending {
		if p.ID != req.ID {
			others = append(others, p)
		}
	}
	return others, nil
}

// accept меняет владельцев слотов, закрывает заявку и аннулирует конфликтующие
func (s *ExchangeService) accept(ctx context.Context, tx pgx.Tx, ls *lockSet) ([]model.ExchangeEvent, error) {
	req := ls.request
	requesterSlot := ls.slots[req.RequesterSlotID]
	recipientSlot := ls.slots[req.RecipientSlotID]

	requesterSlot.OwnerID, recipientSlot.OwnerID = recipientSlot.OwnerID, requesterSlot.OwnerID
	// Полученный слот не выставляется на обмен автоматически
	requesterSlot.Release(model.SlotStatusBusy)
	recipientSlot.Release(model.SlotStatusBusy)

	for _, slot := range []*model.Slot{requesterSlot, recipientSlot} {
		if err := s.slotRepo.Update(ctx, tx, slot); err != nil {
			return nil, err
		}
	}

	if err := s.exchangeRepo.UpdateStatus(ctx, tx, req, model.ExchangeStatusAccepted); err != nil {
		return nil, err
	}

	events := []model.ExchangeEvent{{Type: model.ExchangeEventAccepted, Request: *req}}

	for _, other := range ls.others {
		if err := s.exchangeRepo.UpdateStatus(ctx, tx, other, model.ExchangeStatusInvalidated); err != nil {
			return nil, err
		}

		// Третий слот возвращается на биржу, только если его держала именно аннулированная заявка
		for _, id := range other.SlotIDs() {
			if req.References(id) {
				continue
			}
			slot, ok := ls.slots[id]
			if !ok || !slot.LockedBy(other.ID) {
				continue
			}
			if err := s.releaseOrReassign(ctx, tx, slot, other.ID, ls.others, model.SlotStatusExchangeable); err != nil {
				return nil, err
			}
		}

		events = append(events, model.ExchangeEvent{Type: model.ExchangeEventInvalidated, Request: *other})
	}

	return events, nil
}

// reject закрывает заявку и возвращает её слоты на биржу
func (s *ExchangeService) reject(ctx context.Context, tx pgx.Tx, ls *lockSet) ([]model.ExchangeEvent, error) {
	req := ls.request

	if err := s.exchangeRepo.UpdateStatus(ctx, tx, req, model.ExchangeStatusRejected); err != nil {
		return nil, err
	}

	for _, id := range req.SlotIDs() {
		if err := s.releaseOrReassign(ctx, tx, ls.slots[id], req.ID, ls.others, model.SlotStatusExchangeable); err != nil {
			return nil, err
		}
	}

	return []model.ExchangeEvent{{Type: model.ExchangeEventRejected, Request: *req}}, nil
}

// releaseOrReassign снимает со слота заявку closedID. Если слот всё ещё упоминается
// другой pending заявкой, слот остаётся exchange_pending и переходит к ней.
func (s *ExchangeService) releaseOrReassign(ctx context.Context, tx pgx.Tx, slot *model.Slot, closedID int64, pending []*model.ExchangeRequest, releaseTo model.SlotStatus) error {
	for _, p := range pending {
		if p.ID != closedID && p.Status == model.ExchangeStatusPending && p.References(slot.ID) {
			slot.Lock(p.ID)
			return s.slotRepo.Update(ctx, tx, slot)
		}
	}

	slot.Release(releaseTo)
	return s.slotRepo.Update(ctx, tx, slot)
}

// GetRequest получает заявку, видимую только её участникам
func (s *ExchangeService) GetRequest(ctx context.Context, requestID, callerID int64) (*model.ExchangeRequest, error) {
	const op = "get exchange request"

	var req *model.ExchangeRequest
	err := s.tx.Read(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		req, err = s.exchangeRepo.GetByID(ctx, tx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.NewNotFoundError(op, fmt.Sprintf("exchange request %d not found", requestID))
	}
	if req.RequesterUserID != callerID && req.RecipientUserID != callerID {
		return nil, model.NewAuthorizationError(op, "only participants can view the request")
	}
	return req, nil
}

// ListIncoming pending заявки на слоты пользователя, новые первыми
func (s *ExchangeService) ListIncoming(ctx context.Context, userID int64) ([]*model.ExchangeRequestView, error) {
	var views []*model.ExchangeRequestView
	err := s.tx.Read(ctx, "list incoming", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		views, err = s.exchangeRepo.ListIncoming(ctx, tx, userID)
		return err
	})
	return views, err
}

// ListOutgoing все заявки пользователя в любом статусе, новые первыми
func (s *ExchangeService) ListOutgoing(ctx context.Context, userID int64) ([]*model.ExchangeRequestView, error) {
	var views []*model.ExchangeRequestView
	err := s.tx.Read(ctx, "list outgoing", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		views, err = s.exchangeRepo.ListOutgoing(ctx, tx, userID)
		return err
	})
	return views, err
}

// Audit проверяет инварианты слотов и заявок в согласованном снимке
func (s *ExchangeService) Audit(ctx context.Context) ([]model.AuditViolation, error) {
	var violations []model.AuditViolation
	err := s.tx.Read(ctx, "audit", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		violations, err = s.auditRepo.Run(ctx, tx)
		return err
	})
	return violations, err
}

func (s *ExchangeService) notify(ctx context.Context, ev model.ExchangeEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyExchange(ctx, ev); err != nil {
		s.logger.Warn("Failed to deliver exchange notification",
			zap.Int64("request_id", ev.Request.ID),
			zap.String("event", string(ev.Type)),
			zap.Error(err),
		)
	}
}

func indexSlots(slots []*model.Slot) map[int64]*model.Slot {
	m := make(map[int64]*model.Slot, len(slots))
	for _, slot := range slots {
		m[slot.ID] = slot
	}
	return m
}

func countEvents(events []model.ExchangeEvent, typ model.ExchangeEventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func sortedUnique(ids ...int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func sameRequestIDs(a, b []*model.ExchangeRequest) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[int64]struct{}, len(a))
	for _, r := range a {
		ids[r.ID] = struct{}{}
	}
	for _, r := range b {
		if _, ok := ids[r.ID]; !ok {
			return false
		}
	}
	return true
}
