package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// memState зафиксированное состояние in-memory базы
type memState struct {
	users    map[int64]model.User
	slots    map[int64]model.Slot
	requests map[int64]model.ExchangeRequest
	nextID   int64
	clock    time.Time
}

func newMemState() *memState {
	return &memState{
		users:    make(map[int64]model.User),
		slots:    make(map[int64]model.Slot),
		requests: make(map[int64]model.ExchangeRequest),
		clock:    time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    make(map[int64]model.User, len(s.users)),
		slots:    make(map[int64]model.Slot, len(s.slots)),
		requests: make(map[int64]model.ExchangeRequest, len(s.requests)),
		nextID:   s.nextID,
		clock:    s.clock,
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	for id, sl := range s.slots {
		if sl.PendingRequestID != nil {
			ref := *sl.PendingRequestID
			sl.PendingRequestID = &ref
		}
		c.slots[id] = sl
	}
	for id, r := range s.requests {
		c.requests[id] = r
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memState) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// memDB сериализует транзакции одним мьютексом: каждая транзакция работает
// с копией состояния и публикует её целиком при коммите
type memDB struct {
	mu    sync.Mutex
	state *memState

	faultMu        sync.Mutex
	lockFaults     int // сколько следующих LockByIDs вернут deadlock
	begins         int
	failAfterWrite error // ошибка после первой записи слота, для проверки отката
}

func newMemDB() *memDB {
	return &memDB{state: newMemState()}
}

func (db *memDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	db.mu.Lock()
	db.faultMu.Lock()
	db.begins++
	db.faultMu.Unlock()
	return &memTx{db: db, state: db.state.clone()}, nil
}

func (db *memDB) snapshot() *memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

func (db *memDB) takeLockFault() bool {
	db.faultMu.Lock()
	defer db.faultMu.Unlock()
	if db.lockFaults > 0 {
		db.lockFaults--
		return true
	}
	return false
}

func (db *memDB) takeWriteFault() error {
	db.faultMu.Lock()
	defer db.faultMu.Unlock()
	err := db.failAfterWrite
	db.failAfterWrite = nil
	return err
}

type memTx struct {
	db     *memDB
	state  *memState
	closed bool
}

func (tx *memTx) finish(commit bool) {
	if tx.closed {
		return
	}
	tx.closed = true
	if commit {
		tx.db.state = tx.state
	}
	tx.db.mu.Unlock()
}

func (tx *memTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("memTx does not support nested transactions")
}

func (tx *memTx) Commit(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.finish(true)
	return nil
}

func (tx *memTx) Rollback(context.Context) error {
	tx.finish(false)
	return nil
}

func (tx *memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (tx *memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (tx *memTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (tx *memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

// Exec поддерживает только SET LOCAL из TxRunner
func (tx *memTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("SET"), nil
}

func (tx *memTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (tx *memTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (tx *memTx) Conn() *pgx.Conn {
	return nil
}

func stateOf(q base.DBTX) *memState {
	return q.(*memTx).state
}

func dbOf(q base.DBTX) *memDB {
	return q.(*memTx).db
}

// memUsers реализация UserRepository поверх memState
type memUsers struct{}

func (memUsers) Create(ctx context.Context, q base.DBTX, user *model.User) error {
	st := stateOf(q)
	user.ID = st.id()
	user.CreatedAt = st.tick()
	st.users[user.ID] = *user
	return nil
}

func (memUsers) GetByID(ctx context.Context, q base.DBTX, id int64) (*model.User, error) {
	u, ok := stateOf(q).users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (memUsers) GetByTelegramID(ctx context.Context, q base.DBTX, telegramID int64) (*model.User, error) {
	for _, u := range stateOf(q).users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, nil
}

func (memUsers) Update(ctx context.Context, q base.DBTX, user *model.User) error {
	st := stateOf(q)
	if _, ok := st.users[user.ID]; !ok {
		return errors.New("user not found")
	}
	st.users[user.ID] = *user
	return nil
}

// memSlots реализация SlotRepository поверх memState
type memSlots struct{}

func copySlot(s model.Slot) *model.Slot {
	if s.PendingRequestID != nil {
		ref := *s.PendingRequestID
		s.PendingRequestID = &ref
	}
	return &s
}

func (memSlots) Create(ctx context.Context, q base.DBTX, slot *model.Slot) error {
	st := stateOf(q)
	slot.ID = st.id()
	slot.CreatedAt = st.tick()
	slot.UpdatedAt = slot.CreatedAt
	st.slots[slot.ID] = *copySlot(*slot)
	return nil
}

func (memSlots) GetByID(ctx context.Context, q base.DBTX, id int64) (*model.Slot, error) {
	s, ok := stateOf(q).slots[id]
	if !ok {
		return nil, nil
	}
	return copySlot(s), nil
}

func (memSlots) LockByIDs(ctx context.Context, q base.DBTX, ids []int64) ([]*model.Slot, error) {
	if dbOf(q).takeLockFault() {
		return nil, &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	}

	st := stateOf(q)
	var out []*model.Slot
	for _, id := range ids {
		if s, ok := st.slots[id]; ok {
			out = append(out, copySlot(s))
		}
	}
	slices.SortFunc(out, func(a, b *model.Slot) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (memSlots) Update(ctx context.Context, q base.DBTX, slot *model.Slot) error {
	st := stateOf(q)
	if _, ok := st.slots[slot.ID]; !ok {
		return errors.New("slot not found")
	}
	// Те же ограничения, что и CHECK в схеме
	if (slot.Status == model.SlotStatusExchangePending) != (slot.PendingRequestID != nil) {
		return &pgconn.PgError{Code: "23514", Message: "slots_pending_ref"}
	}
	slot.UpdatedAt = st.tick()
	st.slots[slot.ID] = *copySlot(*slot)

	if err := dbOf(q).takeWriteFault(); err != nil {
		return err
	}
	return nil
}

func (memSlots) Delete(ctx context.Context, q base.DBTX, id int64) error {
	st := stateOf(q)
	if _, ok := st.slots[id]; !ok {
		return errors.New("slot not found")
	}
	delete(st.slots, id)
	return nil
}

func (memSlots) ListByOwner(ctx context.Context, q base.DBTX, ownerID int64) ([]*model.Slot, error) {
	var out []*model.Slot
	for _, s := range stateOf(q).slots {
		if s.OwnerID == ownerID {
			out = append(out, copySlot(s))
		}
	}
	slices.SortFunc(out, func(a, b *model.Slot) int {
		return cmp.Or(a.StartTime.Compare(b.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (memSlots) ListExchangeable(ctx context.Context, q base.DBTX, excludeUserID int64) ([]*model.MarketSlot, error) {
	st := stateOf(q)
	var out []*model.MarketSlot
	for _, s := range st.slots {
		if s.Status != model.SlotStatusExchangeable || s.OwnerID == excludeUserID {
			continue
		}
		owner := st.users[s.OwnerID]
		out = append(out, &model.MarketSlot{Slot: *copySlot(s), OwnerName: owner.DisplayName()})
	}
	slices.SortFunc(out, func(a, b *model.MarketSlot) int {
		return cmp.Or(a.StartTime.Compare(b.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// memExchanges реализация ExchangeRepository поверх memState
type memExchanges struct{}

func (memExchanges) Create(ctx context.Context, q base.DBTX, req *model.ExchangeRequest) error {
	st := stateOf(q)
	req.ID = st.id()
	req.CreatedAt = st.tick()
	st.requests[req.ID] = *req
	return nil
}

func (memExchanges) GetByID(ctx context.Context, q base.DBTX, id int64) (*model.ExchangeRequest, error) {
	r, ok := stateOf(q).requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (memExchanges) LockByIDs(ctx context.Context, q base.DBTX, ids []int64) ([]*model.ExchangeRequest, error) {
	st := stateOf(q)
	var out []*model.ExchangeRequest
	for _, id := range ids {
		if r, ok := st.requests[id]; ok {
			out = append(out, &r)
		}
	}
	slices.SortFunc(out, func(a, b *model.ExchangeRequest) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (memExchanges) UpdateStatus(ctx context.Context, q base.DBTX, req *model.ExchangeRequest, status model.ExchangeStatus) error {
	st := stateOf(q)
	stored, ok := st.requests[req.ID]
	if !ok || stored.Status != model.ExchangeStatusPending {
		return errors.New("exchange request is not pending")
	}
	now := st.tick()
	stored.Status = status
	stored.RespondedAt = &now
	st.requests[req.ID] = stored

	req.Status = status
	req.RespondedAt = &now
	return nil
}

func (memExchanges) ListPendingBySlots(ctx context.Context, q base.DBTX, slotIDs []int64) ([]*model.ExchangeRequest, error) {
	var out []*model.ExchangeRequest
	for _, r := range stateOf(q).requests {
		if r.Status != model.ExchangeStatusPending {
			continue
		}
		if slices.Contains(slotIDs, r.RequesterSlotID) || slices.Contains(slotIDs, r.RecipientSlotID) {
			out = append(out, &r)
		}
	}
	slices.SortFunc(out, func(a, b *model.ExchangeRequest) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (memExchanges) view(st *memState, r model.ExchangeRequest) *model.ExchangeRequestView {
	requester := st.users[r.RequesterUserID]
	recipient := st.users[r.RecipientUserID]
	v := &model.ExchangeRequestView{
		ExchangeRequest: r,
		RequesterName:   requester.DisplayName(),
		RecipientName:   recipient.DisplayName(),
		RequesterSlot:   model.SlotSummary{ID: r.RequesterSlotID},
		RecipientSlot:   model.SlotSummary{ID: r.RecipientSlotID},
	}
	if s, ok := st.slots[r.RequesterSlotID]; ok {
		v.RequesterSlot.Title, v.RequesterSlot.StartTime, v.RequesterSlot.EndTime = s.Title, &s.StartTime, &s.EndTime
	}
	if s, ok := st.slots[r.RecipientSlotID]; ok {
		v.RecipientSlot.Title, v.RecipientSlot.StartTime, v.RecipientSlot.EndTime = s.Title, &s.StartTime, &s.EndTime
	}
	return v
}

func sortViews(views []*model.ExchangeRequestView) {
	slices.SortFunc(views, func(a, b *model.ExchangeRequestView) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
}

func (m memExchanges) ListIncoming(ctx context.Context, q base.DBTX, userID int64) ([]*model.ExchangeRequestView, error) {
	st := stateOf(q)
	var out []*model.ExchangeRequestView
	for _, r := range st.requests {
		slot, ok := st.slots[r.RecipientSlotID]
		if r.Status == model.ExchangeStatusPending && ok && slot.OwnerID == userID {
			out = append(out, m.view(st, r))
		}
	}
	sortViews(out)
	return out, nil
}

func (m memExchanges) ListOutgoing(ctx context.Context, q base.DBTX, userID int64) ([]*model.ExchangeRequestView, error) {
	st := stateOf(q)
	var out []*model.ExchangeRequestView
	for _, r := range st.requests {
		if r.RequesterUserID == userID {
			out = append(out, m.view(st, r))
		}
	}
	sortViews(out)
	return out, nil
}

// memAudit проверяет те же инварианты, что и SQL-оракулы
type memAudit struct{}

func (memAudit) Run(ctx context.Context, q base.DBTX) ([]model.AuditViolation, error) {
	return checkInvariants(stateOf(q)), nil
}

func checkInvariants(st *memState) []model.AuditViolation {
	refs := make(map[int64][]int64) // slot -> pending requests
	for _, r := range st.requests {
		if r.Status == model.ExchangeStatusPending {
			refs[r.RequesterSlotID] = append(refs[r.RequesterSlotID], r.ID)
			refs[r.RecipientSlotID] = append(refs[r.RecipientSlotID], r.ID)
		}
	}

	var violations []model.AuditViolation
	add := func(name string, id int64) {
		for i := range violations {
			if violations[i].Oracle == name {
				violations[i].IDs = append(violations[i].IDs, id)
				return
			}
		}
		violations = append(violations, model.AuditViolation{Oracle: name, IDs: []int64{id}})
	}

	for id, s := range st.slots {
		pending := s.Status == model.SlotStatusExchangePending
		switch {
		case pending && len(refs[id]) != 1:
			add("pending_slot_without_request", id)
		case !pending && len(refs[id]) > 0:
			add("pending_request_slot_not_locked", id)
		case pending && (s.PendingRequestID == nil || *s.PendingRequestID != refs[id][0]):
			add("pending_request_slot_not_locked", id)
		}
	}
	for id, r := range refs {
		if len(r) > 1 {
			add("slot_in_two_pending_requests", id)
		}
	}
	for _, r := range st.requests {
		if r.RequesterUserID == r.RecipientUserID || r.RequesterSlotID == r.RecipientSlotID {
			add("request_same_owner", r.ID)
		}
	}
	return violations
}

// recordingNotifier собирает доставленные события
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.ExchangeEvent
	err    error
}

func (n *recordingNotifier) NotifyExchange(ctx context.Context, ev model.ExchangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) types() []model.ExchangeEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.ExchangeEventType, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

// fixture собирает сервисы поверх memDB
type fixture struct {
	db       *memDB
	users    *UserService
	slots    *SlotService
	exchange *ExchangeService
	notifier *recordingNotifier
}

func newFixture() *fixture {
	db := newMemDB()
	logger := zap.NewNop()
	runner := NewTxRunner(db, TxConfig{MaxRetries: 3, RetryBase: time.Millisecond, LockTimeout: time.Second}, logger)

	f := &fixture{
		db:       db,
		users:    NewUserService(runner, memUsers{}, logger),
		slots:    NewSlotService(runner, memSlots{}, memUsers{}, logger),
		exchange: NewExchangeService(runner, memSlots{}, memExchanges{}, memAudit{}, logger),
		notifier: &recordingNotifier{},
	}
	f.exchange.SetNotifier(f.notifier)
	return f
}
