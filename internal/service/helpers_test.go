package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/stretchr/testify/require"
)

var telegramSeq atomic.Int64

var day = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func (f *fixture) newUser(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := f.users.RegisterUser(context.Background(), telegramSeq.Add(1), name, name, "")
	require.NoError(t, err)
	return u
}

func (f *fixture) newSlot(t *testing.T, owner *model.User, title string, hour int, status model.SlotStatus) *model.Slot {
	t.Helper()
	start := day.Add(time.Duration(hour) * time.Hour)
	slot, err := f.slots.CreateSlot(context.Background(), CreateSlotParams{
		OwnerID:   owner.ID,
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    status,
	})
	require.NoError(t, err)
	return slot
}

// slotNow возвращает копию слота из последнего закоммиченного состояния
func (f *fixture) slotNow(t *testing.T, id int64) *model.Slot {
	t.Helper()
	s, ok := f.db.snapshot().slots[id]
	require.True(t, ok, "slot %d must exist", id)
	return &s
}

func (f *fixture) requestNow(t *testing.T, id int64) *model.ExchangeRequest {
	t.Helper()
	r, ok := f.db.snapshot().requests[id]
	require.True(t, ok, "request %d must exist", id)
	return &r
}

func (f *fixture) requireInvariants(t *testing.T) {
	t.Helper()
	require.Empty(t, checkInvariants(f.db.snapshot()))
}
