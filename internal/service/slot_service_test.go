package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.newUser(t, "alice")
	start := day.Add(9 * time.Hour)

	slot, err := f.slots.CreateSlot(ctx, CreateSlotParams{
		OwnerID:   alice.ID,
		Title:     "  Lecture  ",
		StartTime: start,
		EndTime:   start.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lecture", slot.Title)
	assert.Equal(t, model.SlotStatusBusy, slot.Status)
	assert.Nil(t, slot.PendingRequestID)
	assert.NotZero(t, slot.ID)

	tests := []struct {
		name   string
		params CreateSlotParams
		want   error
	}{
		{
			name:   "missing owner",
			params: CreateSlotParams{Title: "x", StartTime: start, EndTime: start.Add(time.Hour)},
			want:   model.ErrValidation,
		},
		{
			name:   "unknown owner",
			params: CreateSlotParams{OwnerID: 9999, Title: "x", StartTime: start, EndTime: start.Add(time.Hour)},
			want:   model.ErrValidation,
		},
		{
			name:   "empty title",
			params: CreateSlotParams{OwnerID: alice.ID, Title: "   ", StartTime: start, EndTime: start.Add(time.Hour)},
			want:   model.ErrValidation,
		},
		{
			name:   "title too long",
			params: CreateSlotParams{OwnerID: alice.ID, Title: strings.Repeat("я", model.MaxSlotTitleLength+1), StartTime: start, EndTime: start.Add(time.Hour)},
			want:   model.ErrValidation,
		},
		{
			name:   "end before start",
			params: CreateSlotParams{OwnerID: alice.ID, Title: "x", StartTime: start, EndTime: start.Add(-time.Hour)},
			want:   model.ErrValidation,
		},
		{
			name:   "zero length",
			params: CreateSlotParams{OwnerID: alice.ID, Title: "x", StartTime: start, EndTime: start},
			want:   model.ErrValidation,
		},
		{
			name:   "pending status",
			params: CreateSlotParams{OwnerID: alice.ID, Title: "x", StartTime: start, EndTime: start.Add(time.Hour), Status: model.SlotStatusExchangePending},
			want:   model.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.slots.CreateSlot(ctx, tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	mine, err := f.slots.ListMySlots(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestUpdateSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.newUser(t, "alice")
	bob := f.newUser(t, "bob")
	slot := f.newSlot(t, alice, "Old", 9, model.SlotStatusBusy)

	title := "New"
	end := slot.EndTime.Add(30 * time.Minute)
	updated, err := f.slots.UpdateSlot(ctx, slot.ID, alice.ID, SlotUpdate{Title: &title, EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, end, updated.EndTime)
	assert.Equal(t, slot.StartTime, updated.StartTime)

	_, err = f.slots.UpdateSlot(ctx, slot.ID, bob.ID, SlotUpdate{Title: &title})
	assert.ErrorIs(t, err, model.ErrAuthorization)

	_, err = f.slots.UpdateSlot(ctx, 9999, alice.ID, SlotUpdate{Title: &title})
	assert.ErrorIs(t, err, model.ErrNotFound)

	badEnd := slot.StartTime.Add(-time.Minute)
	_, err = f.slots.UpdateSlot(ctx, slot.ID, alice.ID, SlotUpdate{EndTime: &badEnd})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, end, f.slotNow(t, slot.ID).EndTime)
}

func TestPendingSlotIsFrozen(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.newUser(t, "alice")
	bob := f.newUser(t, "bob")
	s1 := f.newSlot(t, alice, "S1", 9, model.SlotStatusExchangeable)
	s2 := f.newSlot(t, bob, "S2", 14, model.SlotStatusExchangeable)

	_, err := f.exchange.ProposeExchange(ctx, s1.ID, s2.ID, alice.ID)
	require.NoError(t, err)
	before := f.db.snapshot()

	title := "Renamed"
	_, err = f.slots.UpdateSlot(ctx, s1.ID, alice.ID, SlotUpdate{Title: &title})
	assert.ErrorIs(t, err, model.ErrConflict)

	err = f.slots.DeleteSlot(ctx, s2.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrConflict)

	for _, exchangeable := range []bool{true, false} {
		_, err = f.slots.SetExchangeable(ctx, s1.ID, alice.ID, exchangeable)
		assert.ErrorIs(t, err, model.ErrConflict)
	}

	assert.Equal(t, before.slots, f.db.snapshot().slots)
	f.requireInvariants(t)
}

func TestDeleteSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.newUser(t, "alice")
	bob := f.newUser(t, "bob")
	slot := f.newSlot(t, alice, "S1", 9, model.SlotStatusBusy)

	err := f.slots.DeleteSlot(ctx, slot.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrAuthorization)

	require.NoError(t, f.slots.DeleteSlot(ctx, slot.ID, alice.ID))

	_, err = f.slots.GetSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = f.slots.DeleteSlot(ctx, slot.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteSlotKeepsRequestHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.newUser(t, "alice")
	bob := f.newUser(t, "bob")
	s1 := f.newSlot(t, alice, "S1", 9, model.SlotStatusExchangeable)
	s2 := f.newSlot(t, bob, "S2", 14, model.SlotStatusExchangeable)

	req, err := f.exchange.ProposeExchange(ctx, s1.ID, s2.ID, alice.ID)
	require.NoError(t, err)
	_, err = f.exchange.RespondToExchange(ctx, req.ID, bob.ID, false)
	require.NoError(t, err)

	require.NoError(t, f.slots.DeleteSlot(ctx, s1.ID, alice.ID))

	outgoing, err := f.exchange.ListOutgoing(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, model.ExchangeStatusRejected, outgoing[0].Status)
	assert.Empty(t, outgoing[0].RequesterSlot.Title)
	assert.Nil(t, outgoing[0].RequesterSlot.StartTime)
	assert.Equal(t, "S2", outgoing[0].RecipientSlot.Title)
}

func TestSetExchangeableAndMarketplace(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.newUser(t, "alice")
	bob := f.newUser(t, "bob")
	a1 := f.newSlot(t, alice, "A1", 9, model.SlotStatusBusy)
	b1 := f.newSlot(t, bob, "B1", 10, model.SlotStatusBusy)
	b2 := f.newSlot(t, bob, "B2", 8, model.SlotStatusExchangeable)

	market, err := f.slots.ListExchangeableSlots(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, market, 1)
	assert.Equal(t, b2.ID, market[0].ID)
	assert.Equal(t, "bob", market[0].OwnerName)

	updated, err := f.slots.SetExchangeable(ctx, b1.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusExchangeable, updated.Status)

	// Повторное включение ничего не меняет
	again, err := f.slots.SetExchangeable(ctx, b1.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusExchangeable, again.Status)

	_, err = f.slots.SetExchangeable(ctx, a1.ID, bob.ID, true)
	assert.ErrorIs(t, err, model.ErrAuthorization)

	market, err = f.slots.ListExchangeableSlots(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, market, 2)
	assert.Equal(t, b2.ID, market[0].ID, "sorted by start time")
	assert.Equal(t, b1.ID, market[1].ID)

	own, err := f.slots.ListExchangeableSlots(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, own)

	_, err = f.slots.SetExchangeable(ctx, b2.ID, bob.ID, false)
	require.NoError(t, err)
	_, err = f.exchange.ProposeExchange(ctx, a1.ID, b2.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrSlotNotAvailable)
}

func TestMarketplaceHidesPendingSlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.newUser(t, "alice")
	bob := f.newUser(t, "bob")
	carol := f.newUser(t, "carol")
	s1 := f.newSlot(t, alice, "S1", 9, model.SlotStatusExchangeable)
	s2 := f.newSlot(t, bob, "S2", 14, model.SlotStatusExchangeable)

	_, err := f.exchange.ProposeExchange(ctx, s1.ID, s2.ID, alice.ID)
	require.NoError(t, err)

	market, err := f.slots.ListExchangeableSlots(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, market)
}

func TestRegisterUserUpdatesProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	first, err := f.users.RegisterUser(ctx, 555, "old", "Ivan", "")
	require.NoError(t, err)

	second, err := f.users.RegisterUser(ctx, 555, "new", "Ivan", "Petrov")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := f.users.GetByTelegramID(ctx, 555)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Username)
	assert.Equal(t, "Ivan Petrov", got.DisplayName())
}
