package service

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/stretchr/testify/require"
)

// TestRandomOperationsKeepInvariants гоняет случайные последовательности операций
// и после каждой проверяет согласованность слотов и заявок
func TestRandomOperationsKeepInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping random operations in short mode")
	}

	for seed := uint64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			runRandomOperations(t, seed, 150)
		})
	}
}

func runRandomOperations(t *testing.T, seed uint64, steps int) {
	ctx := context.Background()
	f := newFixture()
	rnd := rand.New(rand.NewPCG(seed, seed*7919))

	users := make([]*model.User, 4)
	for i := range users {
		users[i] = f.newUser(t, fmt.Sprintf("user%d", i))
	}
	for i := range 8 {
		f.newSlot(t, users[i%len(users)], fmt.Sprintf("slot%d", i), 8+i, model.SlotStatusExchangeable)
	}

	pick := func(ids []int64) int64 {
		if len(ids) == 0 {
			return 0
		}
		return ids[rnd.IntN(len(ids))]
	}

	for step := range steps {
		st := f.db.snapshot()
		slotIDs := slices.Sorted(maps.Keys(st.slots))
		var pending []int64
		for id, r := range st.requests {
			if r.Status == model.ExchangeStatusPending {
				pending = append(pending, id)
			}
		}
		slices.Sort(pending)
		caller := users[rnd.IntN(len(users))]

		var (
			desc string
			err  error
		)
		switch rnd.IntN(6) {
		case 0:
			desc = "create"
			_, err = f.slots.CreateSlot(ctx, CreateSlotParams{
				OwnerID:   caller.ID,
				Title:     "extra",
				StartTime: day,
				EndTime:   day.Add(30 * time.Minute),
				Status:    model.SlotStatusExchangeable,
			})
		case 1:
			id := pick(slotIDs)
			desc = fmt.Sprintf("toggle %d", id)
			// Ход от имени владельца, чтобы чаще доходить до проверки статуса
			if s, ok := st.slots[id]; ok {
				_, err = f.slots.SetExchangeable(ctx, id, s.OwnerID, rnd.IntN(2) == 0)
			}
		case 2, 3:
			from, to := pick(slotIDs), pick(slotIDs)
			desc = fmt.Sprintf("propose %d -> %d", from, to)
			owner := caller.ID
			if s, ok := st.slots[from]; ok && rnd.IntN(4) > 0 {
				owner = s.OwnerID
			}
			_, err = f.exchange.ProposeExchange(ctx, from, to, owner)
		case 4:
			id := pick(pending)
			desc = fmt.Sprintf("respond %d", id)
			responder := caller.ID
			if r, ok := st.requests[id]; ok && rnd.IntN(4) > 0 {
				responder = r.RecipientUserID
			}
			_, err = f.exchange.RespondToExchange(ctx, id, responder, rnd.IntN(2) == 0)
		case 5:
			id := pick(slotIDs)
			desc = fmt.Sprintf("delete %d", id)
			if s, ok := st.slots[id]; ok {
				err = f.slots.DeleteSlot(ctx, id, s.OwnerID)
			}
		}

		if err != nil {
			require.NotEmpty(t, model.KindOf(err), "step %d %s: unexpected error %v", step, desc, err)
			after := f.db.snapshot()
			require.Equal(t, st.slots, after.slots, "step %d %s: failed operation changed slots", step, desc)
			require.Equal(t, st.requests, after.requests, "step %d %s: failed operation changed requests", step, desc)
		}

		violations := checkInvariants(f.db.snapshot())
		require.Empty(t, violations, "step %d %s", step, desc)
	}
}
