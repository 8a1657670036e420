// README: Store contract tests shared by the in-memory and PostgreSQL stores.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dispatch/internal/types"
)

var storeEpoch = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newStoredCall(t *testing.T, s Store, id, clientID types.ID, offset time.Duration) *Call {
	t.Helper()
	c := &Call{
		ID:             id,
		ClientID:       clientID,
		Status:         StatusPending,
		ClientPosition: types.Point{Lat: 10, Lng: 20},
		Priority:       "alta",
		Description:    "store test",
		CreatedAt:      storeEpoch.Add(offset),
	}
	if err := s.Create(context.Background(), c); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	return c
}

func accepted(c *Call, driverID types.ID, at time.Time) *Call {
	next := c.clone()
	next.Status = StatusAccepted
	next.DriverID = &driverID
	next.AcceptedAt = &at
	return next
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if _, err := s.UpdatePosition(context.Background(), "missing", types.Point{}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found on position update, got %v", err)
		}
	})

	t.Run("CreateGet", func(t *testing.T) {
		s := newStore(t)
		c := newStoredCall(t, s, "call-1", "client-1", 0)
		got, err := s.Get(context.Background(), c.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ClientID != c.ClientID || got.Status != StatusPending || got.Priority != "alta" {
			t.Fatalf("unexpected call %+v", got)
		}
		if !got.CreatedAt.Equal(c.CreatedAt) {
			t.Fatalf("created_at %s, want %s", got.CreatedAt, c.CreatedAt)
		}
		if got.DriverID != nil || got.VehiclePosition != nil || got.AcceptedAt != nil {
			t.Fatalf("new call should not carry driver, position or acceptance: %+v", got)
		}
	})

	t.Run("UpdateIsCompareAndSwap", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := newStoredCall(t, s, "call-cas", "client-1", 0)

		ok, err := s.Update(ctx, accepted(c, "d1", storeEpoch.Add(time.Minute)), StatusPending)
		if err != nil || !ok {
			t.Fatalf("first update: ok=%v err=%v", ok, err)
		}
		ok, err = s.Update(ctx, accepted(c, "d2", storeEpoch.Add(2*time.Minute)), StatusPending)
		if err != nil {
			t.Fatalf("second update: %v", err)
		}
		if ok {
			t.Fatalf("stale update must not apply")
		}
		got, _ := s.Get(ctx, c.ID)
		if got.DriverID == nil || *got.DriverID != "d1" {
			t.Fatalf("expected driver d1, got %v", got.DriverID)
		}
	})

	t.Run("UpdateKeepsVehiclePosition", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := newStoredCall(t, s, "call-pos", "client-1", 0)

		pos := types.Point{Lat: 1.5, Lng: 2.5}
		afterPos, err := s.UpdatePosition(ctx, c.ID, pos)
		if err != nil {
			t.Fatalf("update position: %v", err)
		}
		if afterPos.Status != StatusPending || afterPos.VehiclePosition == nil || *afterPos.VehiclePosition != pos {
			t.Fatalf("unexpected call after position update: %+v", afterPos)
		}
		// c was read before the position update; writing it back must not erase the position
		if ok, err := s.Update(ctx, accepted(c, "d1", storeEpoch.Add(time.Minute)), StatusPending); err != nil || !ok {
			t.Fatalf("update: ok=%v err=%v", ok, err)
		}
		got, _ := s.Get(ctx, c.ID)
		if got.VehiclePosition == nil || *got.VehiclePosition != pos {
			t.Fatalf("transition clobbered vehicle position: %v", got.VehiclePosition)
		}
	})

	t.Run("Indices", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a := newStoredCall(t, s, "call-a", "client-1", 1*time.Second)
		b := newStoredCall(t, s, "call-b", "client-1", 2*time.Second)
		c := newStoredCall(t, s, "call-c", "client-2", 3*time.Second)

		if ok, err := s.Update(ctx, accepted(b, "d1", storeEpoch.Add(time.Minute)), StatusPending); err != nil || !ok {
			t.Fatalf("accept b: ok=%v err=%v", ok, err)
		}

		pending, err := s.ListByStatus(ctx, StatusPending)
		if err != nil {
			t.Fatalf("list pending: %v", err)
		}
		if len(pending) != 2 || pending[0].ID != a.ID || pending[1].ID != c.ID {
			t.Fatalf("expected [call-a call-c], got %v", ids(pending))
		}

		acceptedCalls, err := s.ListByStatus(ctx, StatusAccepted)
		if err != nil || len(acceptedCalls) != 1 || acceptedCalls[0].ID != b.ID {
			t.Fatalf("expected [call-b] accepted, got %v (%v)", ids(acceptedCalls), err)
		}

		active, err := s.ListActiveByDriver(ctx, "d1")
		if err != nil || len(active) != 1 || active[0].ID != b.ID {
			t.Fatalf("expected [call-b] active for d1, got %v (%v)", ids(active), err)
		}

		history, err := s.ListByClient(ctx, "client-1")
		if err != nil || len(history) != 2 || history[0].ID != b.ID || history[1].ID != a.ID {
			t.Fatalf("expected [call-b call-a] for client-1, got %v (%v)", ids(history), err)
		}

		done := accepted(b, "d1", storeEpoch.Add(time.Minute))
		done.Status = StatusEnRoute
		if ok, err := s.Update(ctx, done, StatusAccepted); err != nil || !ok {
			t.Fatalf("en_route b: ok=%v err=%v", ok, err)
		}
		finished := done.clone()
		finished.Status = StatusCompleted
		at := storeEpoch.Add(time.Hour)
		finished.CompletedAt = &at
		if ok, err := s.Update(ctx, finished, StatusEnRoute); err != nil || !ok {
			t.Fatalf("complete b: ok=%v err=%v", ok, err)
		}
		if active, _ := s.ListActiveByDriver(ctx, "d1"); len(active) != 0 {
			t.Fatalf("completed call still active: %v", ids(active))
		}
		if left, _ := s.ListByStatus(ctx, StatusAccepted); len(left) != 0 {
			t.Fatalf("completed call still listed as accepted: %v", ids(left))
		}
	})

	t.Run("Events", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := newStoredCall(t, s, "call-ev", "client-1", 0)
		actor := types.ID("d1")
		for i, step := range [][2]Status{{StatusNone, StatusPending}, {StatusPending, StatusAccepted}} {
			ev := &Event{CallID: c.ID, FromStatus: step[0], ToStatus: step[1], ActorType: ActorDriver, ActorID: &actor, CreatedAt: storeEpoch.Add(time.Duration(i) * time.Second)}
			if err := s.AppendEvent(ctx, ev); err != nil {
				t.Fatalf("append event: %v", err)
			}
			if ev.ID == 0 {
				t.Fatalf("expected event id to be assigned")
			}
		}
		events, err := s.ListEvents(ctx, c.ID)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(events) != 2 || events[0].ToStatus != StatusPending || events[1].ToStatus != StatusAccepted {
			t.Fatalf("unexpected events %+v", events)
		}
		if events[0].ID >= events[1].ID {
			t.Fatalf("event ids must increase: %d, %d", events[0].ID, events[1].ID)
		}
	})

	t.Run("ConcurrentCompareAndSwap", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		c := newStoredCall(t, s, "call-race", "client-1", 0)

		const writers = 12
		var wg sync.WaitGroup
		start := make(chan struct{})
		wins := make(chan types.ID, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(did types.ID) {
				defer wg.Done()
				<-start
				ok, err := s.Update(ctx, accepted(c, did, storeEpoch.Add(time.Minute)), StatusPending)
				if err != nil {
					t.Errorf("update: %v", err)
					return
				}
				if ok {
					wins <- did
				}
			}(types.ID(fmt.Sprintf("d%d", i)))
		}
		close(start)
		wg.Wait()
		close(wins)

		var winners []types.ID
		for w := range wins {
			winners = append(winners, w)
		}
		if len(winners) != 1 {
			t.Fatalf("expected exactly one winning update, got %v", winners)
		}
		got, _ := s.Get(ctx, c.ID)
		if *got.DriverID != winners[0] {
			t.Fatalf("stored driver %s, winner %s", *got.DriverID, winners[0])
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreDuplicateID(t *testing.T) {
	s := NewMemoryStore()
	newStoredCall(t, s, "dup", "client-1", 0)
	if err := s.Create(context.Background(), &Call{ID: "dup", ClientID: "client-2", Status: StatusPending}); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
	got, _ := s.Get(context.Background(), "dup")
	if got.ClientID != "client-1" {
		t.Fatalf("duplicate create overwrote the record")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	c := newStoredCall(t, s, "copy", "client-1", 0)
	c.Status = StatusCompleted

	got, _ := s.Get(context.Background(), "copy")
	if got.Status != StatusPending {
		t.Fatalf("caller mutation leaked into the store")
	}
	got.Priority = "baixa"
	again, _ := s.Get(context.Background(), "copy")
	if again.Priority != "alta" {
		t.Fatalf("snapshot mutation leaked into the store")
	}
}

// Readers racing a status change must only ever see the call under its current status.
func TestMemoryStoreIndexReadsDuringTransition(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const calls = 64
	stored := make([]*Call, calls)
	for i := 0; i < calls; i++ {
		stored[i] = newStoredCall(t, s, types.ID(fmt.Sprintf("idx-%d", i)), "client-1", time.Duration(i)*time.Second)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, status := range []Status{StatusPending, StatusAccepted} {
					list, err := s.ListByStatus(ctx, status)
					if err != nil {
						t.Errorf("list: %v", err)
						return
					}
					for _, c := range list {
						if c.Status != status {
							t.Errorf("listed %s under %s", c.Status, status)
							return
						}
					}
				}
			}
		}()
	}

	for i, c := range stored {
		if ok, err := s.Update(ctx, accepted(c, types.ID(fmt.Sprintf("d%d", i)), storeEpoch.Add(time.Minute)), StatusPending); err != nil || !ok {
			t.Fatalf("accept %s: ok=%v err=%v", c.ID, ok, err)
		}
	}
	close(stop)
	wg.Wait()

	got, _ := s.ListByStatus(ctx, StatusAccepted)
	if len(got) != calls {
		t.Fatalf("expected %d accepted calls, got %d", calls, len(got))
	}
}
