// README: In-memory call store with a per-call guard; used by tests and single-node deployments.
package call

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"dispatch/internal/types"
)

var errDuplicateID = errors.New("call id already exists")

// MemoryStore keeps each call behind its own mutex. The status, driver and
// client indices are lock-free sets; a record is stored before it is indexed,
// and every index read re-checks the record under its mutex, so a reader never
// sees an indexed call that is missing or no longer matches.
type MemoryStore struct {
	calls    sync.Map // types.ID -> *entry
	byStatus sync.Map // Status -> *idSet
	byDriver sync.Map // types.ID -> *idSet
	byClient sync.Map // types.ID -> *idSet

	events   sync.Map // types.ID -> *eventLog
	eventSeq atomic.Int64
}

type entry struct {
	mu   sync.Mutex
	call *Call
}

func (e *entry) snapshot() *Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.call.clone()
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

type idSet struct {
	m sync.Map
}

func (s *idSet) add(id types.ID)    { s.m.Store(id, struct{}{}) }
func (s *idSet) remove(id types.ID) { s.m.Delete(id) }

func (s *idSet) ids() []types.ID {
	var out []types.ID
	s.m.Range(func(k, _ any) bool {
		out = append(out, k.(types.ID))
		return true
	})
	return out
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func setFor[K comparable](m *sync.Map, key K) *idSet {
	v, _ := m.LoadOrStore(key, &idSet{})
	return v.(*idSet)
}

func (s *MemoryStore) Create(_ context.Context, c *Call) error {
	e := &entry{call: c.clone()}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, loaded := s.calls.LoadOrStore(c.ID, e); loaded {
		return errDuplicateID
	}
	setFor(&s.byStatus, c.Status).add(c.ID)
	setFor(&s.byClient, c.ClientID).add(c.ID)
	if c.DriverID != nil {
		setFor(&s.byDriver, *c.DriverID).add(c.ID)
	}
	return nil
}

func (s *MemoryStore) load(id types.ID) (*entry, error) {
	v, ok := s.calls.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	return v.(*entry), nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Call, error) {
	e, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

// collect resolves ids to snapshots that satisfy keep.
func (s *MemoryStore) collect(ids []types.ID, keep func(*Call) bool) []*Call {
	out := make([]*Call, 0, len(ids))
	for _, id := range ids {
		e, err := s.load(id)
		if err != nil {
			continue
		}
		c := e.snapshot()
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *MemoryStore) ListByStatus(_ context.Context, status Status) ([]*Call, error) {
	out := s.collect(setFor(&s.byStatus, status).ids(), func(c *Call) bool { return c.Status == status })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListActiveByDriver(_ context.Context, driverID types.ID) ([]*Call, error) {
	out := s.collect(setFor(&s.byDriver, driverID).ids(), func(c *Call) bool {
		return c.Active() && c.DriverID != nil && *c.DriverID == driverID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AcceptedAt.After(*out[j].AcceptedAt) })
	return out, nil
}

func (s *MemoryStore) ListByClient(_ context.Context, clientID types.ID) ([]*Call, error) {
	out := s.collect(setFor(&s.byClient, clientID).ids(), func(c *Call) bool { return c.ClientID == clientID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, c *Call, from Status) (bool, error) {
	e, err := s.load(c.ID)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.call
	if old.Status != from {
		return false, nil
	}
	next := c.clone()
	next.VehiclePosition = old.VehiclePosition
	e.call = next

	// Add to the new index before leaving the old one so the call is never
	// absent from both.
	if next.Status != old.Status {
		setFor(&s.byStatus, next.Status).add(next.ID)
		setFor(&s.byStatus, old.Status).remove(next.ID)
	}
	if old.DriverID == nil && next.DriverID != nil {
		setFor(&s.byDriver, *next.DriverID).add(next.ID)
	}
	return true, nil
}

func (s *MemoryStore) UpdatePosition(_ context.Context, id types.ID, pos types.Point) (*Call, error) {
	e, err := s.load(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.call.clone()
	next.VehiclePosition = &pos
	e.call = next
	return next.clone(), nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, ev *Event) error {
	v, _ := s.events.LoadOrStore(ev.CallID, &eventLog{})
	log := v.(*eventLog)
	log.mu.Lock()
	defer log.mu.Unlock()
	ev.ID = s.eventSeq.Add(1)
	log.events = append(log.events, *ev)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, callID types.ID) ([]Event, error) {
	v, ok := s.events.Load(callID)
	if !ok {
		return nil, nil
	}
	log := v.(*eventLog)
	log.mu.Lock()
	defer log.mu.Unlock()
	out := make([]Event, len(log.events))
	copy(out, log.events)
	return out, nil
}
