package conversations

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-sales/core/scheduling"
)

// Store keeps the state of every active call in memory. All operations are
// atomic per call identifier and calls never wait on each other beyond the
// map lookup.
type Store struct {
	mu    sync.RWMutex
	calls map[string]*call

	// Turn locks live apart from the state so that clearing a call inside a
	// turn does not hand the call ID to a second, unlocked entry.
	locksMu sync.Mutex
	locks   map[string]*turnLock

	now func() time.Time
}

type call struct {
	mu    sync.RWMutex
	state CallState
}

type turnLock struct {
	mu      sync.Mutex
	holders int
}

type StoreOption func(*Store)

// WithClock overrides the clock used to stamp new calls.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		calls: make(map[string]*call),
		locks: make(map[string]*turnLock),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lookup(callID string) (*call, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.calls[callID]
	return c, ok
}

func (s *Store) entry(callID string) *call {
	if c, ok := s.lookup(callID); ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.calls[callID]; ok {
		return c
	}
	c := &call{state: CallState{
		CallID:    callID,
		History:   []Entry{},
		Phase:     PhaseGreeting,
		StartedAt: s.now(),
	}}
	s.calls[callID] = c
	return c
}

func (s *Store) update(callID string, fn func(*CallState)) {
	c := s.entry(callID)
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// Get returns a snapshot of the call's state, creating a fresh state in
// [PhaseGreeting] if the call is not known yet. The snapshot can be freely
// modified without affecting the store.
func (s *Store) Get(callID string) CallState {
	c := s.entry(callID)
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state.clone()
}

// Lock serializes whole turns for a single call. The returned function
// releases the lock. Other calls are not affected.
func (s *Store) Lock(callID string) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[callID]
	if !ok {
		l = &turnLock{}
		s.locks[callID] = l
	}
	l.holders++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		defer s.locksMu.Unlock()
		if l.holders--; l.holders == 0 {
			delete(s.locks, callID)
		}
	}
}

func (s *Store) SetLead(callID, leadID string) {
	s.update(callID, func(state *CallState) {
		state.LeadID = leadID
	})
}

// AppendTurn records a user utterance and the raw generated reply.
func (s *Store) AppendTurn(callID, userUtterance, aiUtterance string) {
	s.update(callID, func(state *CallState) {
		state.History = append(state.History, Entry{
			ID:            uuid.NewString(),
			UserUtterance: userUtterance,
			AIUtterance:   aiUtterance,
		})
	})
}

// AppendAnnotation records a system annotation. The slots are copied.
func (s *Store) AppendAnnotation(callID string, annotationType AnnotationType, slots []scheduling.Slot) {
	s.update(callID, func(state *CallState) {
		state.History = append(state.History, Entry{
			ID:         uuid.NewString(),
			Annotation: &Annotation{Type: annotationType, Slots: slices.Clone(slots)},
		})
	})
}

func (s *Store) SetPhase(callID string, phase Phase) {
	s.update(callID, func(state *CallState) {
		state.Phase = phase
	})
}

// IncrementRetry bumps the consecutive silent turn counter and returns its
// new value.
func (s *Store) IncrementRetry(callID string) int {
	var count int
	s.update(callID, func(state *CallState) {
		state.RetryCount++
		count = state.RetryCount
	})
	return count
}

func (s *Store) ResetRetry(callID string) {
	s.update(callID, func(state *CallState) {
		state.RetryCount = 0
	})
}

// HistoryLength returns the number of history entries for the call without
// creating it.
func (s *Store) HistoryLength(callID string) int {
	c, ok := s.lookup(callID)
	if !ok {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.state.History)
}

// LatestSlots returns a copy of the most recently proposed slots for the call.
func (s *Store) LatestSlots(callID string) ([]scheduling.Slot, bool) {
	c, ok := s.lookup(callID)
	if !ok {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	slots, ok := LatestSlots(c.state.History)
	return slices.Clone(slots), ok
}

// Clear forgets the call. A later access starts over from [PhaseGreeting].
// The call's turn lock is unaffected, a turn holding it keeps it.
func (s *Store) Clear(ctx context.Context, callID string) {
	s.mu.Lock()
	c, ok := s.calls[callID]
	delete(s.calls, callID)
	s.mu.Unlock()

	if !ok {
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	logger.DebugContext(ctx, "cleared call state",
		slog.String("call.id", callID),
		slog.String("phase", string(c.state.Phase)),
		slog.Int("history", len(c.state.History)))
}

// Len returns the number of calls currently tracked.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calls)
}
