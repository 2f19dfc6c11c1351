package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

// Session is one visitor's quote: the step sequencer plus a cascading
// selector per vehicle. mu guards seq; selectors lock themselves.
type Session struct {
	ID string

	mu        sync.Mutex
	seq       *wizard.Sequencer
	selectors map[int]*cascade.Selector
	newSel    func() *cascade.Selector
	touched   time.Time
}

// Selector returns the selector of vehicle index, creating it on first use.
// Callers hold mu.
func (s *Session) selector(index int) *cascade.Selector {
	if sel, ok := s.selectors[index]; ok {
		return sel
	}
	sel := s.newSel()
	s.selectors[index] = sel
	return sel
}

// resetSelectors abandons every selector. Callers hold mu.
func (s *Session) resetSelectors() {
	for _, sel := range s.selectors {
		sel.Reset()
	}
	s.selectors = make(map[int]*cascade.Selector)
}

// snapshots collects selector state for the view. Callers hold mu.
func (s *Session) snapshots() map[int]cascade.Snapshot {
	if len(s.selectors) == 0 {
		return nil
	}
	out := make(map[int]cascade.Snapshot, len(s.selectors))
	for index, sel := range s.selectors {
		out[index] = sel.Snapshot()
	}
	return out
}

// SessionStore keeps sessions in memory and forgets the ones idle longer
// than idle.
type SessionStore struct {
	mu     sync.Mutex
	items  map[string]*Session
	idle   time.Duration
	now    func() time.Time
	build  func() (*wizard.Sequencer, func() *cascade.Selector)
	logger *slog.Logger
}

func NewSessionStore(idle time.Duration, build func() (*wizard.Sequencer, func() *cascade.Selector), logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		items:  make(map[string]*Session),
		idle:   idle,
		now:    time.Now,
		build:  build,
		logger: logger,
	}
}

// Get returns the live session id and marks it used.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.items[id]
	if !ok {
		return nil, false
	}
	now := st.now()
	if st.expired(sess, now) {
		delete(st.items, id)
		return nil, false
	}
	sess.touched = now
	return sess, true
}

// Create starts a fresh session under a new random id.
func (st *SessionStore) Create() *Session {
	seq, newSel := st.build()
	sess := &Session{
		ID:        uuid.NewString(),
		seq:       seq,
		selectors: make(map[int]*cascade.Selector),
		newSel:    newSel,
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	sess.touched = st.now()
	st.items[sess.ID] = sess
	return sess
}

// Prune drops idle sessions and reports how many went.
func (st *SessionStore) Prune() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	dropped := 0
	for id, sess := range st.items {
		if st.expired(sess, now) {
			delete(st.items, id)
			dropped++
		}
	}
	return dropped
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.items)
}

// Janitor prunes every interval until ctx is done.
func (st *SessionStore) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Prune(); n > 0 {
				st.logger.Debug("server: pruned idle sessions", "count", n)
			}
		}
	}
}

func (st *SessionStore) expired(sess *Session, now time.Time) bool {
	return st.idle > 0 && now.Sub(sess.touched) > st.idle
}
