package dialogue

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/taqrir/reportbot/internal/model/report"
)

// ErrNoActiveSession signals a reply arriving for a chat with no dialogue
// in progress. Callers surface it as guidance, not as a failure.
var ErrNoActiveSession = errors.New("no active dialogue session")

// Store owns every in-flight dialogue session, keyed by chat id.
// Map operations take the store lock; dialogue mutation takes the per-chat
// entry lock, so duplicate deliveries for one chat serialize while
// unrelated chats never contend.
type Store struct {
	engine Engine
	idle   time.Duration

	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu       sync.Mutex
	session  report.Session
	done     bool
	removed  bool
	lastSeen atomic.Int64
}

func (e *entry) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

// NewStore bootstraps the in-memory session store. An idle duration of
// zero disables expiry.
func NewStore(engine Engine, idle time.Duration) *Store {
	return &Store{
		engine:  engine,
		idle:    idle,
		entries: make(map[int64]*entry),
	}
}

// Engine exposes the dialogue engine bound to this store.
func (s *Store) Engine() Engine {
	return s.engine
}

// Len reports the number of sessions currently held, including ones the
// janitor has not swept yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Begin creates a fresh session for the chat and returns it with the
// opening prompt. Any unfinished dialogue for the chat is silently
// discarded, giving /start restart semantics.
func (s *Store) Begin(chatID int64) (report.Session, string) {
	now := time.Now().UTC()
	e := &entry{
		session: report.Session{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			Answers:   make(map[string]string, s.engine.Schema().Count()),
			CreatedAt: now,
		},
	}
	e.touch(now)

	s.mu.Lock()
	prev := s.entries[chatID]
	s.entries[chatID] = e
	s.mu.Unlock()

	if prev != nil {
		prev.mu.Lock()
		prev.removed = true
		prev.mu.Unlock()
	}

	return e.session.Clone(), s.engine.FirstPrompt()
}

// Get returns a snapshot of the chat's active session, if any.
func (s *Store) Get(chatID int64) (report.Session, bool) {
	s.mu.Lock()
	e, ok := s.entries[chatID]
	s.mu.Unlock()
	if !ok {
		return report.Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || s.expired(e, time.Now()) {
		s.evict(chatID, e)
		return report.Session{}, false
	}
	return e.session.Clone(), true
}

// RecordAnswer applies one answer to the chat's session and reports the
// next step. Answers for the same chat apply strictly in delivery order.
func (s *Store) RecordAnswer(chatID int64, answer string) (NextStep, error) {
	s.mu.Lock()
	e, ok := s.entries[chatID]
	s.mu.Unlock()
	if !ok {
		return NextStep{}, ErrNoActiveSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if e.removed || e.done {
		return NextStep{}, ErrNoActiveSession
	}
	if s.expired(e, now) {
		s.evict(chatID, e)
		return NextStep{}, ErrNoActiveSession
	}
	e.touch(now.UTC())

	step := s.engine.Advance(&e.session, answer)
	if step.Done {
		e.done = true
	}
	return step, nil
}

// Finish claims a completed session for artifact delivery and clears it.
// It returns false when the session was cancelled or replaced while the
// document was being assembled, in which case the artifact must be dropped.
func (s *Store) Finish(chatID int64, sessionID string) bool {
	s.mu.Lock()
	e, ok := s.entries[chatID]
	if !ok || e.session.ID != sessionID {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, chatID)
	s.mu.Unlock()

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return true
}

// Cancel discards the chat's session unconditionally. Calling it for a
// chat with no session is a no-op.
func (s *Store) Cancel(chatID int64) {
	s.mu.Lock()
	e, ok := s.entries[chatID]
	if ok {
		delete(s.entries, chatID)
	}
	s.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
}

// StartJanitor sweeps idle sessions until the context is cancelled.
// Expiry is also checked lazily on access, so a sweep that runs late
// never resurrects an abandoned dialogue.
func (s *Store) StartJanitor(ctx context.Context) {
	if s.idle <= 0 {
		return
	}

	interval := s.idle / 4
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(time.Now())
			}
		}
	}()
}

func (s *Store) sweep(now time.Time) {
	type victim struct {
		chatID int64
		e      *entry
	}

	var victims []victim
	s.mu.Lock()
	for chatID, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, chatID)
			victims = append(victims, victim{chatID: chatID, e: e})
		}
	}
	s.mu.Unlock()

	for _, v := range victims {
		v.e.mu.Lock()
		v.e.removed = true
		v.e.mu.Unlock()
		log.Printf("[dialogue] expired idle session for chat=%d", v.chatID)
	}
}

func (s *Store) expired(e *entry, now time.Time) bool {
	if s.idle <= 0 {
		return false
	}
	return now.UnixNano()-e.lastSeen.Load() > int64(s.idle)
}

// evict removes the entry unless a newer session already took its slot.
// Callers hold the entry lock.
func (s *Store) evict(chatID int64, e *entry) {
	e.removed = true
	s.mu.Lock()
	if cur, ok := s.entries[chatID]; ok && cur == e {
		delete(s.entries, chatID)
	}
	s.mu.Unlock()
}
