package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionStore hält alle Sessions im Speicher. Nichts wird über den Prozess hinaus gespeichert.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionStore erstellt einen leeren Store.
func NewSessionStore(logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		logger:   logger,
		now:      time.Now,
	}
}

// Create legt eine neue Session mit Defaults an.
func (st *SessionStore) Create() *Session {
	s := NewSession(uuid.NewString(), st.logger)
	s.now = st.now
	s.lastActive = st.now()

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.logger.Debug("Session angelegt", zap.String("session", s.ID))
	return s
}

// Get sucht eine Session.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete entfernt eine Session.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Len liefert die Anzahl der Sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep entfernt Sessions, die länger als ttl inaktiv sind, und liefert deren Anzahl.
// Sessions mit laufendem Request bleiben erhalten.
func (st *SessionStore) Sweep(ttl time.Duration) int {
	cutoff := st.now().Add(-ttl)

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.State() == StateLoading {
			continue
		}
		if s.LastActive().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper plant Sweep als Cron-Job; der Aufrufer stoppt den Scheduler.
func (st *SessionStore) StartSweeper(schedule string, ttl time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		removed := st.Sweep(ttl)
		if removed > 0 {
			st.logger.Info("Inaktive Sessions entfernt", zap.Int("removed", removed), zap.Int("remaining", st.Len()))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
