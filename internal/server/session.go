package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/cv-matcher/internal/matching"
)

const (
	sessionCookie = "cvm_session"
	sessionTTL    = 24 * time.Hour
)

type session struct {
	report  *matching.Report
	updated time.Time
}

// sessionStore keeps the latest match report of each browser session in memory.
type sessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]session
	now   func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, items: make(map[string]session), now: time.Now}
}

func (s *sessionStore) get(id string) (*matching.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || s.now().Sub(item.updated) > s.ttl {
		delete(s.items, id)
		return nil, false
	}
	return item.report, true
}

func (s *sessionStore) put(id string, report *matching.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, item := range s.items {
		if now.Sub(item.updated) > s.ttl {
			delete(s.items, key)
		}
	}
	s.items[id] = session{report: report, updated: now}
}

// sessionID returns the id from the request cookie, issuing a new cookie when
// the request has none.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
