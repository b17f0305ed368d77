package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/laval/internal/query"
)

// sessionCookie carries the browser's query session id.
const sessionCookie = "laval_session"

// session is the query context of one browser: its own client, in-flight flag and pending notifications.
type session struct {
	client   *query.Client
	notes    *query.Buffer
	lastSeen atomic.Int64
}

func (sess *session) touch() {
	sess.lastSeen.Store(time.Now().UnixNano())
}

// sessionFor returns the session of the requesting browser, creating it and setting the cookie when needed.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}

	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}

	key := xxhash.Sum64String(id)
	if v, ok := s.sessions.Load(key); ok {
		sess := v.(*session)
		sess.touch()
		return sess
	}

	notes := &query.Buffer{}
	opts := []query.Option{query.WithNotifier(notes)}
	if s.audit != nil {
		opts = append(opts, query.WithRecorder(s.audit))
	}

	fresh := &session{
		client: query.New(s.manager, opts...),
		notes:  notes,
	}
	fresh.touch()

	v, loaded := s.sessions.LoadOrStore(key, fresh)
	if !loaded {
		log.Trace().Uint64("session", key).Msg("Query session created")
	}

	sess := v.(*session)
	sess.touch()
	return sess
}

// gcSessions periodically drops sessions that are idle and have no lookup in flight.
func (s *Server) gcSessions() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

// evictIdle removes sessions unused since before now minus the idle timeout.
func (s *Server) evictIdle(now time.Time) int {
	cutoff := now.Add(-s.sessionIdle).UnixNano()
	evicted := 0

	s.sessions.Range(func(key, value any) bool {
		sess, ok := value.(*session)
		if !ok {
			s.sessions.Delete(key)
			return true
		}
		if sess.lastSeen.Load() < cutoff && !sess.client.InFlight() {
			s.sessions.Delete(key)
			evicted++
		}
		return true
	})

	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("Idle query sessions dropped")
	}

	return evicted
}
