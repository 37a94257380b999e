package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptodash/internal/infrastructure"
)

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = time.Hour

// uploadSession is one user's uploaded table.
type uploadSession struct {
	id       string
	filename string
	digest   string
	snapshot *Snapshot
	expires  time.Time
}

// SessionStore keeps uploaded tables per session. Each session sees only its
// own table; entries expire after the TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*uploadSession
	ttl      time.Duration
	max      int
	now      func() time.Time
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewSessionStore creates a store. max <= 0 means unbounded.
func NewSessionStore(ttl time.Duration, max int, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	return &SessionStore{
		sessions: make(map[string]*uploadSession),
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "sessions"),
	}
}

// Put stores a snapshot under a new session id and returns the id.
func (s *SessionStore) Put(ctx context.Context, filename, digest string, snap *Snapshot) string {
	id := uuid.New().String()
	snap.Key = "upload:" + id + ":" + digest

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(ctx)
	if s.max > 0 {
		for len(s.sessions) >= s.max {
			s.evictOldestLocked(ctx)
		}
	}

	s.sessions[id] = &uploadSession{
		id:       id,
		filename: filename,
		digest:   digest,
		snapshot: snap,
		expires:  s.now().Add(s.ttl),
	}
	s.metrics.UploadSessionsActive.Add(ctx, 1)
	s.logger.InfoContext(ctx, "upload session created",
		slog.String("session_id", id),
		slog.String("filename", filename),
		slog.Int("records", len(snap.Records)))
	return id
}

// Get returns the snapshot of a live session and extends its expiry.
func (s *SessionStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(ctx)
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.expires = s.now().Add(s.ttl)
	return sess.snapshot, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(ctx)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) sweepLocked(ctx context.Context) int {
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if now.After(sess.expires) {
			s.removeLocked(ctx, id, "expired")
			n++
		}
	}
	return n
}

func (s *SessionStore) evictOldestLocked(ctx context.Context) {
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.sessions[ids[i]].expires.Before(s.sessions[ids[j]].expires)
	})
	if len(ids) > 0 {
		s.removeLocked(ctx, ids[0], "evicted")
	}
}

func (s *SessionStore) removeLocked(ctx context.Context, id, reason string) {
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	s.metrics.UploadSessionsActive.Add(ctx, -1)
	s.logger.DebugContext(ctx, "upload session removed",
		slog.String("session_id", id),
		slog.String("reason", reason))
}
