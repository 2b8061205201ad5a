// Package server runs many conversations at once over shared read-only
// rules. Each session owns its rotation cursors and memory namespace; the
// engine may be swapped by a script reload, which affects new sessions only.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/eliza/internal/engine"
	"github.com/rcliao/eliza/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// Info describes a live session.
type Info struct {
	ID        string    `json:"session_id"`
	Turns     int       `json:"turns"`
	LastInput string    `json:"last_input,omitempty"`
	Memory    int       `json:"memory"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Turn is the answer to one utterance. When Done is set the session has
// ended and Text holds the closing line.
type Turn struct {
	SessionID string `json:"session_id"`
	engine.Reply
}

type conversation struct {
	mu      sync.Mutex // serializes turns
	ended   bool
	sess    *engine.Session
	created time.Time
	updated time.Time
}

// Server holds the live sessions.
type Server struct {
	mu       sync.RWMutex
	engine   *engine.Engine
	sessions map[string]*conversation

	store   store.Store
	log     *zap.Logger
	metrics *Metrics

	idMu    sync.Mutex
	entropy *rand.Rand
}

// New creates a server. Session memory lives in st, one namespace per
// session. A nil logger disables logging.
func New(e *engine.Engine, st store.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		engine:   e,
		sessions: map[string]*conversation{},
		store:    st,
		log:      log,
		metrics:  NewMetrics(),
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Engine returns the engine new sessions are created from.
func (s *Server) Engine() *engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetEngine replaces the engine for sessions created from now on. Live
// sessions keep the rules they started with.
func (s *Server) SetEngine(e *engine.Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

func (s *Server) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

// Create starts a session and returns it with its opening line. An empty
// id gets a generated one.
func (s *Server) Create(ctx context.Context, id string) (Info, string, error) {
	if id == "" {
		id = s.newID()
	}

	s.mu.Lock()
	if _, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return Info{}, "", fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	now := time.Now().UTC()
	c := &conversation{
		sess:    s.engine.NewSession(store.Scope(s.store, id), nil),
		created: now,
		updated: now,
	}
	s.sessions[id] = c
	s.mu.Unlock()

	s.metrics.ActiveSessions.Inc()
	s.log.Info("session created", zap.String("session", id))

	c.mu.Lock()
	defer c.mu.Unlock()
	info, err := c.info(ctx, id)
	return info, c.sess.Initial(), err
}

func (s *Server) lookup(id string) (*conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return c, nil
}

// Respond answers one utterance. A quit phrase ends the session.
func (s *Server) Respond(ctx context.Context, id, text string) (Turn, error) {
	c, err := s.lookup(id)
	if err != nil {
		return Turn{}, err
	}
	return s.turn(ctx, id, c, text)
}

// turn runs one utterance on c. A session ended after lookup no longer
// takes turns, so nothing lands in its cleared namespace.
func (s *Server) turn(ctx context.Context, id string, c *conversation, text string) (Turn, error) {
	start := time.Now()
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return Turn{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	reply, err := c.sess.Respond(ctx, text)
	if err == nil && reply.Done {
		reply.Text = c.sess.Final()
	}
	c.updated = time.Now().UTC()
	c.mu.Unlock()
	s.metrics.Latency.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.Errors.Inc()
		s.log.Warn("turn failed", zap.String("session", id), zap.Error(err))
		return Turn{}, err
	}
	s.metrics.Turns.WithLabelValues(string(reply.Source)).Inc()

	if reply.Done {
		if _, err := s.end(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return Turn{}, err
		}
	}
	return Turn{SessionID: id, Reply: reply}, nil
}

// Get describes a session.
func (s *Server) Get(ctx context.Context, id string) (Info, error) {
	c, err := s.lookup(id)
	if err != nil {
		return Info{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info(ctx, id)
}

// List describes every live session, oldest first.
func (s *Server) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var out []Info
	for _, id := range ids {
		info, err := s.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete ends a session, discards its memory and returns the closing line.
func (s *Server) Delete(ctx context.Context, id string) (string, error) {
	return s.end(ctx, id)
}

func (s *Server) end(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	c, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.metrics.ActiveSessions.Dec()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = true
	if _, err := s.store.Clear(ctx, id); err != nil {
		return "", fmt.Errorf("clear memory: %w", err)
	}
	s.log.Info("session ended", zap.String("session", id))
	return c.sess.Final(), nil
}

func (c *conversation) info(ctx context.Context, id string) (Info, error) {
	n, err := c.sess.Memory().Len(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("memory size: %w", err)
	}
	return Info{
		ID:        id,
		Turns:     c.sess.Turns(),
		LastInput: c.sess.LastInput(),
		Memory:    n,
		CreatedAt: c.created,
		UpdatedAt: c.updated,
	}, nil
}
