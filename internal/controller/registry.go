package controller

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const janitorInterval = 5 * time.Minute

// Factory builds the controller for a new session.
type Factory func(sessionID string) *Controller

type session struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Registry maps session ids to their controllers and drops sessions that
// have been idle longer than the configured timeout.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  Factory
	idle     time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
	stopChan chan struct{}
}

func NewRegistry(factory Factory, idle time.Duration, log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		sessions: make(map[string]*session),
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Get returns the session's controller, creating it on first use.
func (r *Registry) Get(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		s.lastSeen = r.now()
		return s.ctrl
	}

	ctrl := r.factory(sessionID)
	r.sessions[sessionID] = &session{ctrl: ctrl, lastSeen: r.now()}
	r.log.Debugw("Session created", "session_id", sessionID, "sessions", len(r.sessions))
	return ctrl
}

// Lookup returns an existing controller without touching its idle clock.
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return s.ctrl, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle removes sessions not seen since the idle timeout, closes their
// controllers and returns how many were dropped.
func (r *Registry) EvictIdle() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	var evicted []*Controller
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, s.ctrl)
		}
	}
	r.mu.Unlock()

	for _, ctrl := range evicted {
		if ctrl != nil {
			ctrl.Close()
		}
	}
	return len(evicted)
}

func (r *Registry) Start() {
	if r.idle <= 0 {
		return
	}
	go r.loop()
	r.log.Infow("Session janitor started", "idle_timeout", r.idle)
}

func (r *Registry) Stop() {
	select {
	case <-r.stopChan:
		return
	default:
		close(r.stopChan)
	}
}

func (r *Registry) loop() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.log.Infow("Idle sessions evicted", "evicted", n, "remaining", r.Len())
			}
		}
	}
}
