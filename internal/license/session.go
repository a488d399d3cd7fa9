// AngelaMos | 2026
// session.go

package license

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// AdmissionState is the position of a session in the admission protocol.
// It describes the session, not the stored record.
type AdmissionState uint8

const (
	StateUnknown AdmissionState = iota
	StateActivating
	StateAdmitted
	StateDeferredBlock
	StateBlocked
)

func (s AdmissionState) String() string {
	switch s {
	case StateUnknown:
		return "UNKNOWN"
	case StateActivating:
		return "ACTIVATING"
	case StateAdmitted:
		return "ADMITTED"
	case StateDeferredBlock:
		return "DEFERRED_BLOCK"
	case StateBlocked:
		return "BLOCKED"
	default:
		return "INVALID"
	}
}

const sessionQueueSize = 16

type task struct {
	fn   func()
	done chan struct{}
}

// Session is the admission state of one license holder. It carries the
// deferred-block flag and an ordered queue of pending consumptions, so the
// next pre-check always observes the previous consumption.
type Session struct {
	ID          string
	Fingerprint string

	mu            sync.Mutex
	code          string
	state         AdmissionState
	deferredBlock bool
	lastSeen      time.Time

	qmu     sync.Mutex
	tasks   chan task
	tail    chan struct{}
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func NewSession(id, code, fingerprint string) *Session {
	tail := make(chan struct{})
	close(tail)

	return &Session{
		ID:          id,
		Fingerprint: fingerprint,
		code:        code,
		tail:        tail,
	}
}

func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

func (s *Session) State() AdmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) DeferredBlock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deferredBlock
}

func (s *Session) setState(state AdmissionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// bind attaches the session to an activated code and resets the protocol.
func (s *Session) bind(code string) {
	s.mu.Lock()
	s.code = code
	s.deferredBlock = false
	s.state = StateAdmitted
	s.mu.Unlock()
}

func (s *Session) unbind() {
	s.mu.Lock()
	s.code = ""
	s.deferredBlock = false
	s.state = StateUnknown
	s.mu.Unlock()
}

func (s *Session) armDeferredBlock() {
	s.mu.Lock()
	s.deferredBlock = true
	s.state = StateDeferredBlock
	s.mu.Unlock()
}

// admitExhausted decides a pre-check on a spent license. The first attempt
// after the budget ran out is let through unless a consumption already
// armed the flag; once blocked the session stays blocked until the next
// activation.
func (s *Session) admitExhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deferredBlock || s.state == StateBlocked {
		s.deferredBlock = false
		s.state = StateBlocked
		return false
	}

	s.state = StateDeferredBlock
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// enqueue runs fn on the session worker after every previously queued task.
// The returned channel is closed once fn has returned.
func (s *Session) enqueue(fn func()) <-chan struct{} {
	done := make(chan struct{})

	s.qmu.Lock()
	defer s.qmu.Unlock()

	if s.closed {
		fn()
		close(done)
		return done
	}

	if !s.started {
		s.tasks = make(chan task, sessionQueueSize)
		s.started = true
		s.wg.Add(1)
		go s.run()
	}

	s.tail = done
	s.tasks <- task{fn: fn, done: done}
	return done
}

func (s *Session) run() {
	defer s.wg.Done()
	for t := range s.tasks {
		t.fn()
		close(t.done)
	}
}

// Wait blocks until every queued task has finished.
func (s *Session) Wait(ctx context.Context) error {
	s.qmu.Lock()
	tail := s.tail
	s.qmu.Unlock()

	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the worker.
func (s *Session) Close() {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return
	}
	s.closed = true
	if s.started {
		close(s.tasks)
	}
	s.qmu.Unlock()

	s.wg.Wait()
}

// Sessions holds the admission sessions of a server process, keyed by
// session id. Idle sessions are swept after ttl.
type Sessions struct {
	mu     sync.Mutex
	items  map[string]*Session
	ttl    time.Duration
	clock  quartz.Clock
	onSize func(int)
}

func NewSessions(clock quartz.Clock, ttl time.Duration) *Sessions {
	return &Sessions{
		items: make(map[string]*Session),
		ttl:   ttl,
		clock: clock,
	}
}

// OnSizeChange registers a callback receiving the session count after every
// insert or removal.
func (r *Sessions) OnSizeChange(fn func(int)) {
	r.mu.Lock()
	r.onSize = fn
	r.mu.Unlock()
}

func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.items[id]
	r.mu.Unlock()

	if ok {
		s.touch(r.clock.Now())
	}
	return s, ok
}

// GetOrCreate returns the session for id, creating it bound to code when it
// does not exist yet.
func (r *Sessions) GetOrCreate(id, code, fingerprint string) *Session {
	r.mu.Lock()
	s, ok := r.items[id]
	if !ok {
		s = NewSession(id, code, fingerprint)
		r.items[id] = s
		r.notify()
	}
	r.mu.Unlock()

	s.touch(r.clock.Now())
	return s
}

func (r *Sessions) Remove(id string) {
	r.mu.Lock()
	s, ok := r.items[id]
	if ok {
		delete(r.items, id)
		r.notify()
	}
	r.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep closes and removes sessions idle for longer than the ttl.
func (r *Sessions) Sweep() int {
	cutoff := r.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.items {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.items, id)
		}
	}
	if len(stale) > 0 {
		r.notify()
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// Run sweeps on an interval until ctx is done.
func (r *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := r.clock.NewTicker(interval, "sessions", "sweep")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Sessions) CloseAll() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*Session)
	r.notify()
	r.mu.Unlock()

	for _, s := range items {
		s.Close()
	}
}

func (r *Sessions) notify() {
	if r.onSize != nil {
		r.onSize(len(r.items))
	}
}
