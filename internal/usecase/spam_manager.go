package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sglre6355/webhook-relay/internal/domain"
)

// ErrSessionNotFound reports an unknown spam session ID.
var ErrSessionNotFound = errors.New("spam session not found")

// MessageDispatcher posts a single message to a webhook.
type MessageDispatcher interface {
	Execute(ctx context.Context, ref domain.WebhookRef, msg domain.Message) error
}

// SpamErrorHandler is invoked for every failed dispatch of a cycle.
type SpamErrorHandler func(sessionID string, ref domain.WebhookRef, err error)

type spamSession struct {
	id        string
	settings  domain.SpamSettings
	refs      []domain.WebhookRef
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	cycles sync.WaitGroup

	reserved  atomic.Int64
	completed atomic.Int64
	sent      atomic.Int64
	failed    atomic.Int64
	lastSeen  atomic.Int64 // unix nanoseconds of the last Start, Status or Done

	mu         sync.Mutex
	stoppedAt  time.Time
	stopReason domain.SpamStopReason
}

// SpamManager runs timed fan-out sessions that post one message to many webhooks.
type SpamManager struct {
	mu       sync.RWMutex
	sessions map[string]*spamSession

	dispatcher MessageDispatcher

	nowFn           func() time.Time
	minInterval     time.Duration
	maxInFlight     int
	dispatchTimeout time.Duration
	idleTimeout     time.Duration
	onError         SpamErrorHandler

	quit     chan struct{}
	quitOnce sync.Once
}

// SpamManagerOption configures behavioural aspects of the fan-out scheduler.
type SpamManagerOption func(*SpamManager)

// WithSpamClock overrides the clock used to timestamp sessions (useful for testing).
func WithSpamClock(nowFn func() time.Time) SpamManagerOption {
	return func(m *SpamManager) {
		if nowFn != nil {
			m.nowFn = nowFn
		}
	}
}

// WithSpamMinInterval sets the floor applied to every session interval.
func WithSpamMinInterval(interval time.Duration) SpamManagerOption {
	return func(m *SpamManager) {
		if interval > 0 {
			m.minInterval = interval
		}
	}
}

// WithSpamMaxInFlight bounds concurrent dispatches within one cycle. Zero means unbounded.
func WithSpamMaxInFlight(limit int) SpamManagerOption {
	return func(m *SpamManager) {
		if limit >= 0 {
			m.maxInFlight = limit
		}
	}
}

// WithSpamDispatchTimeout customises the maximum duration allowed for one dispatch.
func WithSpamDispatchTimeout(timeout time.Duration) SpamManagerOption {
	return func(m *SpamManager) {
		if timeout > 0 {
			m.dispatchTimeout = timeout
		}
	}
}

// WithSpamIdleTimeout sets how long a session may go unpolled before it is
// stopped and forgotten. Finished sessions are forgotten after the same delay.
// Zero disables reaping.
func WithSpamIdleTimeout(timeout time.Duration) SpamManagerOption {
	return func(m *SpamManager) {
		if timeout >= 0 {
			m.idleTimeout = timeout
		}
	}
}

// WithSpamErrorHandler registers the callback used when a dispatch fails.
func WithSpamErrorHandler(handler SpamErrorHandler) SpamManagerOption {
	return func(m *SpamManager) {
		if handler != nil {
			m.onError = handler
		}
	}
}

// NewSpamManager builds a manager that dispatches messages via dispatcher.
func NewSpamManager(dispatcher MessageDispatcher, opts ...SpamManagerOption) *SpamManager {
	manager := &SpamManager{
		sessions:        make(map[string]*spamSession),
		dispatcher:      dispatcher,
		nowFn:           time.Now,
		minInterval:     50 * time.Millisecond,
		dispatchTimeout: 30 * time.Second,
		idleTimeout:     time.Minute,
		onError:         func(string, domain.WebhookRef, error) {},
		quit:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(manager)
	}

	if manager.idleTimeout > 0 {
		go manager.reapLoop()
	}

	return manager
}

// Start validates settings, runs one cycle immediately and schedules the rest.
// It returns the ID used to query or stop the session.
func (m *SpamManager) Start(settings domain.SpamSettings) (string, error) {
	if m.dispatcher == nil {
		return "", fmt.Errorf("spam manager missing message dispatcher dependency")
	}
	if settings.Message.Empty() {
		return "", domain.ErrEmptyMessage
	}
	if settings.MaxCycles < 0 {
		return "", fmt.Errorf("max cycles cannot be negative")
	}

	urls := domain.NewWebhookList(settings.Webhooks...).URLs()
	if len(urls) == 0 {
		return "", domain.ErrNoWebhooks
	}

	refs := make([]domain.WebhookRef, 0, len(urls))
	for i, raw := range urls {
		ref, err := domain.ParseWebhookURL(raw)
		if err != nil {
			return "", fmt.Errorf("webhook %d: %w", i+1, err)
		}
		refs = append(refs, ref)
	}

	settings.Webhooks = urls
	if settings.Interval < m.minInterval {
		settings.Interval = m.minInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &spamSession{
		id:        uuid.NewString(),
		settings:  settings,
		refs:      refs,
		startedAt: m.nowFn(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	session.touch(session.startedAt)

	m.mu.Lock()
	m.sessions[session.id] = session
	m.mu.Unlock()

	go m.run(session)
	return session.id, nil
}

// Stop cancels a session, forgets it and returns its final stats.
// In-flight dispatches are aborted and not counted.
func (m *SpamManager) Stop(id string) (domain.SpamStats, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return domain.SpamStats{}, ErrSessionNotFound
	}

	m.finish(session, domain.SpamStopReasonStopped)
	<-session.done
	return session.stats(), nil
}

// Status returns the current stats of a session.
func (m *SpamManager) Status(id string) (domain.SpamStats, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return domain.SpamStats{}, ErrSessionNotFound
	}

	session.touch(m.nowFn())
	return session.stats(), nil
}

// Done returns a channel closed once the session has returned to idle.
func (m *SpamManager) Done(id string) (<-chan struct{}, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	session.touch(m.nowFn())
	return session.done, nil
}

// Shutdown cancels every session. Returns how many were still running.
func (m *SpamManager) Shutdown() int {
	m.quitOnce.Do(func() { close(m.quit) })

	m.mu.Lock()
	toStop := m.sessions
	m.sessions = make(map[string]*spamSession)
	m.mu.Unlock()

	running := 0
	for _, session := range toStop {
		if m.finish(session, domain.SpamStopReasonShutdown) {
			running++
		}
	}
	for _, session := range toStop {
		<-session.done
	}

	return running
}

// Reap stops running sessions that have not been polled within the idle timeout
// and forgets finished sessions older than it. It returns how many sessions were removed.
func (m *SpamManager) Reap() int {
	if m.idleTimeout <= 0 {
		return 0
	}

	cutoff := m.nowFn().Add(-m.idleTimeout)

	var expired []*spamSession
	m.mu.Lock()
	for id, session := range m.sessions {
		if session.idleSince(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		m.finish(session, domain.SpamStopReasonAbandoned)
	}

	return len(expired)
}

func (m *SpamManager) reapLoop() {
	every := m.idleTimeout / 2
	if every <= 0 {
		every = m.idleTimeout
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Reap()
		case <-m.quit:
			return
		}
	}
}

func (m *SpamManager) run(session *spamSession) {
	defer close(session.done)

	ticker := time.NewTicker(session.settings.Interval)
	defer ticker.Stop()

	for {
		last, ok := session.reserve()
		if !ok {
			break
		}

		session.cycles.Add(1)
		go m.runCycle(session)

		if last {
			break
		}

		select {
		case <-ticker.C:
		case <-session.ctx.Done():
			session.cycles.Wait()
			return
		}
	}

	session.cycles.Wait()
	m.finish(session, domain.SpamStopReasonCompleted)
}

func (m *SpamManager) runCycle(session *spamSession) {
	defer session.cycles.Done()

	var group errgroup.Group
	if m.maxInFlight > 0 {
		group.SetLimit(m.maxInFlight)
	}

	for _, ref := range session.refs {
		group.Go(func() error {
			ctx, cancel := context.WithTimeout(session.ctx, m.dispatchTimeout)
			defer cancel()

			err := m.dispatcher.Execute(ctx, ref, session.settings.Message)
			switch {
			case err == nil:
				session.sent.Add(1)
			case session.ctx.Err() != nil:
				// aborted by stop
			default:
				session.failed.Add(1)
				m.onError(session.id, ref, err)
			}
			return nil
		})
	}

	_ = group.Wait()

	if session.ctx.Err() == nil {
		session.completed.Add(1)
	}
}

// finish moves the session to idle once; later calls are no-ops and return false.
func (m *SpamManager) finish(session *spamSession, reason domain.SpamStopReason) bool {
	session.mu.Lock()
	if session.stopReason != domain.SpamStopReasonNone {
		session.mu.Unlock()
		return false
	}
	session.stopReason = reason
	session.stoppedAt = m.nowFn()
	session.mu.Unlock()

	session.cancel()
	return true
}

// reserve claims the next cycle slot. last is true when the slot is the final one allowed.
func (s *spamSession) reserve() (last bool, ok bool) {
	if s.ctx.Err() != nil {
		return false, false
	}

	n := s.reserved.Add(1)
	limit := int64(s.settings.MaxCycles)
	if limit == 0 {
		return false, true
	}
	if n > limit {
		return false, false
	}

	return n == limit, true
}

func (s *spamSession) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// idleSince reports whether the session was last polled, or finished, before cutoff.
func (s *spamSession) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	reason := s.stopReason
	stoppedAt := s.stoppedAt
	s.mu.Unlock()

	if reason != domain.SpamStopReasonNone {
		return stoppedAt.Before(cutoff)
	}
	return time.Unix(0, s.lastSeen.Load()).Before(cutoff)
}

func (s *spamSession) stats() domain.SpamStats {
	s.mu.Lock()
	reason := s.stopReason
	stoppedAt := s.stoppedAt
	s.mu.Unlock()

	stats := domain.SpamStats{
		ID:         s.id,
		Running:    reason == domain.SpamStopReasonNone,
		Webhooks:   len(s.refs),
		Interval:   s.settings.Interval,
		MaxCycles:  s.settings.MaxCycles,
		Cycles:     s.completed.Load(),
		Sent:       s.sent.Load(),
		Failed:     s.failed.Load(),
		StartedAt:  s.startedAt,
		StopReason: reason,
	}
	if !stats.Running {
		stats.StoppedAt = &stoppedAt
	}

	return stats
}
