// Package convo tracks conversations that are waiting on a follow-up message
// from a particular user.
package convo

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/metrics"
	"github.com/zephyrtronium/hitori/syncmap"
)

// DefaultTimeout is the time a wait remains pending when Options does not
// give one.
const DefaultTimeout = 60 * time.Second

// Key identifies a conversation slot. Each user has one slot per group and
// one for private messages.
type Key struct {
	User  string
	Group string
}

// KeyOf returns the conversation slot that msg belongs to.
func KeyOf(msg *message.Received) Key {
	if msg.Kind == message.Private {
		return Key{User: msg.Sender}
	}
	return Key{User: msg.Sender, Group: msg.Group}
}

func (k Key) String() string {
	if k.Group == "" {
		return "private:" + k.User
	}
	return k.Group + ":" + k.User
}

// Handler is a continuation that receives the text of a follow-up message.
type Handler func(ctx context.Context, msg *message.Received, text string)

// Options configures a wait.
type Options struct {
	// Prompt is text to send before waiting. If the transport reports an ID
	// for the prompt, only replies quoting it are accepted.
	Prompt string
	// Timeout is how long to wait. Zero means DefaultTimeout.
	Timeout time.Duration
}

type pending struct {
	handler  Handler
	prompt   string
	promptID string
	expires  time.Time
}

// Manager holds pending waits and collection sessions.
// It is safe for concurrent use.
type Manager struct {
	reply    message.Replier
	log      *slog.Logger
	now      func() time.Time
	expired  metrics.Observer
	pending  *syncmap.Map[Key, *pending]
	sessions *syncmap.Map[Key, *Session]
	waits    atomic.Int64
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock sets the Manager's source of the current time.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithExpiryObserver reports each expired wait or session to obs.
func WithExpiryObserver(obs metrics.Observer) Option {
	return func(m *Manager) { m.expired = obs }
}

// New creates a Manager that sends prompts through r.
func New(r message.Replier, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		reply:    r,
		log:      log,
		now:      time.Now,
		pending:  syncmap.New[Key, *pending](),
		sessions: syncmap.New[Key, *Session](),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Wait registers h to receive the next message from the sender of msg in the
// same conversation. Any wait already pending for that slot is replaced and
// its continuation never runs. If opts has a prompt, it is sent first, and
// Wait returns the ID the transport assigned it.
func (m *Manager) Wait(ctx context.Context, msg *message.Received, h Handler, opts Options) (string, error) {
	key := KeyOf(msg)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var id string
	if opts.Prompt != "" {
		var err error
		id, err = m.reply.Reply(ctx, msg, opts.Prompt)
		if err != nil {
			return "", fmt.Errorf("couldn't send prompt: %w", err)
		}
	}
	p := &pending{
		handler:  h,
		prompt:   opts.Prompt,
		promptID: id,
		expires:  m.now().Add(timeout),
	}
	if _, replaced := m.pending.Swap(key, p); replaced {
		m.log.DebugContext(ctx, "replaced pending context", slog.String("key", key.String()))
	}
	m.waits.Add(1)
	m.log.DebugContext(ctx, "waiting for input", slog.String("key", key.String()), slog.Duration("timeout", timeout), slog.String("prompt", id))
	return id, nil
}

// Handle checks whether msg answers a pending wait. If it does, the wait is
// removed and its continuation runs before Handle returns true. Expired waits
// are discarded, and waits that require a quoted reply ignore messages that
// don't quote the prompt.
func (m *Manager) Handle(ctx context.Context, msg *message.Received) bool {
	key := KeyOf(msg)
	p, ok := m.pending.Load(key)
	if !ok {
		return false
	}
	if !m.now().Before(p.expires) {
		if _, ok := m.pending.DeleteIf(key, same(p)); ok {
			m.expire(ctx, "context", key)
		}
		return false
	}
	if p.promptID != "" {
		ref, ok := msg.ReplyTo()
		if !ok || ref != p.promptID {
			return false
		}
	}
	// Remove before running so that the continuation can wait again.
	if _, ok := m.pending.DeleteIf(key, same(p)); !ok {
		// Consumed or replaced concurrently.
		return false
	}
	text := msg.Text()
	m.log.DebugContext(ctx, "handling context reply", slog.String("key", key.String()))
	m.run(ctx, key, p.handler, msg, text)
	return true
}

func (m *Manager) run(ctx context.Context, key Key, h Handler, msg *message.Received, text string) {
	defer func() {
		if r := recover(); r != nil {
			m.log.ErrorContext(ctx, "context handler panicked",
				slog.String("key", key.String()),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	h(ctx, msg, text)
}

func (m *Manager) expire(ctx context.Context, what string, key Key) {
	m.log.DebugContext(ctx, "expired", slog.String("kind", what), slog.String("key", key.String()))
	if m.expired != nil {
		m.expired.Observe(1, what)
	}
}

func same[T comparable](p T) func(T) bool {
	return func(q T) bool { return p == q }
}

// Cancel discards any wait pending for key.
func (m *Manager) Cancel(key Key) {
	m.pending.Delete(key)
}

// HasPending reports whether key has an unexpired wait.
func (m *Manager) HasPending(key Key) bool {
	p, ok := m.pending.Load(key)
	return ok && m.now().Before(p.expires)
}

// Len returns the number of waits held, including expired ones not yet swept.
func (m *Manager) Len() int {
	return m.pending.Len()
}

// Waits returns the total number of waits registered.
func (m *Manager) Waits() int64 {
	return m.waits.Load()
}

// Sweep removes every wait and session that expired before now.
// It returns the number removed.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()
	n := 0
	for k, p := range m.pending.All() {
		if now.Before(p.expires) {
			continue
		}
		if _, ok := m.pending.DeleteIf(k, same(p)); ok {
			m.expire(ctx, "context", k)
			n++
		}
	}
	for k, s := range m.sessions.All() {
		if now.Before(s.Expires()) {
			continue
		}
		if _, ok := m.sessions.DeleteIf(k, same(s)); ok {
			m.expire(ctx, "session", k)
			n++
		}
	}
	return n
}

// Run sweeps expired entries every interval until ctx is canceled.
func (m *Manager) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(ctx); n > 0 {
				m.log.DebugContext(ctx, "swept expired contexts", slog.Int("count", n))
			}
		}
	}
}
