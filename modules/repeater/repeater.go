// Package repeater joins in when several people in a group say the same thing.
package repeater

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/zephyrtronium/hitori/command"
	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/syncmap"
)

// DefaultNeed is the number of distinct consecutive senders required to
// repeat a message.
const DefaultNeed = 3

// Module is the repeater module.
type Module struct {
	need   int
	states *syncmap.Map[string, *state]
}

type state struct {
	mu      sync.Mutex
	content string
	senders []string
}

// New creates a repeater requiring need distinct consecutive senders.
// Values below 2 use DefaultNeed.
func New(need int) *Module {
	if need < 2 {
		need = DefaultNeed
	}
	return &Module{need: need, states: syncmap.New[string, *state]()}
}

func (*Module) Name() string { return "repeater" }

func (*Module) Commands() []command.Spec { return nil }

func (*Module) Init(ctx context.Context, robo *command.Robot) error { return nil }

// OnMessage tracks the run of identical messages in a group. Once need
// different users have sent it consecutively, the bot says it too.
func (m *Module) OnMessage(ctx context.Context, robo *command.Robot, msg *message.Received, text string) error {
	if msg.Kind != message.Group || text == "" {
		return nil
	}
	st := m.state(msg.Group)
	if !st.observe(msg.Sender, text, m.need) {
		return nil
	}
	robo.Log.DebugContext(ctx, "repeating", slog.String("group", msg.Group), slog.String("text", text))
	_, err := robo.Replier.Reply(ctx, msg, text)
	return err
}

func (m *Module) state(group string) *state {
	if st, ok := m.states.Load(group); ok {
		return st
	}
	st, _ := m.states.LoadOrStore(group, new(state))
	return st
}

// observe records a message and reports whether to repeat it.
func (st *state) observe(sender, text string, need int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.content != text || slices.Contains(st.senders, sender) {
		// A new message, or someone repeating themselves, starts a new run.
		st.content = text
		st.senders = append(st.senders[:0], sender)
		return false
	}
	st.senders = append(st.senders, sender)
	if len(st.senders) < need {
		return false
	}
	st.content = ""
	st.senders = st.senders[:0]
	return true
}
