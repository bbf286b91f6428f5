// Package commandtest provides a dispatch harness for testing modules.
package commandtest

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/zephyrtronium/hitori/command"
	"github.com/zephyrtronium/hitori/convo"
	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/perm"
	"github.com/zephyrtronium/hitori/usage"
)

// Replier records replies.
type Replier struct {
	mu   sync.Mutex
	sent []string
	// IDs makes the replier assign an ID to each reply.
	IDs bool
}

// Reply records text.
func (r *Replier) Reply(ctx context.Context, msg *message.Received, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	if !r.IDs {
		return "", nil
	}
	return "reply" + strconv.Itoa(len(r.sent)), nil
}

// Take returns the replies recorded since the last call.
func (r *Replier) Take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sent
	r.sent = nil
	return s
}

// Harness is a robot with a registry and recorded replies.
type Harness struct {
	Robot    *command.Robot
	Registry *command.Registry
	Replies  *Replier

	seq int
}

// New creates a harness with the given permissions and usage store and
// registers mods. store may be nil.
func New(t *testing.T, cfg perm.Config, store usage.Store, mods ...command.Module) *Harness {
	t.Helper()
	r := &Replier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	robo := &command.Robot{
		Log:     log,
		Replier: r,
		Convo:   convo.New(r, log),
		Perms:   perm.New(cfg),
		Usage:   store,
	}
	reg := command.New(robo, command.Config{})
	for _, m := range mods {
		if err := reg.Register(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}
	return &Harness{Robot: robo, Registry: reg, Replies: r}
}

// Send dispatches msg with the command prefix ".".
func (h *Harness) Send(ctx context.Context, msg *message.Received) command.Outcome {
	if h.Robot.Convo.Handle(ctx, msg) {
		return command.Executed
	}
	text := msg.Text()
	if rest, ok := strings.CutPrefix(text, "."); ok {
		words := strings.Fields(rest)
		if len(words) == 0 {
			return command.Ignored
		}
		return h.Registry.HandleCommand(ctx, msg, words[0], words[1:])
	}
	return h.Registry.HandlePlain(ctx, msg, text)
}

// Group creates a group message.
func (h *Harness) Group(group, user, text string) *message.Received {
	h.seq++
	return &message.Received{
		ID:       strconv.Itoa(h.seq),
		Kind:     message.Group,
		To:       group,
		Sender:   user,
		Group:    group,
		Name:     user,
		Segments: []message.Segment{{Kind: message.Text, Text: text}},
	}
}

// Private creates a private message.
func (h *Harness) Private(user, text string) *message.Received {
	h.seq++
	return message.Plain(strconv.Itoa(h.seq), user, text)
}
