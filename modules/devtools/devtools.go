// Package devtools provides commands for inspecting the bot's view of chat.
package devtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/zephyrtronium/hitori/command"
	"github.com/zephyrtronium/hitori/message"
)

// Module is the devtools module.
type Module struct{}

// New creates the devtools module.
func New() *Module {
	return &Module{}
}

func (*Module) Name() string { return "devtools" }

func (*Module) Init(ctx context.Context, robo *command.Robot) error { return nil }

func (*Module) Commands() []command.Spec {
	return []command.Spec{
		{
			Path:        []string{"message-info"},
			Description: "Describe the message that invoked the command.",
			Usage:       []string{"devtools message-info"},
			Permission:  "devtools.message-info",
			Func:        messageInfo,
		},
		{
			Path:        []string{"contexts"},
			Description: "Count pending conversations.",
			Usage:       []string{"devtools contexts"},
			Permission:  "devtools.contexts",
			Func:        contexts,
		},
	}
}

func messageInfo(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	robo.Reply(ctx, call.Message, Describe(call))
	return nil
}

// Describe formats the fields of an invocation's message.
func Describe(call *command.Invocation) string {
	m := call.Message
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", m.ID)
	fmt.Fprintf(&b, "kind: %v\n", m.Kind)
	if m.Group != "" {
		fmt.Fprintf(&b, "group: %s\n", m.Group)
	}
	fmt.Fprintf(&b, "sender: %s (%s)\n", m.Sender, m.Name)
	fmt.Fprintf(&b, "elevated: %t\n", m.Elevated)
	roles := make([]string, len(call.Roles))
	for i, r := range call.Roles {
		roles[i] = string(r)
	}
	fmt.Fprintf(&b, "roles: %s\n", strings.Join(roles, ", "))
	b.WriteString("segments:")
	for i, s := range m.Segments {
		switch s.Kind {
		case message.Text:
			fmt.Fprintf(&b, "\n%d. text %q", i+1, s.Text)
		case message.Reply:
			fmt.Fprintf(&b, "\n%d. reply to %s", i+1, s.Ref)
		default:
			fmt.Fprintf(&b, "\n%d. other (%s)", i+1, s.Text)
		}
	}
	return b.String()
}

func contexts(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	robo.Reply(ctx, call.Message, fmt.Sprintf("Pending contexts: %d. Collection sessions: %d.", robo.Convo.Len(), robo.Convo.Sessions()))
	return nil
}
