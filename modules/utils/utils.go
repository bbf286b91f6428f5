// Package utils provides the bot's basic utility commands.
package utils

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zephyrtronium/hitori/command"
	"github.com/zephyrtronium/hitori/usage"
)

// Module is the utils module.
type Module struct {
	now func() time.Time
}

// New creates the utils module.
func New() *Module {
	return &Module{now: time.Now}
}

func (*Module) Name() string { return "utils" }

func (*Module) Init(ctx context.Context, robo *command.Robot) error {
	if robo.Usage == nil {
		robo.Log.WarnContext(ctx, "no usage store; ping will not be recorded")
	}
	return nil
}

func (m *Module) Commands() []command.Spec {
	return []command.Spec{
		{
			Name:        "ping",
			Description: "Check whether the bot is online.",
			Permission:  "utils.ping",
			Func:        m.ping,
		},
		{
			Name:        "last-ping",
			Description: "Show when the bot was last pinged.",
			Permission:  "utils.last-ping",
			Func:        lastPing,
		},
		{
			Name:        "help",
			Description: "List commands, or describe one.",
			Usage:       []string{"help", "help <command>"},
			Examples:    []string{"help", "help ctx param"},
			Func:        help,
		},
	}
}

func (m *Module) ping(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	if robo.Usage != nil {
		r := usage.Record{
			User:    call.Message.Sender,
			Group:   call.Message.Group,
			Command: call.Entry.Name,
			Time:    m.now(),
		}
		if err := robo.Usage.Add(ctx, r); err != nil {
			// Still answer; the record is a nicety.
			robo.Log.ErrorContext(ctx, "couldn't record ping", slog.Any("err", err))
		}
	}
	robo.Reply(ctx, call.Message, "pong!")
	return nil
}

func lastPing(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	if robo.Usage == nil {
		robo.Reply(ctx, call.Message, "Ping history isn't available.")
		return nil
	}
	r, ok, err := robo.Usage.Last(ctx, "ping")
	if err != nil {
		return fmt.Errorf("couldn't get last ping: %w", err)
	}
	if !ok {
		robo.Reply(ctx, call.Message, "Nobody has pinged yet.")
		return nil
	}
	robo.Reply(ctx, call.Message, "Last ping was at "+r.Time.Format(time.DateTime))
	return nil
}

func help(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	reg := robo.Commands
	if len(call.Args) != 0 {
		name := strings.Join(call.Args, " ")
		e, ok := reg.Lookup(name)
		if !ok {
			robo.Reply(ctx, call.Message, fmt.Sprintf("No command named %q.", name))
			return nil
		}
		robo.Reply(ctx, call.Message, describe(e))
		return nil
	}
	p := call.Message.Principal()
	var b strings.Builder
	b.WriteString("Commands:")
	for _, mod := range reg.Modules() {
		var names []string
		for _, e := range reg.ByModule(mod) {
			if robo.Perms.Has(p, e.Permission) {
				names = append(names, display(e))
			}
		}
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", mod, strings.Join(names, ", "))
	}
	robo.Reply(ctx, call.Message, b.String())
	return nil
}

func display(e *command.Entry) string {
	switch e.Trigger {
	case command.NoPrefix:
		return fmt.Sprintf("%q", e.Name)
	case command.Regex:
		return "/" + e.Pattern.String() + "/"
	}
	return e.Name
}

func describe(e *command.Entry) string {
	var b strings.Builder
	b.WriteString(display(e))
	if e.Description != "" {
		b.WriteString(": " + e.Description)
	}
	for _, u := range e.Usage {
		b.WriteString("\nUsage: " + u)
	}
	for _, x := range e.Examples {
		b.WriteString("\nExample: " + x)
	}
	if e.Permission != "" {
		b.WriteString("\nPermission: " + e.Permission)
	}
	switch e.Scope {
	case command.PrivateOnly:
		b.WriteString("\nPrivate chat only.")
	case command.GroupOnly:
		b.WriteString("\nGroup chat only.")
	}
	return b.String()
}
