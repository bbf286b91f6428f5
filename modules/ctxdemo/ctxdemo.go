// Package ctxdemo provides commands exercising every conversational behavior.
package ctxdemo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zephyrtronium/hitori/command"
)

// Module is the ctx module.
type Module struct{}

// New creates the ctx module.
func New() *Module {
	return &Module{}
}

func (*Module) Name() string { return "ctx" }

func (*Module) Init(ctx context.Context, robo *command.Robot) error { return nil }

func (*Module) Commands() []command.Spec {
	return []command.Spec{
		{
			Name:        "echo",
			Description: "Repeat a message.",
			Usage:       []string{"echo [text]"},
			Examples:    []string{"echo hello"},
			Permission:  "context-test.echo",
			Behavior:    command.AwaitParam{Prompt: "💬 Enter the text to repeat:"},
			Func:        echo,
		},
		{
			Name:        "say",
			Description: "Collect several messages and replay them as a transcript.",
			Usage:       []string{"say"},
			Permission:  "context-test.say",
			Behavior: command.Collect{
				StopWord:       "#stop",
				Prompt:         "💬 Collecting messages. Send #stop when you're done:",
				ContinuePrompt: "✅ Recorded message {count}. Keep going or send #stop.",
				Timeout:        command.DefaultCollectTimeout,
				MinCount:       1,
			},
			Func: say,
		},
		{
			Name:        "test-confirm",
			Description: "Ask for confirmation before doing nothing in particular.",
			Permission:  "context-test.confirm",
			Behavior: command.Confirm{
				Prompt:     "⚠️ Really do it? Reply Y to confirm or N to cancel.",
				CancelHint: "❌ Canceled.",
			},
			Func: confirmed("✅ Done!"),
		},
		{
			Name:        "set-age",
			Description: "Set your age.",
			Usage:       []string{"set-age [age]"},
			Examples:    []string{"set-age 17"},
			Permission:  "context-test.age",
			Behavior: command.AwaitParam{
				Prompt:   "How old are you (1-150)?",
				Validate: validAge,
			},
			Func: setAge,
		},
		{
			Path:        []string{"test"},
			Description: "Check that sub-commands resolve.",
			Permission:  "context-test.sub",
			Func:        confirmed("✅ Sub-command works!"),
		},
		{
			Path:        []string{"param"},
			Description: "Sub-command with a prompted parameter.",
			Permission:  "context-test.sub",
			Behavior:    command.AwaitParam{Prompt: "💬 Enter a parameter:"},
			Func:        param,
		},
		{
			Path:        []string{"collect"},
			Description: "Sub-command collecting messages.",
			Permission:  "context-test.sub",
			Behavior: command.Collect{
				StopWord:       "#done",
				Prompt:         "📝 Collecting. Send #done to finish:",
				ContinuePrompt: "✅ {count}",
				MinCount:       1,
			},
			Func: list,
		},
		{
			Path:        []string{"confirm"},
			Description: "Sub-command asking for confirmation.",
			Permission:  "context-test.sub",
			Behavior: command.Confirm{
				Prompt:     "⚠️ Sub-command confirmation. Reply Y to confirm:",
				CancelHint: "❌ Sub-command canceled.",
			},
			Func: confirmed("✅ Sub-command confirmed!"),
		},
	}
}

func echo(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	robo.Reply(ctx, call.Message, "🔊 "+strings.Join(call.Args, " "))
	return nil
}

func say(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	name := call.Message.Name
	if name == "" {
		name = call.Message.Sender
	}
	var b strings.Builder
	for i, s := range call.Collected {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", name, s)
	}
	robo.Reply(ctx, call.Message, b.String())
	return nil
}

func confirmed(text string) command.Func {
	return func(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
		robo.Reply(ctx, call.Message, text)
		return nil
	}
}

func validAge(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("Please enter a number.")
	}
	if n < 1 || n > 150 {
		return errors.New("Age must be between 1 and 150.")
	}
	return nil
}

func setAge(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	robo.Reply(ctx, call.Message, fmt.Sprintf("✅ Your age is now %s.", call.Arg(0)))
	return nil
}

func param(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	robo.Reply(ctx, call.Message, "✅ Sub-command parameter: "+call.Arg(0))
	return nil
}

func list(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Collected %d:", len(call.Collected))
	for i, s := range call.Collected {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s)
	}
	robo.Reply(ctx, call.Message, b.String())
	return nil
}
