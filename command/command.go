package command

import (
	"context"

	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/perm"
)

// Invocation is a command invocation. An Invocation and its fields must not
// be modified or retained by any command.
type Invocation struct {
	// Entry is the command being invoked.
	Entry *Entry
	// Message is the message which triggered the invocation. For commands
	// which waited on follow-up messages, it is still the original message.
	// It is always non-nil, but not all fields are guaranteed to be populated.
	Message *message.Received
	// Args is the positional arguments to the command. For regex triggers,
	// these are the capture groups.
	Args []string
	// Collected is the sequence of messages gathered by a collection, or nil
	// for commands which don't collect.
	Collected []string
	// Roles is the invoker's roles.
	Roles []perm.Role
}

// Arg returns the i'th argument, or the empty string if there are fewer.
func (c *Invocation) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Func executes a command. A Func that returns an error or panics causes the
// invoker to receive a generic failure reply.
type Func func(ctx context.Context, robo *Robot, call *Invocation) error
