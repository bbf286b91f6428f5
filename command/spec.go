package command

import (
	"context"
	"regexp"
	"time"

	"github.com/zephyrtronium/hitori/message"
)

// Spec describes a command as a module declares it.
type Spec struct {
	// Name is the command name. For no-prefix triggers it is the phrase that
	// triggers the command. Multi-word names are allowed; words are separated
	// by single spaces. Regex triggers may leave Name empty, in which case
	// the pattern is used.
	Name string
	// Path makes the command a sub-command of its module. The command's name
	// becomes the module name followed by the path words. Name is ignored
	// when Path is not empty.
	Path []string
	// Description is a short summary of what the command does.
	Description string
	// Usage is the command's usage strings.
	Usage []string
	// Examples is example invocations.
	Examples []string
	// Permission is the permission required to invoke the command.
	// Empty means anyone may.
	Permission string
	// Trigger is how the command is matched against messages.
	Trigger Trigger
	// Pattern is the expression for Regex triggers.
	Pattern *regexp.Regexp
	// Scope limits where the command may be used.
	Scope Scope
	// ScopeHint is the reply when the command is used outside its scope.
	// Empty uses the registry's default for the scope.
	ScopeHint string
	// Behavior is what to do before running Func. Nil runs it immediately.
	Behavior Behavior
	// Func runs the command.
	Func Func
}

// Trigger is a way of matching a command.
type Trigger int

const (
	// Prefixed commands are invoked by the command prefix followed by the
	// command name.
	Prefixed Trigger = iota
	// NoPrefix commands are invoked by messages which are the name or begin
	// with the name followed by a space.
	NoPrefix
	// Regex commands are invoked by messages matching a pattern.
	Regex
)

func (t Trigger) String() string {
	switch t {
	case Prefixed:
		return "prefixed"
	case NoPrefix:
		return "no-prefix"
	case Regex:
		return "regex"
	}
	return "unknown"
}

// Scope is where a command may be used.
type Scope int

const (
	Anywhere Scope = iota
	PrivateOnly
	GroupOnly
)

func (s Scope) String() string {
	switch s {
	case Anywhere:
		return "anywhere"
	case PrivateOnly:
		return "private"
	case GroupOnly:
		return "group"
	}
	return "unknown"
}

func (s Scope) allows(k message.Kind) bool {
	switch s {
	case PrivateOnly:
		return k == message.Private
	case GroupOnly:
		return k == message.Group
	}
	return true
}

// Behavior is a conversational step taken before a command runs.
// It is one of [AwaitParam], [Collect], or [Confirm].
type Behavior interface {
	behavior()
}

// AwaitParam prompts for a positional argument when the invocation lacks it.
// The next message from the invoker fills the argument.
type AwaitParam struct {
	// Prompt is sent when the argument is missing.
	Prompt string
	// Index is the position of the required argument.
	Index int
	// Timeout is how long to wait. Zero means [convo.DefaultTimeout].
	Timeout time.Duration
	// Validate checks the supplied value. A non-nil error rejects the value,
	// and its message is sent to the invoker. The wait is not retried.
	Validate func(string) error
}

// Collect gathers messages from the invoker until a stop word or a maximum
// count, then runs the command with the collected messages.
type Collect struct {
	// StopWord ends the collection.
	StopWord string
	// Prompt is sent when the collection begins.
	Prompt string
	// ContinuePrompt is sent after each collected message. The text {count}
	// is replaced with the number collected so far. Empty sends nothing.
	ContinuePrompt string
	// Timeout is the duration of the whole collection. Zero means five
	// minutes.
	Timeout time.Duration
	// MinCount is the number of messages required before the stop word is
	// accepted.
	MinCount int
	// MaxCount ends the collection automatically when reached. Zero means
	// no limit.
	MaxCount int
}

// DefaultCollectTimeout is the duration of a collection that gives no
// timeout.
const DefaultCollectTimeout = 5 * time.Minute

// Confirm asks the invoker to confirm before running the command.
type Confirm struct {
	// Prompt is the question sent to the invoker.
	Prompt string
	// ConfirmWords are replies that run the command.
	// Empty means [DefaultConfirmWords].
	ConfirmWords []string
	// CancelWords are replies that cancel the command.
	// Empty means [DefaultCancelWords].
	CancelWords []string
	// Timeout is how long to wait. Zero means thirty seconds.
	Timeout time.Duration
	// CancelHint is sent when the invoker cancels.
	CancelHint string
}

var (
	DefaultConfirmWords = []string{"Y", "y", "是", "确认"}
	DefaultCancelWords  = []string{"N", "n", "否", "取消"}
)

// DefaultConfirmTimeout is the wait for a confirmation that gives no timeout.
const DefaultConfirmTimeout = 30 * time.Second

func (AwaitParam) behavior() {}
func (Collect) behavior()    {}
func (Confirm) behavior()    {}

// Module is a named collection of commands.
type Module interface {
	// Name is the module name. Sub-commands are named under it.
	Name() string
	// Commands returns the module's command specs.
	Commands() []Spec
	// Init is called once after the module's commands are registered.
	Init(ctx context.Context, robo *Robot) error
}

// Listener is a module which also observes ordinary chatter.
type Listener interface {
	Module
	// OnMessage is called with messages not consumed by any command or
	// conversation. text is the message's extracted text.
	OnMessage(ctx context.Context, robo *Robot, msg *message.Received, text string) error
}
