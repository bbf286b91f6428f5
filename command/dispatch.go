package command

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/zephyrtronium/hitori/convo"
	"github.com/zephyrtronium/hitori/message"
)

// Outcome is the result of dispatching a message.
type Outcome int

const (
	// Ignored means no command matched bare text.
	Ignored Outcome = iota
	// Unknown means no command matched a prefixed invocation.
	Unknown
	// Executed means the command ran and returned without error.
	Executed
	// Awaiting means the command is waiting on further messages.
	Awaiting
	// RejectedPermission means the invoker lacked the command's permission.
	RejectedPermission
	// RejectedScope means the command cannot be used in that conversation.
	RejectedScope
	// Failed means the command returned an error or panicked, or a prompt
	// could not be sent.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Unknown:
		return "unknown"
	case Executed:
		return "executed"
	case Awaiting:
		return "awaiting"
	case RejectedPermission:
		return "rejected_permission"
	case RejectedScope:
		return "rejected_scope"
	case Failed:
		return "failed"
	}
	return "Outcome(" + strconv.Itoa(int(o)) + ")"
}

func (r *Registry) observe(o Outcome) Outcome {
	if r.cfg.Outcomes != nil {
		r.cfg.Outcomes.Observe(1, o.String())
	}
	return o
}

// HandleCommand runs the prefixed command named by word and args.
func (r *Registry) HandleCommand(ctx context.Context, msg *message.Received, word string, args []string) Outcome {
	e, rest := r.Resolve(word, args)
	if e == nil {
		r.robo.Log.InfoContext(ctx, "unknown command", slog.String("command", word), slog.String("sender", msg.Sender))
		r.robo.Reply(ctx, msg, UnknownText)
		return r.observe(Unknown)
	}
	return r.observe(r.run(ctx, msg, e, rest))
}

// HandlePlain matches bare text against no-prefix and regex commands, in that
// order. No-prefix commands are tried longest name first. Regex commands are
// tried in registration order, and the first match wins. Text which matches
// nothing is passed to listeners.
func (r *Registry) HandlePlain(ctx context.Context, msg *message.Received, text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Ignored
	}
	for _, e := range r.noPrefix {
		if text == e.Name {
			return r.observe(r.run(ctx, msg, e, nil))
		}
		if rest, ok := strings.CutPrefix(text, e.Name+" "); ok {
			return r.observe(r.run(ctx, msg, e, strings.Fields(rest)))
		}
	}
	for _, e := range r.regex {
		m := e.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return r.observe(r.run(ctx, msg, e, m[1:]))
	}
	r.notify(ctx, msg, text)
	return Ignored
}

func (r *Registry) notify(ctx context.Context, msg *message.Received, text string) {
	for _, l := range r.listen {
		func() {
			defer func() {
				if x := recover(); x != nil {
					r.robo.Log.ErrorContext(ctx, "listener panicked", slog.String("module", l.Name()), slog.Any("err", x))
				}
			}()
			if err := l.OnMessage(ctx, r.robo, msg, text); err != nil {
				r.robo.Log.ErrorContext(ctx, "listener failed", slog.String("module", l.Name()), slog.Any("err", err))
			}
		}()
	}
}

// run authorizes an invocation and runs it or begins its behavior.
func (r *Registry) run(ctx context.Context, msg *message.Received, e *Entry, args []string) Outcome {
	p := msg.Principal()
	if !r.robo.Perms.Has(p, e.Permission) {
		r.robo.Log.DebugContext(ctx, "permission denied",
			slog.String("command", e.Name),
			slog.String("user", p.User),
			slog.String("group", p.Group),
			slog.Any("roles", r.robo.Perms.Roles(p)),
			slog.String("required", e.Permission),
		)
		r.robo.Reply(ctx, msg, DeniedText)
		return RejectedPermission
	}
	if !e.Scope.allows(msg.Kind) {
		hint := e.ScopeHint
		if hint == "" {
			hint = r.cfg.PrivateHint
			if e.Scope == GroupOnly {
				hint = r.cfg.GroupHint
			}
		}
		r.robo.Reply(ctx, msg, hint)
		return RejectedScope
	}
	switch b := e.Behavior.(type) {
	case AwaitParam:
		if b.Index < len(args) && args[b.Index] != "" {
			return r.invoke(ctx, msg, e, args, nil)
		}
		return r.await(ctx, msg, e, args, b)
	case Collect:
		return r.collect(ctx, msg, e, args, b)
	case Confirm:
		return r.confirm(ctx, msg, e, args, b)
	}
	return r.invoke(ctx, msg, e, args, nil)
}

// invoke runs a command's function, recovering failures.
func (r *Registry) invoke(ctx context.Context, msg *message.Received, e *Entry, args, collected []string) (o Outcome) {
	call := Invocation{
		Entry:     e,
		Message:   msg,
		Args:      args,
		Collected: collected,
		Roles:     r.robo.Perms.Roles(msg.Principal()),
	}
	log := r.robo.Log.With(slog.String("command", e.Name), slog.String("sender", msg.Sender))
	log.DebugContext(ctx, "executing command", slog.Any("args", args), slog.Int("collected", len(collected)))
	start := time.Now()
	defer func() {
		dur := time.Since(start)
		if r.cfg.Latency != nil {
			r.cfg.Latency.Observe(dur.Seconds(), e.Name)
		}
		if x := recover(); x != nil {
			log.ErrorContext(ctx, "command panicked", slog.Any("err", x), slog.String("stack", string(debug.Stack())))
			r.robo.Reply(ctx, msg, FailedText)
			o = Failed
			return
		}
		log.DebugContext(ctx, "command finished", slog.Duration("took", dur))
	}()
	if err := e.Func(ctx, r.robo, &call); err != nil {
		log.ErrorContext(ctx, "command failed", slog.Any("err", err))
		r.robo.Reply(ctx, msg, FailedText)
		return Failed
	}
	return Executed
}

func (r *Registry) waitFailed(ctx context.Context, e *Entry, err error) Outcome {
	r.robo.Log.ErrorContext(ctx, "couldn't wait for input", slog.String("command", e.Name), slog.Any("err", err))
	return Failed
}

// await prompts for a missing argument.
func (r *Registry) await(ctx context.Context, msg *message.Received, e *Entry, args []string, b AwaitParam) Outcome {
	h := func(ctx context.Context, _ *message.Received, text string) {
		if b.Validate != nil {
			if err := b.Validate(text); err != nil {
				r.robo.Reply(ctx, msg, err.Error())
				r.observe(Failed)
				return
			}
		}
		full := make([]string, max(len(args), b.Index+1))
		copy(full, args)
		full[b.Index] = text
		r.observe(r.invoke(ctx, msg, e, full, nil))
	}
	_, err := r.robo.Convo.Wait(ctx, msg, h, convo.Options{Prompt: b.Prompt, Timeout: b.Timeout})
	if err != nil {
		return r.waitFailed(ctx, e, err)
	}
	return Awaiting
}

// collect gathers messages until the stop word or maximum count.
func (r *Registry) collect(ctx context.Context, msg *message.Received, e *Entry, args []string, b Collect) Outcome {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultCollectTimeout
	}
	key := convo.KeyOf(msg)
	s := r.robo.Convo.Begin(key, timeout)
	var step convo.Handler
	wait := func(ctx context.Context, prompt string) error {
		rem := r.robo.Convo.Remaining(s)
		if rem <= 0 {
			r.robo.Convo.End(key)
			return nil
		}
		_, err := r.robo.Convo.Wait(ctx, msg, step, convo.Options{Prompt: prompt, Timeout: rem})
		if err != nil {
			r.robo.Convo.End(key)
		}
		return err
	}
	next := func(ctx context.Context, prompt string) {
		if err := wait(ctx, prompt); err != nil {
			r.observe(r.waitFailed(ctx, e, err))
		}
	}
	finish := func(ctx context.Context) {
		items := s.Items()
		r.robo.Convo.End(key)
		r.observe(r.invoke(ctx, msg, e, args, items))
	}
	step = func(ctx context.Context, _ *message.Received, text string) {
		if cur, ok := r.robo.Convo.Session(key); !ok || cur != s {
			// Expired or superseded by another collection.
			return
		}
		switch {
		case b.StopWord != "" && text == b.StopWord:
			if n := s.Len(); n < b.MinCount {
				next(ctx, fmt.Sprintf(TooFewText, b.MinCount, n, b.StopWord))
				return
			}
			finish(ctx)
		case text == "":
			next(ctx, "")
		default:
			n := s.Add(text)
			if b.MaxCount > 0 && n >= b.MaxCount {
				finish(ctx)
				return
			}
			next(ctx, strings.ReplaceAll(b.ContinuePrompt, "{count}", strconv.Itoa(n)))
		}
	}
	if err := wait(ctx, b.Prompt); err != nil {
		return r.waitFailed(ctx, e, err)
	}
	return Awaiting
}

// confirm asks for confirmation. An answer that is neither a confirm nor a
// cancel word ends the flow after asking the invoker to answer properly.
func (r *Registry) confirm(ctx context.Context, msg *message.Received, e *Entry, args []string, b Confirm) Outcome {
	yes, no := b.ConfirmWords, b.CancelWords
	if len(yes) == 0 {
		yes = DefaultConfirmWords
	}
	if len(no) == 0 {
		no = DefaultCancelWords
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	hint := b.CancelHint
	if hint == "" {
		hint = CanceledText
	}
	prompt := b.Prompt
	if prompt == "" {
		prompt = fmt.Sprintf("Run %s? (%s/%s)", e.Name, yes[0], no[0])
	}
	h := func(ctx context.Context, _ *message.Received, text string) {
		switch {
		case slices.Contains(yes, text):
			r.observe(r.invoke(ctx, msg, e, args, nil))
		case slices.Contains(no, text):
			r.robo.Reply(ctx, msg, hint)
		default:
			all := append(slices.Clone(yes), no...)
			r.robo.Reply(ctx, msg, fmt.Sprintf(RetryText, strings.Join(all, ", ")))
		}
	}
	_, err := r.robo.Convo.Wait(ctx, msg, h, convo.Options{Prompt: prompt, Timeout: timeout})
	if err != nil {
		return r.waitFailed(ctx, e, err)
	}
	return Awaiting
}
