package command

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/zephyrtronium/hitori/metrics"
)

// Entry is a registered command.
type Entry struct {
	Spec
	// Name is the canonical name of the command.
	Name string
	// Module is the name of the module which registered the command.
	Module string
	// Sub is whether the command is a sub-command of its module.
	Sub bool
	// Parent is the name the sub-command is under, always the module name.
	Parent string
	// Path is the words of a sub-command after the module name.
	Path []string

	owner Module
}

// Config holds registry settings.
type Config struct {
	// PrivateHint is the default reply to private-only commands used in
	// groups.
	PrivateHint string
	// GroupHint is the default reply to group-only commands used in private.
	GroupHint string
	// Outcomes observes each dispatch outcome by name.
	Outcomes metrics.Observer
	// Latency observes handler execution seconds by command name.
	Latency metrics.Observer
}

// User-facing replies.
const (
	UnknownText     = "Unknown command."
	DeniedText      = "You don't have permission to use this command."
	FailedText      = "Command execution failed."
	PrivateOnlyText = "This command can only be used in private chat."
	GroupOnlyText   = "This command can only be used in group chat."
	CanceledText    = "Canceled."
	RetryText       = "Please reply with one of: %s"
	TooFewText      = "At least %d needed, %d collected so far. Keep going or send %s when done."
)

// Registry holds commands and dispatches messages to them.
//
// Registration must complete before dispatch begins. After that, a Registry
// is safe for concurrent use.
type Registry struct {
	robo *Robot
	cfg  Config

	names    map[string]*Entry
	order    []*Entry
	modules  []Module
	noPrefix []*Entry
	regex    []*Entry
	listen   []Listener
}

// New creates a registry which runs commands with robo.
// It sets robo.Commands to the new registry.
func New(robo *Robot, cfg Config) *Registry {
	if cfg.PrivateHint == "" {
		cfg.PrivateHint = PrivateOnlyText
	}
	if cfg.GroupHint == "" {
		cfg.GroupHint = GroupOnlyText
	}
	r := &Registry{
		robo:  robo,
		cfg:   cfg,
		names: make(map[string]*Entry),
	}
	robo.Commands = r
	return r
}

// Register adds the commands of mod, then initializes it.
// A command whose name is already registered replaces the existing one.
func (r *Registry) Register(ctx context.Context, mod Module) error {
	name := mod.Name()
	var errs []error
	for _, s := range mod.Commands() {
		e, err := entryFor(name, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		e.owner = mod
		if old := r.names[e.Name]; old != nil {
			r.robo.Log.WarnContext(ctx, "command replaced",
				slog.String("command", e.Name),
				slog.String("old", old.Module),
				slog.String("new", name),
			)
			r.remove(old)
		}
		r.names[e.Name] = e
		r.order = append(r.order, e)
		switch e.Trigger {
		case NoPrefix:
			r.noPrefix = append(r.noPrefix, e)
		case Regex:
			r.regex = append(r.regex, e)
		}
		r.robo.Log.DebugContext(ctx, "registered command", slog.String("command", e.Name), slog.String("module", name), slog.String("trigger", e.Trigger.String()))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("couldn't register module %s: %w", name, err)
	}
	// Longest names first so the most specific phrase wins.
	slices.SortStableFunc(r.noPrefix, func(a, b *Entry) int { return cmp.Compare(len(b.Name), len(a.Name)) })
	if !slices.Contains(r.modules, mod) {
		r.modules = append(r.modules, mod)
	}
	if l, ok := mod.(Listener); ok && !slices.Contains(r.listen, l) {
		r.listen = append(r.listen, l)
	}
	if err := mod.Init(ctx, r.robo); err != nil {
		return fmt.Errorf("couldn't initialize module %s: %w", name, err)
	}
	return nil
}

func (r *Registry) remove(e *Entry) {
	del := func(s []*Entry) []*Entry {
		return slices.DeleteFunc(s, func(x *Entry) bool { return x == e })
	}
	r.order = del(r.order)
	r.noPrefix = del(r.noPrefix)
	r.regex = del(r.regex)
}

func entryFor(module string, s Spec) (*Entry, error) {
	if s.Func == nil {
		return nil, fmt.Errorf("command %q has no function", s.Name)
	}
	e := Entry{Spec: s, Module: module}
	if len(s.Path) != 0 {
		var path []string
		for _, p := range s.Path {
			path = append(path, strings.Fields(p)...)
		}
		if len(path) == 0 {
			return nil, fmt.Errorf("sub-command of %s has an empty path", module)
		}
		e.Name = module + " " + strings.Join(path, " ")
		e.Sub = true
		e.Parent = module
		e.Path = path
	} else {
		e.Name = strings.Join(strings.Fields(s.Name), " ")
	}
	switch s.Trigger {
	case Regex:
		if s.Pattern == nil {
			return nil, fmt.Errorf("regex command %q has no pattern", s.Name)
		}
		if e.Name == "" {
			e.Name = s.Pattern.String()
		}
	default:
		if e.Name == "" {
			return nil, errors.New("command has no name")
		}
	}
	switch b := s.Behavior.(type) {
	case Collect:
		if b.StopWord == "" && b.MaxCount <= 0 {
			return nil, fmt.Errorf("collecting command %q has no way to stop", e.Name)
		}
	case AwaitParam:
		if b.Index < 0 {
			return nil, fmt.Errorf("command %q awaits a negative argument index", e.Name)
		}
	}
	return &e, nil
}

// Resolve finds the prefixed command named by the longest leading run of
// words in first followed by rest. It returns the command and the words
// after its name, or nil if there is no such command. No-prefix and regex
// commands are never resolved.
func (r *Registry) Resolve(first string, rest []string) (*Entry, []string) {
	words := append([]string{first}, rest...)
	for n := len(words); n > 0; n-- {
		e := r.names[strings.Join(words[:n], " ")]
		if e == nil || e.Trigger != Prefixed {
			continue
		}
		return e, words[n:]
	}
	return nil, nil
}

// Lookup returns the command with a canonical name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.names[name]
	return e, ok
}

// Commands returns all commands in registration order.
func (r *Registry) Commands() []*Entry {
	return slices.Clone(r.order)
}

// Modules returns the names of registered modules in registration order.
func (r *Registry) Modules() []string {
	s := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		s = append(s, m.Name())
	}
	return s
}

// ByModule returns the commands registered by the named module.
func (r *Registry) ByModule(module string) []*Entry {
	var s []*Entry
	for _, e := range r.order {
		if e.Module == module {
			s = append(s, e)
		}
	}
	return s
}
