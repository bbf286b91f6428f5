package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zephyrtronium/hitori/command"
	"github.com/zephyrtronium/hitori/convo"
	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/metrics"
	"github.com/zephyrtronium/hitori/modules/ctxdemo"
	"github.com/zephyrtronium/hitori/modules/devtools"
	"github.com/zephyrtronium/hitori/modules/fun"
	"github.com/zephyrtronium/hitori/modules/repeater"
	"github.com/zephyrtronium/hitori/modules/utils"
	"github.com/zephyrtronium/hitori/onebot"
	"github.com/zephyrtronium/hitori/perm"
	"github.com/zephyrtronium/hitori/usage"
)

// Robot is the overall state of the bot.
type Robot struct {
	// cfg is the loaded configuration.
	cfg *Config
	// log is the logger.
	log *slog.Logger
	// prefix introduces commands.
	prefix string
	// sweep is the interval between expiry sweeps.
	sweep time.Duration
	// core is the state visible to commands.
	core *command.Robot
	// commands is the command registry.
	commands *command.Registry
	// convo holds pending conversations.
	convo *convo.Manager
	// replies routes replies to transports. It must not be modified after
	// serving begins.
	replies message.Mux
	// metrics are the bot's metrics.
	metrics metrics.Metrics
}

// New creates a bot from its configuration and registers its modules.
func New(ctx context.Context, cfg *Config, store usage.Store, log *slog.Logger) (*Robot, error) {
	m := metrics.New("hitori")
	mux := make(message.Mux)
	cm := convo.New(mux, log, convo.WithExpiryObserver(m.ExpiredCount))
	core := &command.Robot{
		Log:     log,
		Replier: mux,
		Convo:   cm,
		Perms:   perm.New(cfg.RBAC),
		Usage:   store,
	}
	reg := command.New(core, command.Config{
		PrivateHint: cfg.Command.PrivateHint,
		GroupHint:   cfg.Command.GroupHint,
		Outcomes:    m.CommandCount,
		Latency:     m.CommandLatency,
	})
	mods := []command.Module{
		utils.New(),
		ctxdemo.New(),
		devtools.New(),
		fun.New(cfg.Modules.Fun),
		repeater.New(cfg.Modules.Repeater.Need),
	}
	for _, mod := range mods {
		if err := reg.Register(ctx, mod); err != nil {
			return nil, fmt.Errorf("couldn't register module %s: %w", mod.Name(), err)
		}
	}
	log.InfoContext(ctx, "registered commands", slog.Int("count", len(reg.Commands())), slog.Any("modules", reg.Modules()))
	prefix := cfg.Command.Prefix
	if prefix == "" {
		prefix = "."
	}
	sweep := fseconds(cfg.Context.Sweep)
	if sweep <= 0 {
		sweep = 5 * time.Second
	}
	robo := Robot{
		cfg:      cfg,
		log:      log,
		prefix:   prefix,
		sweep:    sweep,
		core:     core,
		commands: reg,
		convo:    cm,
		replies:  mux,
		metrics:  m,
	}
	return &robo, nil
}

// Dispatch handles one inbound message. A message that answers a pending
// conversation is consumed by it and reports Executed. Otherwise, prefixed
// text runs a command, and anything else is matched as bare text.
func (robo *Robot) Dispatch(ctx context.Context, msg *message.Received) command.Outcome {
	robo.metrics.MessagesCount.Observe(1, msg.Service)
	defer func() { robo.metrics.PendingContexts.Observe(float64(robo.convo.Len())) }()
	if robo.convo.Handle(ctx, msg) {
		return command.Executed
	}
	text := msg.Text()
	if word, args, ok := parseCommand(robo.prefix, text); ok {
		robo.log.InfoContext(ctx, "command",
			slog.String("service", msg.Service),
			slog.String("name", word),
			slog.Any("args", args),
			slog.String("sender", msg.Sender),
			slog.String("group", msg.Group),
		)
		return robo.commands.HandleCommand(ctx, msg, word, args)
	}
	return robo.commands.HandlePlain(ctx, msg, text)
}

// serve dispatches each message from recv in its own goroutine.
func (robo *Robot) serve(ctx context.Context, group *errgroup.Group, recv <-chan *message.Received) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-recv:
			if !ok {
				return
			}
			group.Go(func() error {
				robo.Dispatch(ctx, msg)
				return nil
			})
		}
	}
}

// Run connects to each configured transport and serves until ctx is
// canceled or a transport fails.
func (robo *Robot) Run(ctx context.Context) error {
	var tc *tmiClient
	if robo.cfg.TMI.Nick != "" {
		var err error
		tc, err = loadTMI(robo.cfg.TMI)
		if err != nil {
			return err
		}
		robo.replies[message.ServiceTMI] = tc
	}
	var ob *oneBotConn
	if robo.cfg.OneBot.URL != "" {
		ob = new(oneBotConn)
		robo.replies[onebot.Service] = ob
	}
	if tc == nil && ob == nil {
		return errors.New("no transports configured; set up at least one of onebot or tmi")
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		robo.convo.Run(ctx, robo.sweep)
		return nil
	})
	if robo.cfg.HTTP.Listen != "" {
		group.Go(func() error { return robo.api(ctx, robo.cfg.HTTP.Listen) })
	}
	if tc != nil {
		group.Go(func() error { return robo.twitch(ctx, group, tc) })
	}
	if ob != nil {
		group.Go(func() error { return robo.oneBot(ctx, group, ob) })
	}
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		// If the first error is context canceled, then we are shutting down
		// normally in response to a sigint.
		err = nil
	}
	return err
}
