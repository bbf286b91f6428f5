package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"gitlab.com/zephyrtronium/tmi"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// tmiClient is the Twitch chat connection state.
type tmiClient struct {
	// send is the channel of outgoing messages.
	send chan *tmi.Message
	// recv is the channel of incoming messages.
	recv chan *tmi.Message
	// nick is the bot's login.
	nick string
	// token is the OAuth2 access token.
	token string
	// channels is the channels to join.
	channels []string
	// rate is the global send rate limit.
	rate *rate.Limiter
}

func loadTMI(cfg TMICfg) (*tmiClient, error) {
	tok, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("couldn't read TMI token: %w", err)
	}
	every, num := cfg.Rate.Every, cfg.Rate.Num
	if every <= 0 || num <= 0 {
		// Twitch's limit for unverified bots.
		every, num = 30, 20
	}
	t := tmiClient{
		send:     make(chan *tmi.Message, 1),
		recv:     make(chan *tmi.Message, 8), // 8 is enough for on-connect msgs
		nick:     strings.ToLower(cfg.Nick),
		token:    strings.TrimPrefix(strings.TrimSpace(string(tok)), "oauth:"),
		channels: cfg.Channels,
		rate:     rate.NewLimiter(rate.Every(fseconds(every)/time.Duration(num)), num),
	}
	return &t, nil
}

func (robo *Robot) twitch(ctx context.Context, group *errgroup.Group, t *tmiClient) error {
	cfg := tmi.ConnectConfig{
		Dial:         new(tls.Dialer).DialContext,
		RetryWait:    tmi.RetryList(true, 0, time.Second, time.Minute, 5*time.Minute),
		Nick:         t.nick,
		Pass:         "oauth:" + t.token,
		Capabilities: []string{"twitch.tv/commands", "twitch.tv/tags"},
		Timeout:      300 * time.Second,
	}
	go robo.tmiLoop(ctx, group, t)
	tmi.Connect(ctx, cfg, tmi.Log(log.Default(), false), t.send, t.recv)
	return ctx.Err()
}

func (robo *Robot) tmiLoop(ctx context.Context, group *errgroup.Group, t *tmiClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-t.recv:
			if !ok {
				return
			}
			switch msg.Command {
			case "PRIVMSG":
				group.Go(func() error {
					robo.tmiMessage(ctx, msg)
					return nil
				})
			case "NOTICE":
				robo.log.InfoContext(ctx, "TMI notice", slog.String("channel", msg.To()), slog.String("text", msg.Trailing))
			case "GLOBALUSERSTATE":
				robo.log.InfoContext(ctx, "connected to TMI", slog.String("GLOBALUSERSTATE", msg.Tags))
			case "366": // End NAMES
				if len(msg.Params) > 1 {
					robo.log.InfoContext(ctx, "joined channel", slog.String("channel", msg.Params[1]))
				}
			case "376": // End MOTD
				go robo.joinTwitch(ctx, t)
			}
		}
	}
}

func (robo *Robot) joinTwitch(ctx context.Context, t *tmiClient) {
	ls := t.channels
	burst := 20
	for len(ls) > 0 {
		l := ls[:min(burst, len(ls))]
		ls = ls[len(l):]
		msg := tmi.Message{
			Command: "JOIN",
			Params:  []string{strings.Join(l, ",")},
		}
		select {
		case <-ctx.Done():
			return
		case t.send <- &msg:
			// do nothing
		}
		if len(ls) > 0 {
			// Per https://dev.twitch.tv/docs/irc/#rate-limits we get 20 join
			// attempts per ten seconds. Use a slightly longer delay to ensure
			// we don't get globaled by clock drift.
			select {
			case <-ctx.Done():
				return
			case <-time.After(11 * time.Second):
			}
		}
	}
}
