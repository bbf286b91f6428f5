package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/onebot"
)

// oneBotConn replies through the current OneBot connection.
type oneBotConn struct {
	mu sync.Mutex
	c  *onebot.Client
}

func (o *oneBotConn) set(c *onebot.Client) {
	o.mu.Lock()
	o.c = c
	o.mu.Unlock()
}

// Reply sends a reply through the current connection.
func (o *oneBotConn) Reply(ctx context.Context, msg *message.Received, text string) (string, error) {
	o.mu.Lock()
	c := o.c
	o.mu.Unlock()
	if c == nil {
		return "", errors.New("not connected to OneBot")
	}
	return c.Reply(ctx, msg, text)
}

// oneBotWaits is the delays before successive reconnection attempts.
var oneBotWaits = []time.Duration{0, time.Second, time.Minute, 5 * time.Minute}

// oneBot stays connected to OneBot until ctx is canceled.
func (robo *Robot) oneBot(ctx context.Context, group *errgroup.Group, conn *oneBotConn) error {
	recv := make(chan *message.Received, 8)
	go robo.serve(ctx, group, recv)
	for try := 0; ; try++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(oneBotWaits[min(try, len(oneBotWaits)-1)]):
		}
		c, err := onebot.Dial(ctx, robo.cfg.OneBot.URL, robo.cfg.OneBot.Token, robo.log)
		if err != nil {
			robo.log.ErrorContext(ctx, "OneBot connection failed", slog.Any("err", err), slog.Int("try", try))
			continue
		}
		robo.log.InfoContext(ctx, "connected to OneBot", slog.String("url", robo.cfg.OneBot.URL))
		conn.set(c)
		err = c.Run(ctx, recv)
		conn.set(nil)
		c.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		robo.log.WarnContext(ctx, "OneBot connection closed", slog.Any("err", err))
		// Reconnect after the shortest nonzero wait.
		try = 0
	}
}
