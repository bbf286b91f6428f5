package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/zephyrtronium/hitori/message"
)

// serviceConsole is the service name of messages typed at the console.
const serviceConsole = "console"

// console writes replies to a terminal.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

// Reply writes text on its own line. There is no way to quote a line at a
// terminal, so replies have no IDs.
func (c *console) Reply(ctx context.Context, msg *message.Received, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, text)
	return "", err
}

// Identity is who console messages are sent as.
type Identity struct {
	// User is the sender ID.
	User string
	// Group is the group to send in. If empty, messages are private.
	Group string
	// Elevated is whether the user is an admin of the group.
	Elevated bool
}

// Console reads lines from r and dispatches each as a message from id,
// writing replies to w. It returns when r is exhausted or ctx is canceled.
func (robo *Robot) Console(ctx context.Context, r io.Reader, w io.Writer, id Identity) error {
	robo.replies[serviceConsole] = &console{w: w}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go robo.convo.Run(ctx, robo.sweep)
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := message.Plain("stdin:"+strconv.Itoa(n), id.User, sc.Text())
		msg.Service = serviceConsole
		if id.Group != "" {
			msg.Kind = message.Group
			msg.Group = id.Group
			msg.To = id.Group
			msg.Elevated = id.Elevated
		}
		robo.Dispatch(ctx, msg)
	}
	return sc.Err()
}
