package main

import (
	"context"
	"strings"

	"gitlab.com/zephyrtronium/tmi"

	"github.com/zephyrtronium/hitori/message"
)

// tmiMessage processes a PRIVMSG from TMI.
func (robo *Robot) tmiMessage(ctx context.Context, msg *tmi.Message) {
	robo.Dispatch(ctx, message.FromTMI(msg))
}

// Reply sends a reply to TMI after waiting for the global rate limit.
func (t *tmiClient) Reply(ctx context.Context, msg *message.Received, text string) (string, error) {
	if err := t.rate.Wait(ctx); err != nil {
		return "", err
	}
	resp := message.ToTMI(message.ReplyTo(msg, text))
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case t.send <- resp:
		// TMI doesn't tell us the IDs of our own messages.
		return "", nil
	}
}

// parseCommand splits prefixed text into a command word and its arguments.
// The prefix must be followed immediately by the command word.
func parseCommand(prefix, text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, prefix)
	if !ok || rest == "" {
		return "", nil, false
	}
	words := strings.Fields(rest)
	if len(words) == 0 || !strings.HasPrefix(rest, words[0]) {
		return "", nil, false
	}
	return words[0], words[1:], true
}
