package command

import (
	"context"
	"log/slog"

	"github.com/zephyrtronium/hitori/convo"
	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/perm"
	"github.com/zephyrtronium/hitori/usage"
)

// Robot is the bot state as is visible to commands.
type Robot struct {
	Log     *slog.Logger
	Replier message.Replier
	Convo   *convo.Manager
	Perms   *perm.Engine
	Usage   usage.Store
	// Commands is the registry holding the command being run.
	Commands *Registry
}

// Reply replies to msg and returns the sent message's ID, if the transport
// gave one. Send failures are logged rather than returned.
func (robo *Robot) Reply(ctx context.Context, msg *message.Received, text string) string {
	id, err := robo.Replier.Reply(ctx, msg, text)
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't send reply",
			slog.String("to", msg.To),
			slog.String("msg", msg.ID),
			slog.Any("err", err),
		)
	}
	return id
}
