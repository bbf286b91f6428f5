// Package message defines the shape of chat messages as the dispatch core
// sees them, independent of the transport that delivered them.
package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/zephyrtronium/hitori/perm"
)

// Kind is the kind of conversation a message arrived in.
type Kind int

const (
	// Private is a one-on-one conversation with the bot.
	Private Kind = iota
	// Group is a multi-user room, channel, or group chat.
	Group
)

func (k Kind) String() string {
	switch k {
	case Private:
		return "private"
	case Group:
		return "group"
	}
	return "unknown"
}

// SegmentKind distinguishes pieces of message content.
type SegmentKind int

const (
	// Text is plain text content.
	Text SegmentKind = iota
	// Reply is a protocol-level reference to another message.
	Reply
	// Other is any content the core does not interpret, e.g. images or
	// mentions. Its Text holds the transport's name for the content type.
	Other
)

// Segment is one piece of message content.
type Segment struct {
	Kind SegmentKind
	// Text is the text of a Text segment.
	Text string
	// Ref is the ID of the message referenced by a Reply segment.
	Ref string
}

// Received is a message received from a service.
type Received struct {
	// ID is the unique ID of the message.
	ID string
	// Kind is whether the message is private or in a group.
	Kind Kind
	// To is the destination of replies to the message. This may be the
	// identifier of a room or the name of a user.
	To string
	// Sender is a unique identifier for the message sender.
	Sender string
	// Group is the group the message was sent to. It is empty for private
	// messages.
	Group string
	// Name is the display name of the message sender.
	Name string
	// Elevated is whether the transport reports the sender as an owner or
	// administrator of Group.
	Elevated bool
	// Segments is the content of the message in order.
	Segments []Segment
	// Timestamp is the timestamp of the message as milliseconds since the
	// Unix epoch.
	Timestamp int64
	// Service names the transport that delivered the message.
	Service string
}

// Time returns the message timestamp.
func (m *Received) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Text returns the concatenation of the message's text segments, normalized
// and with surrounding whitespace removed.
func (m *Received) Text() string {
	var b strings.Builder
	for _, s := range m.Segments {
		if s.Kind == Text {
			b.WriteString(s.Text)
		}
	}
	return strings.TrimSpace(norm.NFC.String(b.String()))
}

// ReplyTo returns the ID of the message that m replies to, if any.
func (m *Received) ReplyTo() (string, bool) {
	for _, s := range m.Segments {
		if s.Kind == Reply {
			return s.Ref, true
		}
	}
	return "", false
}

// Principal returns the identity of the message sender.
func (m *Received) Principal() perm.Principal {
	return perm.Principal{User: m.Sender, Group: m.Group, Elevated: m.Elevated}
}

// Replier sends replies to received messages.
type Replier interface {
	// Reply sends text in response to msg. The returned ID identifies the
	// sent message when the transport reports one, otherwise it is empty.
	Reply(ctx context.Context, msg *Received, text string) (id string, err error)
}

// Mux routes replies to the replier for the service that delivered each
// message.
type Mux map[string]Replier

// Reply sends text through the replier for msg.Service.
func (m Mux) Reply(ctx context.Context, msg *Received, text string) (string, error) {
	r := m[msg.Service]
	if r == nil {
		return "", fmt.Errorf("no replier for service %q", msg.Service)
	}
	return r.Reply(ctx, msg, text)
}

// Sent is a message to be sent to a service.
type Sent struct {
	// Reply is a message to reply to. If empty, the message is not interpreted
	// as a reply.
	Reply string
	// To is the channel to whom the message is sent.
	To string
	// Text is the message text.
	Text string
}

// ReplyTo creates a reply to msg.
func ReplyTo(msg *Received, text string) Sent {
	return Sent{
		Reply: msg.ID,
		To:    msg.To,
		Text:  strings.TrimSpace(text),
	}
}

// Plain creates a private message containing only text, as from a console.
func Plain(id, sender, text string) *Received {
	return &Received{
		ID:       id,
		Kind:     Private,
		To:       sender,
		Sender:   sender,
		Name:     sender,
		Segments: []Segment{{Kind: Text, Text: text}},
	}
}
