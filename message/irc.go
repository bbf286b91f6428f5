package message

import (
	"strconv"

	"gitlab.com/zephyrtronium/tmi"
)

// ServiceTMI is the service name of messages received from TMI.
const ServiceTMI = "tmi"

// FromTMI adapts a TMI IRC message. Channels are groups; the reply parent tag
// becomes a reply segment.
func FromTMI(m *tmi.Message) *Received {
	id, _ := m.Tag("id")
	sender, _ := m.Tag("user-id")
	ts, _ := m.Tag("tmi-sent-ts")
	u, _ := strconv.ParseInt(ts, 10, 64)
	to := m.To()
	r := Received{
		ID:        id,
		Kind:      Group,
		To:        to,
		Sender:    sender,
		Group:     to,
		Name:      m.DisplayName(),
		Elevated:  moderator(m),
		Timestamp: u,
		Service:   ServiceTMI,
	}
	if parent, ok := m.Tag("reply-parent-msg-id"); ok && parent != "" {
		r.Segments = append(r.Segments, Segment{Kind: Reply, Ref: parent})
	}
	r.Segments = append(r.Segments, Segment{Kind: Text, Text: stripMention(m)})
	return &r
}

// stripMention removes the leading @name that Twitch clients insert into
// replies, so a reply to a prompt carries only the answer.
func stripMention(m *tmi.Message) string {
	text := m.Trailing
	login, ok := m.Tag("reply-parent-user-login")
	if !ok || login == "" {
		return text
	}
	p := "@" + login + " "
	if len(text) >= len(p) && text[:len(p)] == p {
		return text[len(p):]
	}
	return text
}

func moderator(m *tmi.Message) bool {
	t, _ := m.Tag("mod")
	if t == "1" {
		return true
	}
	// The broadcaster seems to get mod=0, but their nick is equal to the
	// channel name.
	if to := m.To(); len(to) > 1 && to[0] == '#' && to[1:] == m.Nick {
		return true
	}
	return false
}

// ToTMI creates a message to send to TMI. If reply is not empty, then the
// result is a reply to the message with that ID.
func ToTMI(s Sent) *tmi.Message {
	r := tmi.Privmsg(s.To, s.Text)
	if s.Reply != "" {
		r.Tags = "reply-parent-msg-id=" + s.Reply
	}
	return r
}
