package message_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/zephyrtronium/hitori/message"
	"gitlab.com/zephyrtronium/tmi"
)

func TestFromTMI(t *testing.T) {
	cases := []struct {
		name   string
		msg    string
		id     string
		to     string
		sender string
		disp   string
		text   string
		reply  string
		time   time.Time
		elev   bool
	}{
		{
			name:   "regular",
			msg:    `@badge-info=;badges=;client-nonce=eb10a5865f1231b6e96d6ae2dbcecdb4;color=#B22222;display-name=Someone;emotes=;first-msg=0;flags=;id=a74eb158-9732-4e6f-9150-2648cdf3c902;mod=0;returning-chatter=0;room-id=12345678;subscriber=0;tmi-sent-ts=1662882968379;turbo=0;user-id=123456789;user-type= :someone!someone@someone.tmi.twitch.tv PRIVMSG #channel :hello, world!`,
			id:     "a74eb158-9732-4e6f-9150-2648cdf3c902",
			to:     "#channel",
			sender: "123456789",
			disp:   "Someone",
			text:   "hello, world!",
			time:   time.UnixMilli(1662882968379),
		},
		{
			name:   "mod",
			msg:    `@badge-info=;badges=moderator/1;color=#1E90FF;display-name=aMod;emotes=;first-msg=0;flags=;id=2a9bb533-2837-48d0-8aba-032f844c91f6;mod=1;returning-chatter=0;room-id=12345678;subscriber=0;tmi-sent-ts=1662887850257;turbo=0;user-id=87654321;user-type=mod :amod!amod@amod.tmi.twitch.tv PRIVMSG #channel :.ping`,
			id:     "2a9bb533-2837-48d0-8aba-032f844c91f6",
			to:     "#channel",
			sender: "87654321",
			disp:   "aMod",
			text:   ".ping",
			time:   time.UnixMilli(1662887850257),
			elev:   true,
		},
		{
			name:   "broadcaster",
			msg:    `@badge-info=;badges=broadcaster/1;display-name=Channel;emotes=;id=d2129ccd-0763-434c-bd00-7354bfe1a781;mod=0;room-id=12345678;subscriber=0;tmi-sent-ts=1662885432414;user-id=12345678;user-type= :channel!channel@channel.tmi.twitch.tv PRIVMSG #channel :hi`,
			id:     "d2129ccd-0763-434c-bd00-7354bfe1a781",
			to:     "#channel",
			sender: "12345678",
			disp:   "Channel",
			text:   "hi",
			time:   time.UnixMilli(1662885432414),
			elev:   true,
		},
		{
			name:   "reply",
			msg:    `@badge-info=;badges=;display-name=Someone;emotes=;id=8c3df6f8-f1e2-4b3b-9a55-1d2b0c9f7e10;mod=0;reply-parent-display-name=Bot;reply-parent-msg-body=Enter\stext:;reply-parent-msg-id=b34ccfc7-4977-403a-8a94-33c6bac34fb8;reply-parent-user-id=5555;reply-parent-user-login=bot;room-id=12345678;subscriber=0;tmi-sent-ts=1662882968379;user-id=123456789;user-type= :someone!someone@someone.tmi.twitch.tv PRIVMSG #channel :@bot hello`,
			id:     "8c3df6f8-f1e2-4b3b-9a55-1d2b0c9f7e10",
			to:     "#channel",
			sender: "123456789",
			disp:   "Someone",
			text:   "hello",
			reply:  "b34ccfc7-4977-403a-8a94-33c6bac34fb8",
			time:   time.UnixMilli(1662882968379),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tm, err := tmi.Parse(strings.NewReader(c.msg + "\r\n"))
			if err != nil && err != io.EOF {
				panic(err)
			}
			msg := message.FromTMI(tm)
			if msg.ID != c.id {
				t.Errorf("wrong id: want %q, got %q", c.id, msg.ID)
			}
			if msg.To != c.to || msg.Group != c.to {
				t.Errorf("wrong destination: want %q, got to %q group %q", c.to, msg.To, msg.Group)
			}
			if msg.Kind != message.Group {
				t.Errorf("wrong kind: want group, got %v", msg.Kind)
			}
			if msg.Sender != c.sender {
				t.Errorf("wrong sender: want %q, got %q", c.sender, msg.Sender)
			}
			if msg.Name != c.disp {
				t.Errorf("wrong display name: want %q, got %q", c.disp, msg.Name)
			}
			if got := msg.Text(); got != c.text {
				t.Errorf("wrong text: want %q, got %q", c.text, got)
			}
			if got, _ := msg.ReplyTo(); got != c.reply {
				t.Errorf("wrong reply parent: want %q, got %q", c.reply, got)
			}
			if got := msg.Time(); !got.Equal(c.time) {
				t.Errorf("wrong time: want %v, got %v", c.time, got)
			}
			if msg.Elevated != c.elev {
				t.Errorf("wrong elevation: want %t, got %t", c.elev, msg.Elevated)
			}
		})
	}
}

func TestToTMI(t *testing.T) {
	cases := []struct {
		name string
		sent message.Sent
		tags string
	}{
		{"plain", message.Sent{To: "#bocchi", Text: "hi"}, ""},
		{"reply", message.Sent{Reply: "1234", To: "#bocchi", Text: "hi"}, "reply-parent-msg-id=1234"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := message.ToTMI(c.sent)
			if m.Command != "PRIVMSG" {
				t.Errorf("wrong command: want PRIVMSG, got %q", m.Command)
			}
			if m.To() != c.sent.To {
				t.Errorf("wrong destination: want %q, got %q", c.sent.To, m.To())
			}
			if m.Trailing != c.sent.Text {
				t.Errorf("wrong text: want %q, got %q", c.sent.Text, m.Trailing)
			}
			if m.Tags != c.tags {
				t.Errorf("wrong tags: want %q, got %q", c.tags, m.Tags)
			}
		})
	}
}
