package repeater_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/hitori/command/commandtest"
	"github.com/zephyrtronium/hitori/modules/repeater"
	"github.com/zephyrtronium/hitori/perm"
)

func TestRepeat(t *testing.T) {
	type line struct {
		group, user, text string
	}
	cases := []struct {
		name  string
		need  int
		lines []line
		want  []string
	}{
		{
			name: "three",
			lines: []line{
				{"kessoku", "bocchi", "草"},
				{"kessoku", "ryou", "草"},
				{"kessoku", "nijika", "草"},
			},
			want: []string{"草"},
		},
		{
			name: "two-is-not-enough",
			lines: []line{
				{"kessoku", "bocchi", "草"},
				{"kessoku", "ryou", "草"},
			},
		},
		{
			name: "same-sender-restarts",
			lines: []line{
				{"kessoku", "bocchi", "草"},
				{"kessoku", "ryou", "草"},
				{"kessoku", "ryou", "草"},
				{"kessoku", "nijika", "草"},
			},
		},
		{
			name: "returning-sender-restarts",
			lines: []line{
				{"kessoku", "bocchi", "草"},
				{"kessoku", "ryou", "草"},
				{"kessoku", "bocchi", "草"},
				{"kessoku", "nijika", "草"},
				{"kessoku", "kita", "草"},
			},
			want: []string{"草"},
		},
		{
			name: "interrupted",
			lines: []line{
				{"kessoku", "bocchi", "草"},
				{"kessoku", "ryou", "草"},
				{"kessoku", "kita", "lol"},
				{"kessoku", "nijika", "草"},
			},
		},
		{
			name: "groups-separate",
			lines: []line{
				{"kessoku", "bocchi", "草"},
				{"sickhack", "ryou", "草"},
				{"kessoku", "nijika", "草"},
			},
		},
		{
			name: "resets-after-repeat",
			lines: []line{
				{"kessoku", "bocchi", "草"},
				{"kessoku", "ryou", "草"},
				{"kessoku", "nijika", "草"},
				{"kessoku", "kita", "草"},
			},
			want: []string{"草"},
		},
		{
			name: "need-two",
			need: 2,
			lines: []line{
				{"kessoku", "bocchi", "草"},
				{"kessoku", "ryou", "草"},
			},
			want: []string{"草"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			h := commandtest.New(t, perm.Config{}, nil, repeater.New(c.need))
			for _, l := range c.lines {
				h.Send(ctx, h.Group(l.group, l.user, l.text))
			}
			if diff := cmp.Diff(c.want, h.Replies.Take()); diff != "" {
				t.Errorf("wrong repeats (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIgnorePrivate(t *testing.T) {
	ctx := context.Background()
	m := repeater.New(2)
	h := commandtest.New(t, perm.Config{}, nil, m)
	for _, u := range []string{"bocchi", "ryou"} {
		msg := h.Private(u, "草")
		if err := m.OnMessage(ctx, h.Robot, msg, msg.Text()); err != nil {
			t.Fatal(err)
		}
	}
	if got := h.Replies.Take(); len(got) != 0 {
		t.Errorf("repeated private messages: %q", got)
	}
}
