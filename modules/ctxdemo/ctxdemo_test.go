package ctxdemo_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/hitori/command"
	"github.com/zephyrtronium/hitori/command/commandtest"
	"github.com/zephyrtronium/hitori/modules/ctxdemo"
	"github.com/zephyrtronium/hitori/perm"
)

var everyone = perm.Config{
	RolePermissions: map[string][]string{"member": {"context-test.*"}},
}

func TestConversations(t *testing.T) {
	cases := []struct {
		name  string
		texts []string
		want  []string
	}{
		{
			name:  "echo",
			texts: []string{".echo", "hello"},
			want:  []string{"💬 Enter the text to repeat:", "🔊 hello"},
		},
		{
			name:  "echo-direct",
			texts: []string{".echo hi there"},
			want:  []string{"🔊 hi there"},
		},
		{
			name:  "say",
			texts: []string{".say", "a", "b", "#stop"},
			want: []string{
				"💬 Collecting messages. Send #stop when you're done:",
				"✅ Recorded message 1. Keep going or send #stop.",
				"✅ Recorded message 2. Keep going or send #stop.",
				"bocchi: a\nbocchi: b",
			},
		},
		{
			name:  "confirm",
			texts: []string{".test-confirm", "Y"},
			want:  []string{"⚠️ Really do it? Reply Y to confirm or N to cancel.", "✅ Done!"},
		},
		{
			name:  "cancel",
			texts: []string{".test-confirm", "取消"},
			want:  []string{"⚠️ Really do it? Reply Y to confirm or N to cancel.", "❌ Canceled."},
		},
		{
			name:  "age",
			texts: []string{".set-age", "17"},
			want:  []string{"How old are you (1-150)?", "✅ Your age is now 17."},
		},
		{
			name:  "age-invalid",
			texts: []string{".set-age", "200"},
			want:  []string{"How old are you (1-150)?", "Age must be between 1 and 150."},
		},
		{
			name:  "age-nan",
			texts: []string{".set-age", "old"},
			want:  []string{"How old are you (1-150)?", "Please enter a number."},
		},
		{
			name:  "sub-test",
			texts: []string{".ctx test"},
			want:  []string{"✅ Sub-command works!"},
		},
		{
			name:  "sub-param",
			texts: []string{".ctx param", "x"},
			want:  []string{"💬 Enter a parameter:", "✅ Sub-command parameter: x"},
		},
		{
			name:  "sub-collect",
			texts: []string{".ctx collect", "one", "two", "#done"},
			want:  []string{"📝 Collecting. Send #done to finish:", "✅ 1", "✅ 2", "✅ Collected 2:\n1. one\n2. two"},
		},
		{
			name:  "sub-confirm",
			texts: []string{".ctx confirm", "n"},
			want:  []string{"⚠️ Sub-command confirmation. Reply Y to confirm:", "❌ Sub-command canceled."},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			h := commandtest.New(t, everyone, nil, ctxdemo.New())
			for _, s := range c.texts {
				h.Send(ctx, h.Group("kessoku", "bocchi", s))
			}
			if diff := cmp.Diff(c.want, h.Replies.Take()); diff != "" {
				t.Errorf("wrong replies (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPermissions(t *testing.T) {
	ctx := context.Background()
	h := commandtest.New(t, perm.Config{}, nil, ctxdemo.New())
	if got := h.Send(ctx, h.Group("kessoku", "ryou", ".ctx test")); got != command.RejectedPermission {
		t.Errorf("member could use ctx test: %v", got)
	}
	if got := h.Send(ctx, h.Group("kessoku", "ryou", ".echo")); got != command.RejectedPermission {
		t.Errorf("member could use echo: %v", got)
	}
}

func TestNames(t *testing.T) {
	h := commandtest.New(t, everyone, nil, ctxdemo.New())
	var names []string
	for _, e := range h.Registry.ByModule("ctx") {
		names = append(names, e.Name)
	}
	want := []string{"echo", "say", "test-confirm", "set-age", "ctx test", "ctx param", "ctx collect", "ctx confirm"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("wrong commands (-want +got):\n%s", diff)
	}
}
