package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zephyrtronium/hitori/command"
	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/modules/fun"
	"github.com/zephyrtronium/hitori/perm"
	"github.com/zephyrtronium/hitori/usage/kvusage"
)

func testConfig() *Config {
	return &Config{
		RBAC: perm.Config{
			Owners: []string{"bocchi"},
			RolePermissions: map[string][]string{
				"member": {"utils.*", "context-test.*"},
			},
		},
		Modules: ModulesCfg{
			Fun: fun.Config{Greetings: map[string]int{"Hi!": 1}},
		},
	}
}

func testRobot(t *testing.T, cfg *Config) *Robot {
	t.Helper()
	ctx := context.Background()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	l, err := kvusage.New(db)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		l.Close()
		db.Close()
	})
	robo, err := New(ctx, cfg, l, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return robo
}

func TestConsole(t *testing.T) {
	cases := []struct {
		name string
		id   Identity
		in   string
		want []string
	}{
		{
			name: "ping",
			id:   Identity{User: "nijika"},
			in:   ".ping\n",
			want: []string{"pong!"},
		},
		{
			name: "echo",
			id:   Identity{User: "nijika"},
			in:   ".echo\nhello\n",
			want: []string{"💬 Enter the text to repeat:", "🔊 hello"},
		},
		{
			name: "unknown",
			id:   Identity{User: "nijika"},
			in:   ".nope\n",
			want: []string{command.UnknownText},
		},
		{
			name: "denied",
			id:   Identity{User: "nijika"},
			in:   ".devtools contexts\n",
			want: []string{command.DeniedText},
		},
		{
			name: "owner",
			id:   Identity{User: "bocchi"},
			in:   ".devtools contexts\n",
			want: []string{"Pending contexts: 0. Collection sessions: 0."},
		},
		{
			name: "greeting",
			id:   Identity{User: "kita"},
			in:   "hello\n",
			want: []string{"kita: Hi!"},
		},
		{
			name: "space-after-prefix",
			id:   Identity{User: "kita"},
			in:   ". ping\n",
			want: nil,
		},
		{
			name: "group-confirm",
			id:   Identity{User: "ryou", Group: "kessoku"},
			in:   ".test-confirm\nY\n",
			want: []string{"⚠️ Really do it? Reply Y to confirm or N to cancel.", "✅ Done!"},
		},
		{
			name: "collect",
			id:   Identity{User: "seika"},
			in:   ".say\nbocchi the rock\n#stop\n",
			want: []string{
				"💬 Collecting messages. Send #stop when you're done:",
				"✅ Recorded message 1. Keep going or send #stop.",
				"seika: bocchi the rock",
			},
		},
		{
			name: "repeater",
			id:   Identity{User: "kikuri", Group: "starry"},
			// A single sender can't start a repeat.
			in:   "sickhack\nsickhack\nsickhack\n",
			want: nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			robo := testRobot(t, testConfig())
			var out strings.Builder
			if err := robo.Console(context.Background(), strings.NewReader(c.in), &out, c.id); err != nil {
				t.Errorf("console failed: %v", err)
			}
			var got []string
			if s := strings.TrimSuffix(out.String(), "\n"); s != "" {
				got = strings.Split(s, "\n")
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("wrong output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLastPing(t *testing.T) {
	robo := testRobot(t, testConfig())
	var out strings.Builder
	in := ".last-ping\n.ping\n.last-ping\n"
	if err := robo.Console(context.Background(), strings.NewReader(in), &out, Identity{User: "futari"}); err != nil {
		t.Errorf("console failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("wrong number of replies: %q", lines)
	}
	if lines[0] != "Nobody has pinged yet." {
		t.Errorf("wrong first reply: %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "Last ping was at ") {
		t.Errorf("wrong last reply: %q", lines[2])
	}
}

type discardReplier struct{}

func (discardReplier) Reply(ctx context.Context, msg *message.Received, text string) (string, error) {
	return "", nil
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	robo := testRobot(t, testConfig())
	robo.replies[serviceConsole] = discardReplier{}
	send := func(text string) command.Outcome {
		msg := message.Plain("1", "nijika", text)
		msg.Service = serviceConsole
		return robo.Dispatch(ctx, msg)
	}
	steps := []struct {
		text string
		want command.Outcome
	}{
		{".ping", command.Executed},
		{".nope", command.Unknown},
		{"just chatting", command.Ignored},
		{".devtools message-info", command.RejectedPermission},
		{".echo", command.Awaiting},
		{"hi", command.Executed},
		{"2d6", command.Executed},
	}
	for _, s := range steps {
		if got := send(s.text); got != s.want {
			t.Errorf("wrong outcome for %q: want %v, got %v", s.text, s.want, got)
		}
	}
}

func TestAPICommands(t *testing.T) {
	robo := testRobot(t, testConfig())
	mux := http.NewServeMux()
	reg := prometheus.NewRegistry()
	reg.MustRegister(robo.metrics.Collectors()...)
	robo.routes(mux, reg)

	t.Run("module", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/commands?module=devtools", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("wrong status: want 200, got %d", rec.Code)
		}
		var got struct {
			Data   []apiCommand `json:"data"`
			Status int          `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("couldn't decode response: %v", err)
		}
		var names []string
		for _, c := range got.Data {
			names = append(names, c.Name)
		}
		want := []string{"devtools message-info", "devtools contexts"}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("wrong commands (-want +got):\n%s", diff)
		}
	})
	t.Run("command", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/commands/echo", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("wrong status: want 200, got %d", rec.Code)
		}
		var got struct {
			Data apiCommand `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("couldn't decode response: %v", err)
		}
		want := apiCommand{
			Name:        "echo",
			Module:      "ctx",
			Description: "Repeat a message.",
			Usage:       []string{"echo [text]"},
			Examples:    []string{"echo hello"},
			Permission:  "context-test.echo",
			Trigger:     "prefixed",
			Scope:       "anywhere",
			Behavior:    "await",
		}
		if diff := cmp.Diff(want, got.Data); diff != "" {
			t.Errorf("wrong command (-want +got):\n%s", diff)
		}
	})
	t.Run("missing", func(t *testing.T) {
		for _, u := range []string{"/api/commands/bocchi", "/api/commands?module=bocchi"} {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", u, nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("wrong status for %s: want 404, got %d", u, rec.Code)
			}
		}
	})
	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("wrong status: want 200, got %d", rec.Code)
		}
	})
}
