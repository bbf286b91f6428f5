// Package usagetest provides integration testing facilities for usage stores.
package usagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/hitori/usage"
)

// Test runs the integration test suite against stores produced by new.
//
// If a store cannot be created without error, new should call t.Fatal.
func Test(ctx context.Context, t *testing.T, new func(context.Context) usage.Store) {
	t.Run("empty", testEmpty(ctx, new(ctx)))
	t.Run("last", testLast(ctx, new(ctx)))
	t.Run("count", testCount(ctx, new(ctx)))
}

var records = [...]usage.Record{
	{User: "bocchi", Group: "kessoku", Command: "ping", Time: time.Unix(1, 0)},
	{User: "ryou", Group: "kessoku", Command: "ping", Time: time.Unix(3, 0)},
	{User: "nijika", Group: "", Command: "ping", Time: time.Unix(2, 0)},
	{User: "kita", Group: "kessoku", Command: "last-ping", Time: time.Unix(4, 0)},
}

func testEmpty(ctx context.Context, s usage.Store) func(t *testing.T) {
	return func(t *testing.T) {
		r, ok, err := s.Last(ctx, "ping")
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Errorf("empty store has a last record: %+v", r)
		}
		n, err := s.Count(ctx, "ping")
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("wrong count in empty store: want 0, got %d", n)
		}
	}
}

func testLast(ctx context.Context, s usage.Store) func(t *testing.T) {
	return func(t *testing.T) {
		for _, r := range records {
			if err := s.Add(ctx, r); err != nil {
				t.Fatalf("couldn't add %+v: %v", r, err)
			}
		}
		cases := []struct {
			command string
			want    usage.Record
			ok      bool
		}{
			{"ping", records[1], true},
			{"last-ping", records[3], true},
			{"help", usage.Record{}, false},
		}
		for _, c := range cases {
			got, ok, err := s.Last(ctx, c.command)
			if err != nil {
				t.Errorf("couldn't get last %s: %v", c.command, err)
				continue
			}
			if ok != c.ok {
				t.Errorf("wrong presence for %s: want %t, got %t", c.command, c.ok, ok)
			}
			if diff := cmp.Diff(c.want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
				t.Errorf("wrong last record for %s (-want +got):\n%s", c.command, diff)
			}
		}
	}
}

func testCount(ctx context.Context, s usage.Store) func(t *testing.T) {
	return func(t *testing.T) {
		for _, r := range records {
			if err := s.Add(ctx, r); err != nil {
				t.Fatalf("couldn't add %+v: %v", r, err)
			}
		}
		// The same instant twice must be kept as two uses.
		if err := s.Add(ctx, records[0]); err != nil {
			t.Fatal(err)
		}
		want := map[string]int64{"ping": 4, "last-ping": 1, "help": 0}
		for cmd, w := range want {
			n, err := s.Count(ctx, cmd)
			if err != nil {
				t.Errorf("couldn't count %s: %v", cmd, err)
				continue
			}
			if n != w {
				t.Errorf("wrong count for %s: want %d, got %d", cmd, w, n)
			}
		}
	}
}
