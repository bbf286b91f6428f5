package kvusage_test

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/zephyrtronium/hitori/usage"
	"github.com/zephyrtronium/hitori/usage/kvusage"
	"github.com/zephyrtronium/hitori/usage/usagetest"
)

func TestLog(t *testing.T) {
	usagetest.Test(context.Background(), t, func(ctx context.Context) usage.Store {
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
		return l
	})
}

func TestPrefixIsolation(t *testing.T) {
	// A command whose name extends another's must not be counted with it.
	ctx := context.Background()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	l, err := kvusage.New(db)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if err := l.Add(ctx, usage.Record{User: "bocchi", Command: "ping"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Add(ctx, usage.Record{User: "ryou", Command: "ping-pong"}); err != nil {
		t.Fatal(err)
	}
	n, err := l.Count(ctx, "ping")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("wrong count: want 1, got %d", n)
	}
	r, ok, err := l.Last(ctx, "ping")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || r.User != "bocchi" {
		t.Errorf("wrong last record: want bocchi, got %+v %t", r, ok)
	}
}
