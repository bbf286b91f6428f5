// Package kvusage implements a command usage log in a Badger database.
package kvusage

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-json-experiment/json"

	"github.com/zephyrtronium/hitori/usage"
)

/*
Key structure:
"usage" × \x00 × command × \x00 × time × seq
- time is the big-endian Unix nanoseconds of the use, so keys for a command
	sort chronologically.
- seq is a big-endian counter from a badger sequence, distinguishing uses at
	the same instant.
Values are JSON-encoded records.
*/

// Log is a usage log backed by a Badger database.
type Log struct {
	db  *badger.DB
	seq *badger.Sequence
}

var _ usage.Store = (*Log)(nil)

// New creates a usage log in db.
func New(db *badger.DB) (*Log, error) {
	seq, err := db.GetSequence([]byte("usage-seq"), 64)
	if err != nil {
		return nil, fmt.Errorf("couldn't get usage sequence: %w", err)
	}
	return &Log{db: db, seq: seq}, nil
}

// Close releases the log's reserved sequence numbers. It does not close the
// database.
func (l *Log) Close() error {
	return l.seq.Release()
}

type record struct {
	User    string    `json:"user"`
	Group   string    `json:"group,omitempty"`
	Command string    `json:"command"`
	Time    time.Time `json:"time"`
}

func prefix(command string) []byte {
	b := make([]byte, 0, len("usage")+len(command)+2)
	b = append(b, "usage\x00"...)
	b = append(b, command...)
	return append(b, 0)
}

// Add records a use of a command.
func (l *Log) Add(ctx context.Context, r usage.Record) error {
	n, err := l.seq.Next()
	if err != nil {
		return fmt.Errorf("couldn't get sequence number: %w", err)
	}
	k := prefix(r.Command)
	k = binary.BigEndian.AppendUint64(k, uint64(r.Time.UnixNano()))
	k = binary.BigEndian.AppendUint64(k, n)
	v, err := json.Marshal(record(r))
	if err != nil {
		return fmt.Errorf("couldn't encode usage record: %w", err)
	}
	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
	if err != nil {
		return fmt.Errorf("couldn't record usage: %w", err)
	}
	return nil
}

// Last returns the most recent use of a command.
func (l *Log) Last(ctx context.Context, command string) (usage.Record, bool, error) {
	var r record
	found := false
	err := l.db.View(func(txn *badger.Txn) error {
		p := prefix(command)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = p
		it := txn.NewIterator(opts)
		defer it.Close()
		// Reverse iteration seeks to the last key at or before the seek key,
		// so seek past every key with the prefix.
		it.Seek(append(slices.Clip(p), 0xff))
		if !it.ValidForPrefix(p) {
			return nil
		}
		b, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return usage.Record{}, false, fmt.Errorf("couldn't read usage: %w", err)
	}
	return usage.Record(r), found, nil
}

// Count returns the number of recorded uses of a command.
func (l *Log) Count(ctx context.Context, command string) (int64, error) {
	var n int64
	err := l.db.View(func(txn *badger.Txn) error {
		p := prefix(command)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = p
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("couldn't count usage: %w", err)
	}
	return n, nil
}
