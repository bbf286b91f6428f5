// Package usage records when commands are used.
package usage

import (
	"context"
	"time"
)

// Record is a single use of a command.
type Record struct {
	// User is the ID of the user who used the command.
	User string
	// Group is the group the command was used in, or empty if private.
	Group string
	// Command is the canonical command name.
	Command string
	// Time is when the command was used.
	Time time.Time
}

// Store is a persistent log of command usage.
type Store interface {
	// Add records a use of a command.
	Add(ctx context.Context, r Record) error
	// Last returns the most recent use of a command. The boolean result is
	// false if the command has never been used.
	Last(ctx context.Context, command string) (Record, bool, error)
	// Count returns the number of recorded uses of a command.
	Count(ctx context.Context, command string) (int64, error)
}
