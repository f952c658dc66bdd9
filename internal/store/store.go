// internal/store/store.go
//
// Session persistence contract shared by the memory, sqlite and redis
// backends. A Record holds only the live tally of one session; no round
// history is ever kept.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/robalobadob/rockpaperscissors/internal/game"
)

// ErrNotFound is returned by Get/Delete for unknown session ids.
var ErrNotFound = errors.New("not found")

// Mode selects the opponent source of a session.
type Mode string

const (
	ModeRandom Mode = "random"
	ModeDaily  Mode = "daily"
)

// Record is the stored form of one session.
type Record struct {
	ID        string     // uuid
	Mode      Mode       // random | daily
	Date      string     // daily mode date key, empty otherwise
	Offset    uint64     // daily mode: picks drawn so far
	State     game.State // current tally
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the persistence interface for sessions.
type Store interface {
	// Save inserts or replaces the record and stamps UpdatedAt.
	Save(ctx context.Context, r *Record) error

	// Get retrieves a record by ID or returns ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete removes a record or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	Close() error
}

// Sweeper is implemented by backends without native expiry.
type Sweeper interface {
	// Sweep deletes records not updated since cutoff and reports how many.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
