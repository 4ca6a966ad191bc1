package domain

import "context"

const (
	MirrorEventRegistry = "registry"
	MirrorEventCipher   = "cipher"
)

// MirrorEvent records one confirmed destination write. The journal is
// observability only: relayer progress is always re-derived from the
// destination ledger, never from stored events.
type MirrorEvent struct {
	Id          string
	RoundId     uint64
	Kind        string
	Cid         string
	TxHash      string
	BlockNumber uint64
	Timestamp   int64
}

type JournalRepository interface {
	// AddEvent appends a mirror event
	AddEvent(ctx context.Context, event MirrorEvent) error
	// GetEventsByRound retrieves all events recorded for a round
	GetEventsByRound(ctx context.Context, roundId uint64) ([]MirrorEvent, error)
	// CountEvents returns the total number of recorded events
	CountEvents(ctx context.Context) (int64, error)

	Close()
}
