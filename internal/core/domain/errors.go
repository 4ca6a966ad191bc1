package domain

import "errors"

var (
	// ErrConnection is returned when a ledger endpoint cannot be reached.
	ErrConnection = errors.New("ledger endpoint unreachable")
	// ErrDecode is returned when a read call returns an unexpected shape.
	ErrDecode = errors.New("unexpected return shape")
	// ErrSubmission is returned when a transaction fails to build, sign,
	// broadcast or is reverted by the ledger.
	ErrSubmission = errors.New("transaction submission failed")
	// ErrConfirmationTimeout is returned when no receipt arrives within the
	// configured confirmation wait.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
	// ErrRootConflict is returned when the destination already holds a round
	// with different content than the source. Mirroring cannot proceed, the
	// conflict must be resolved out of band.
	ErrRootConflict = errors.New("round already registered with different content")
)
