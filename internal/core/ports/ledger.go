package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tapfed/relayerd/internal/core/domain"
)

// TxReceipt is the confirmation of a state-mutating ledger call.
type TxReceipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64
}

// SourceLedger is the read-only view of one ledger's registry and cipher
// store contracts.
type SourceLedger interface {
	LastRound(ctx context.Context) (uint64, error)
	RoundInfo(ctx context.Context, roundId uint64) (domain.Round, error)
	Ciphers(ctx context.Context, roundId uint64) ([]domain.CipherRecord, error)
}

// DestinationLedger extends the read view with the two state-mutating calls
// the relayer replays. Both block until exactly one confirmation.
type DestinationLedger interface {
	SourceLedger
	RegisterRound(
		ctx context.Context, roundId uint64, merkleRoot common.Hash, metadataCid string,
	) (TxReceipt, error)
	PostCipher(
		ctx context.Context, roundId uint64, cid string, merkleRoot common.Hash,
	) (TxReceipt, error)
}
