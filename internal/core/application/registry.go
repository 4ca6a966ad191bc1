package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tapfed/relayerd/internal/core/domain"
)

// mirrorRegistry copies one round's registry entry from source to
// destination. The destination is checked first so that re-attempting a round
// after a partial failure never submits a duplicate registration: an entry
// with identical content counts as success, an entry with different content
// is a conflict the relayer cannot resolve.
func (s *service) mirrorRegistry(ctx context.Context, logger *log.Entry, roundId uint64) error {
	info, err := s.source.RoundInfo(ctx, roundId)
	if err != nil {
		return fmt.Errorf("failed to read source round info: %w", err)
	}

	// A destination read failure here is tolerated: a round the destination
	// has never seen often reverts on lookup, which must not block mirroring.
	existing, err := s.dest.RoundInfo(ctx, roundId)
	if err == nil && !existing.IsZero() {
		if existing.SameContent(info) {
			logger.Debugf("registry: round %d already registered, skipping", roundId)
			return nil
		}
		return fmt.Errorf("round %d: %w", roundId, domain.ErrRootConflict)
	}

	receipt, err := s.dest.RegisterRound(ctx, roundId, info.MerkleRoot, info.MetadataCid)
	if err != nil {
		return err
	}

	logger.WithField("tx", receipt.TxHash.Hex()).Infof(
		"registry: round %d registered in block %d", roundId, receipt.BlockNumber,
	)
	s.recordEvent(ctx, logger, domain.MirrorEvent{
		RoundId:     roundId,
		Kind:        domain.MirrorEventRegistry,
		Cid:         info.MetadataCid,
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber,
	})
	return nil
}
