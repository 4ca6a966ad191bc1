package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tapfed/relayerd/internal/core/domain"
)

// mirrorCiphers replays the cipher records of one round that are missing on
// the destination, in source order.
func (s *service) mirrorCiphers(ctx context.Context, logger *log.Entry, roundId uint64) error {
	records, err := s.source.Ciphers(ctx, roundId)
	if err != nil {
		return fmt.Errorf("failed to list source ciphers: %w", err)
	}

	existing := s.listDestination(ctx, roundId)
	logger.Debugf("cipher: round %d: %d records on source, %d already on destination",
		roundId, len(records), len(existing))

	outcomes, err := s.mirrorMissing(ctx, logger, roundId, records, existing)

	var posted, skipped int
	for _, outcome := range outcomes {
		switch outcome.Status {
		case domain.MirrorStatusPosted:
			posted++
		case domain.MirrorStatusSkipped:
			skipped++
		}
	}
	logger.Infof("cipher: round %d: %d posted, %d skipped", roundId, posted, skipped)

	return err
}

// listDestination reads the destination's cipher listing for a round. A round
// the destination has never seen has no listing, so a failed read is treated
// as an empty set, not an error.
func (s *service) listDestination(ctx context.Context, roundId uint64) domain.CidSet {
	records, err := s.dest.Ciphers(ctx, roundId)
	if err != nil {
		return domain.NewCidSet(nil)
	}
	return domain.NewCidSet(records)
}

// mirrorMissing posts every source record whose cid is absent from the
// destination set, extending the set in memory as it goes so the same cid is
// never submitted twice within the batch. One failed submission does not halt
// the batch, but the batch as a whole reports failure if any submission
// failed.
func (s *service) mirrorMissing(
	ctx context.Context, logger *log.Entry, roundId uint64,
	records []domain.CipherRecord, existing domain.CidSet,
) ([]domain.MirrorOutcome, error) {
	outcomes := make([]domain.MirrorOutcome, 0, len(records))
	failed := 0

	for i, record := range records {
		if existing.Has(record.Cid) {
			logger.Debugf("cipher: round %d: [%d] skip, already on destination: %s",
				roundId, i, record.Cid)
			outcomes = append(outcomes, domain.MirrorOutcome{
				Index: i, Cid: record.Cid, Status: domain.MirrorStatusSkipped,
			})
			continue
		}

		if s.strictCid && !record.ValidCid() {
			logger.Warnf("cipher: round %d: [%d] %q does not parse as a cid",
				roundId, i, record.Cid)
		}

		receipt, err := s.dest.PostCipher(ctx, roundId, record.Cid, record.MerkleRoot)
		if err != nil {
			// Keep going, the remaining records may still be mirrorable.
			logger.WithError(err).Errorf("cipher: round %d: [%d] failed to post %s",
				roundId, i, record.Cid)
			outcomes = append(outcomes, domain.MirrorOutcome{
				Index: i, Cid: record.Cid, Status: domain.MirrorStatusFailed,
			})
			failed++
			continue
		}

		existing.Add(record.Cid)
		outcomes = append(outcomes, domain.MirrorOutcome{
			Index: i, Cid: record.Cid, TxHash: receipt.TxHash,
			Status: domain.MirrorStatusPosted,
		})
		s.recordEvent(ctx, logger, domain.MirrorEvent{
			RoundId:     roundId,
			Kind:        domain.MirrorEventCipher,
			Cid:         record.Cid,
			TxHash:      receipt.TxHash.Hex(),
			BlockNumber: receipt.BlockNumber,
		})
	}

	if failed > 0 {
		return outcomes, fmt.Errorf("%d of %d cipher submissions failed", failed, len(records))
	}
	return outcomes, nil
}

// CopyRound implements the one-shot copy command: a single cipher-mirror pass
// for one round, no registry mirroring, no watermark involvement.
func (s *service) CopyRound(
	ctx context.Context, roundId uint64,
) ([]domain.MirrorOutcome, error) {
	logger := log.WithField("round", roundId)

	records, err := s.source.Ciphers(ctx, roundId)
	if err != nil {
		return nil, fmt.Errorf("failed to list source ciphers: %w", err)
	}

	existing := s.listDestination(ctx, roundId)
	return s.mirrorMissing(ctx, logger, roundId, records, existing)
}
