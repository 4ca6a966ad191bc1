package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tapfed/relayerd/internal/core/domain"
	"github.com/tapfed/relayerd/internal/core/ports"
)

// Service is the relayer: it polls the source ledger for finalized rounds and
// replays round registrations and cipher records onto the destination ledger.
type Service interface {
	Start() error
	Stop()
	// CopyRound runs a single cipher-mirror pass for one round and returns
	// the per-record outcomes. Used by the one-shot copy command.
	CopyRound(ctx context.Context, roundId uint64) ([]domain.MirrorOutcome, error)
}

type service struct {
	source  ports.SourceLedger
	dest    ports.DestinationLedger
	journal domain.JournalRepository

	scheduler     ports.SchedulerService
	auditInterval time.Duration

	pollInterval time.Duration
	errorBackoff backoff.BackOff
	strictCid    bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewService(
	source ports.SourceLedger, dest ports.DestinationLedger,
	journal domain.JournalRepository, scheduler ports.SchedulerService,
	pollInterval time.Duration, errorBackoff backoff.BackOff,
	auditInterval time.Duration, strictCid bool,
) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("missing source ledger")
	}
	if dest == nil {
		return nil, fmt.Errorf("missing destination ledger")
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("invalid poll interval, must be greater than 0")
	}
	if errorBackoff == nil {
		return nil, fmt.Errorf("missing error backoff policy")
	}
	return &service{
		source, dest, journal, scheduler, auditInterval,
		pollInterval, errorBackoff, strictCid,
		make(chan struct{}), make(chan struct{}),
	}, nil
}

func (s *service) Start() error {
	ctx := context.Background()

	state := s.initialState(ctx)
	log.Infof("relayer: starting from watermark %d", state.Watermark)

	if s.scheduler != nil && s.auditInterval > 0 {
		if err := s.scheduler.ScheduleTaskEvery(s.auditInterval, s.auditTask); err != nil {
			return fmt.Errorf("failed to schedule audit task: %s", err)
		}
		s.scheduler.Start()
	}

	go s.loop(ctx, state)
	return nil
}

func (s *service) Stop() {
	close(s.stopCh)
	<-s.doneCh
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.journal != nil {
		s.journal.Close()
	}
}

// initialState re-derives the watermark from the destination's own round
// counter, making the destination the durable source of truth for relayer
// progress. An unreadable or uninitialized destination starts from 0.
func (s *service) initialState(ctx context.Context) domain.RelayerState {
	watermark, err := s.dest.LastRound(ctx)
	if err != nil {
		log.WithError(err).Warn(
			"relayer: failed to read destination round counter, starting from 0",
		)
		return domain.RelayerState{}
	}
	return domain.RelayerState{Watermark: watermark}
}

func (s *service) loop(ctx context.Context, state domain.RelayerState) {
	defer close(s.doneCh)

	for {
		logger := log.WithField("cycle", uuid.NewString())
		next, err := s.processCycle(ctx, logger, state)
		state = next

		wait := s.pollInterval
		if err != nil {
			logger.WithError(err).WithField("watermark", state.Watermark).
				Error("relayer: cycle failed, backing off")
			if b := s.errorBackoff.NextBackOff(); b != backoff.Stop {
				wait = b
			}
		} else {
			s.errorBackoff.Reset()
		}

		select {
		case <-s.stopCh:
			return
		case <-time.After(wait):
		}
	}
}

// processCycle runs one full poll-and-mirror pass. The returned state always
// reflects the rounds fully mirrored so far, so a failure mid catch-up
// resumes from the last complete round on the next cycle.
func (s *service) processCycle(
	ctx context.Context, logger *log.Entry, state domain.RelayerState,
) (domain.RelayerState, error) {
	candidate, err := s.pollSource(ctx)
	if err != nil {
		return state, err
	}

	if candidate <= state.Watermark {
		logger.Debugf("relayer: no new round, source at %d, watermark at %d",
			candidate, state.Watermark)
		return state, nil
	}

	logger.Infof("relayer: new round detected on source: %d", candidate)

	// Catch up one round at a time so a jump of the source counter never
	// leaves intermediate rounds unmirrored.
	for round := state.Watermark + 1; round <= candidate; round++ {
		if err := s.mirrorRound(ctx, logger, round); err != nil {
			return state, fmt.Errorf("round %d: %w", round, err)
		}
		state = state.WithWatermark(round)
	}

	return state, nil
}

// mirrorRound mirrors one round: registry entry first, then the cipher
// records that reference it.
func (s *service) mirrorRound(ctx context.Context, logger *log.Entry, roundId uint64) error {
	if err := s.mirrorRegistry(ctx, logger, roundId); err != nil {
		return fmt.Errorf("registry mirror: %w", err)
	}
	if err := s.mirrorCiphers(ctx, logger, roundId); err != nil {
		return fmt.Errorf("cipher mirror: %w", err)
	}
	logger.Infof("relayer: round %d mirrored", roundId)
	return nil
}

func (s *service) recordEvent(ctx context.Context, logger *log.Entry, event domain.MirrorEvent) {
	if s.journal == nil {
		return
	}
	event.Id = uuid.NewString()
	event.Timestamp = time.Now().Unix()
	if err := s.journal.AddEvent(ctx, event); err != nil {
		logger.WithError(err).Warn("journal: failed to record mirror event")
	}
}
