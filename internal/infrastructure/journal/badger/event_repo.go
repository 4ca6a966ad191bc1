package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tapfed/relayerd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	journalStoreDir = "journal"
	maxRetries      = 3
)

type journalRepository struct {
	store *badgerhold.Store
}

type eventDTO struct {
	Id          string `badgerhold:"key"`
	RoundId     uint64 `badgerhold:"index"`
	Kind        string
	Cid         string
	TxHash      string
	BlockNumber uint64
	Timestamp   int64
}

// NewJournalRepository opens the mirror journal. An empty baseDir opens an
// in-memory store, which the tests use.
func NewJournalRepository(baseDir string, logger badger.Logger) (domain.JournalRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, journalStoreDir)
	}

	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal store: %s", err)
	}

	return &journalRepository{store}, nil
}

func (r *journalRepository) AddEvent(ctx context.Context, event domain.MirrorEvent) error {
	dto := eventDTO{
		Id:          event.Id,
		RoundId:     event.RoundId,
		Kind:        event.Kind,
		Cid:         event.Cid,
		TxHash:      event.TxHash,
		BlockNumber: event.BlockNumber,
		Timestamp:   event.Timestamp,
	}

	err := r.store.Insert(dto.Id, dto)
	if errors.Is(err, badger.ErrConflict) {
		for attempts := 1; attempts <= maxRetries; attempts++ {
			time.Sleep(100 * time.Millisecond)
			if err = r.store.Insert(dto.Id, dto); err == nil {
				break
			}
		}
	}
	return err
}

func (r *journalRepository) GetEventsByRound(
	ctx context.Context, roundId uint64,
) ([]domain.MirrorEvent, error) {
	var dtos []eventDTO
	if err := r.store.Find(&dtos, badgerhold.Where("RoundId").Eq(roundId).Index("RoundId")); err != nil {
		return nil, err
	}

	events := make([]domain.MirrorEvent, 0, len(dtos))
	for _, dto := range dtos {
		events = append(events, domain.MirrorEvent{
			Id:          dto.Id,
			RoundId:     dto.RoundId,
			Kind:        dto.Kind,
			Cid:         dto.Cid,
			TxHash:      dto.TxHash,
			BlockNumber: dto.BlockNumber,
			Timestamp:   dto.Timestamp,
		})
	}
	return events, nil
}

func (r *journalRepository) CountEvents(ctx context.Context) (int64, error) {
	count, err := r.store.Count(&eventDTO{}, nil)
	if err != nil {
		return 0, err
	}
	return int64(count), nil
}

func (r *journalRepository) Close() {
	_ = r.store.Close()
}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}
