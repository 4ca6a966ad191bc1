package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tapfed/relayerd/internal/core/domain"
	"github.com/tapfed/relayerd/internal/core/ports"
)

// fakeLedger is an in-memory ledger implementing both the source and the
// destination ports. Writes are applied immediately, one fake block per
// confirmed submission.
type fakeLedger struct {
	mtx sync.Mutex

	lastRound uint64
	rounds    map[uint64]domain.Round
	ciphers   map[uint64][]domain.CipherRecord

	lastRoundErr error
	roundInfoErr error
	ciphersErr   error
	registerErr  error
	postErrByCid map[string]error

	registerCalls int
	postedCids    []string

	blockNumber uint64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		rounds:       make(map[uint64]domain.Round),
		ciphers:      make(map[uint64][]domain.CipherRecord),
		postErrByCid: make(map[string]error),
	}
}

func (f *fakeLedger) setRound(round domain.Round, records ...domain.CipherRecord) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.rounds[round.Id] = round
	f.ciphers[round.Id] = append([]domain.CipherRecord{}, records...)
	if round.Id > f.lastRound {
		f.lastRound = round.Id
	}
}

func (f *fakeLedger) LastRound(_ context.Context) (uint64, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.lastRoundErr != nil {
		return 0, f.lastRoundErr
	}
	return f.lastRound, nil
}

func (f *fakeLedger) RoundInfo(_ context.Context, roundId uint64) (domain.Round, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.roundInfoErr != nil {
		return domain.Round{}, f.roundInfoErr
	}
	round, ok := f.rounds[roundId]
	if !ok {
		return domain.Round{}, fmt.Errorf("round %d not registered", roundId)
	}
	return round, nil
}

func (f *fakeLedger) Ciphers(_ context.Context, roundId uint64) ([]domain.CipherRecord, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.ciphersErr != nil {
		return nil, f.ciphersErr
	}
	return append([]domain.CipherRecord{}, f.ciphers[roundId]...), nil
}

func (f *fakeLedger) RegisterRound(
	_ context.Context, roundId uint64, merkleRoot common.Hash, metadataCid string,
) (ports.TxReceipt, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.registerCalls++
	if f.registerErr != nil {
		return ports.TxReceipt{}, f.registerErr
	}
	f.rounds[roundId] = domain.Round{
		Id: roundId, MerkleRoot: merkleRoot, MetadataCid: metadataCid,
	}
	if roundId > f.lastRound {
		f.lastRound = roundId
	}
	return f.mint(fmt.Sprintf("register-%d", roundId)), nil
}

func (f *fakeLedger) PostCipher(
	_ context.Context, roundId uint64, cid string, merkleRoot common.Hash,
) (ports.TxReceipt, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if err := f.postErrByCid[cid]; err != nil {
		return ports.TxReceipt{}, err
	}
	f.ciphers[roundId] = append(f.ciphers[roundId], domain.CipherRecord{
		RoundId: roundId, Cid: cid, MerkleRoot: merkleRoot,
	})
	f.postedCids = append(f.postedCids, cid)
	return f.mint(fmt.Sprintf("post-%d-%s", roundId, cid)), nil
}

func (f *fakeLedger) cidSet(roundId uint64) domain.CidSet {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return domain.NewCidSet(f.ciphers[roundId])
}

func (f *fakeLedger) mint(seed string) ports.TxReceipt {
	f.blockNumber++
	return ports.TxReceipt{
		TxHash:      crypto.Keccak256Hash([]byte(seed)),
		BlockNumber: f.blockNumber,
		Status:      1,
	}
}
