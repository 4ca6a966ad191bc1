package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
)

// CipherRecord is a per-participant encrypted-contribution reference anchored
// to a round. Records are keyed by cid within a round; the ledger itself does
// not reject duplicate posts, so dedup is the relayer's job.
type CipherRecord struct {
	Poster     common.Address
	RoundId    uint64
	Cid        string
	MerkleRoot common.Hash
	Timestamp  int64
}

// ValidCid reports whether the record's content identifier parses as a CID.
// The ledger treats cids as opaque strings, so this is advisory only.
func (c CipherRecord) ValidCid() bool {
	_, err := cid.Decode(c.Cid)
	return err == nil
}

// CidSet tracks which cids are already known on the destination for one
// round. It is extended in memory while a batch is mirrored so the same cid
// is never submitted twice within a batch.
type CidSet map[string]struct{}

func NewCidSet(records []CipherRecord) CidSet {
	set := make(CidSet, len(records))
	for _, record := range records {
		set[record.Cid] = struct{}{}
	}
	return set
}

func (s CidSet) Has(cid string) bool {
	_, ok := s[cid]
	return ok
}

func (s CidSet) Add(cid string) {
	s[cid] = struct{}{}
}

const (
	MirrorStatusPosted  = "posted"
	MirrorStatusSkipped = "skipped"
	MirrorStatusFailed  = "failed"
)

// MirrorOutcome is the result of mirroring one cipher record.
type MirrorOutcome struct {
	Index  int
	Cid    string
	TxHash common.Hash
	Status string
}
