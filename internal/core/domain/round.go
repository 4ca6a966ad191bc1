package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Round is the finalized metadata of one protocol epoch as anchored on a
// ledger: the commitment root of the aggregated contributions plus a content
// pointer to the round metadata. Rounds are immutable once registered.
type Round struct {
	Id          uint64
	Initiator   common.Address
	MerkleRoot  common.Hash
	MetadataCid string
	Timestamp   int64
}

// SameContent reports whether two rounds carry the same anchored facts,
// ignoring initiator and timestamp which are ledger-local.
func (r Round) SameContent(other Round) bool {
	return r.MerkleRoot == other.MerkleRoot && r.MetadataCid == other.MetadataCid
}

// IsZero reports whether the round was never registered on the ledger it was
// read from. An all-zero merkle root and empty cid is what an uninitialized
// registry slot decodes to.
func (r Round) IsZero() bool {
	return r.MerkleRoot == (common.Hash{}) && r.MetadataCid == ""
}
