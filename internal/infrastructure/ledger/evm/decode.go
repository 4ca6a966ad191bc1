package evmledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tapfed/relayerd/internal/core/domain"
)

// cipherEntry mirrors the cipher store's record tuple, field order and names
// matching the ABI components.
type cipherEntry struct {
	Poster     common.Address
	RoundId    *big.Int
	Cid        string
	MerkleRoot [32]byte
	Timestamp  *big.Int
}

// decodeRound decodes the output tuple of getRoundInfo:
// (initiator, roundId, merkleRoot, metadataCid, timestamp).
func decodeRound(out []interface{}) (domain.Round, error) {
	if len(out) != 5 {
		return domain.Round{}, fmt.Errorf("expected 5 outputs, got %d", len(out))
	}

	initiator, ok := out[0].(common.Address)
	if !ok {
		return domain.Round{}, fmt.Errorf("initiator is not an address")
	}
	roundId, err := bigAt(out, 1)
	if err != nil {
		return domain.Round{}, err
	}
	root, ok := out[2].([32]byte)
	if !ok {
		return domain.Round{}, fmt.Errorf("merkle root is not bytes32")
	}
	cid, ok := out[3].(string)
	if !ok {
		return domain.Round{}, fmt.Errorf("metadata cid is not a string")
	}
	timestamp, err := bigAt(out, 4)
	if err != nil {
		return domain.Round{}, err
	}

	return domain.Round{
		Id:          roundId.Uint64(),
		Initiator:   initiator,
		MerkleRoot:  common.BytesToHash(root[:]),
		MetadataCid: cid,
		Timestamp:   timestamp.Int64(),
	}, nil
}

// decodeCiphers decodes the output of getCiphers: an ordered array of
// (poster, roundId, cid, merkleRoot, timestamp) tuples. Source order is
// preserved, the mirror relies on it. ConvertType panics when the decoded
// tuple does not line up with cipherEntry, which a divergent ABI artifact
// can produce, so the panic is turned into a decode error here.
func decodeCiphers(out []interface{}) (records []domain.CipherRecord, err error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("expected 1 output, got %d", len(out))
	}

	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("cipher entry shape mismatch: %v", r)
		}
	}()

	entries := *abi.ConvertType(out[0], new([]cipherEntry)).(*[]cipherEntry)

	records = make([]domain.CipherRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.RoundId == nil || entry.Timestamp == nil {
			return nil, fmt.Errorf("cipher entry with missing numeric fields")
		}
		records = append(records, domain.CipherRecord{
			Poster:     entry.Poster,
			RoundId:    entry.RoundId.Uint64(),
			Cid:        entry.Cid,
			MerkleRoot: common.BytesToHash(entry.MerkleRoot[:]),
			Timestamp:  entry.Timestamp.Int64(),
		})
	}
	return records, nil
}

func bigAt(out []interface{}, index int) (*big.Int, error) {
	if index >= len(out) {
		return nil, fmt.Errorf("missing output %d", index)
	}
	value, ok := out[index].(*big.Int)
	if !ok || value == nil {
		return nil, fmt.Errorf("output %d is not a uint256", index)
	}
	return value, nil
}
