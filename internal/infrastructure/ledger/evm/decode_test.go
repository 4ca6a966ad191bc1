package evmledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestDecodeRound(t *testing.T) {
	registryABI, err := DefaultRegistryABI()
	require.NoError(t, err)
	outputs := registryABI.Methods["getRoundInfo"].Outputs

	initiator := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	root := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

	packed, err := outputs.Pack(
		initiator, big.NewInt(7), [32]byte(root), "bafy-meta", big.NewInt(1700000000),
	)
	require.NoError(t, err)

	out, err := outputs.Unpack(packed)
	require.NoError(t, err)

	round, err := decodeRound(out)
	require.NoError(t, err)
	require.Equal(t, uint64(7), round.Id)
	require.Equal(t, initiator, round.Initiator)
	require.Equal(t, root, round.MerkleRoot)
	require.Equal(t, "bafy-meta", round.MetadataCid)
	require.Equal(t, int64(1700000000), round.Timestamp)
}

func TestDecodeRoundInvalidOutputs(t *testing.T) {
	tests := []struct {
		description string
		out         []interface{}
		expectedErr string
	}{
		{
			description: "wrong arity",
			out:         []interface{}{big.NewInt(1)},
			expectedErr: "expected 5 outputs",
		},
		{
			description: "wrong initiator type",
			out: []interface{}{
				"not-an-address", big.NewInt(1), [32]byte{}, "cid", big.NewInt(1),
			},
			expectedErr: "initiator is not an address",
		},
		{
			description: "wrong round id type",
			out: []interface{}{
				common.Address{}, uint64(1), [32]byte{}, "cid", big.NewInt(1),
			},
			expectedErr: "output 1 is not a uint256",
		},
		{
			description: "wrong merkle root type",
			out: []interface{}{
				common.Address{}, big.NewInt(1), []byte{0x01}, "cid", big.NewInt(1),
			},
			expectedErr: "merkle root is not bytes32",
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := decodeRound(tt.out)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestDecodeCiphers(t *testing.T) {
	cipherABI, err := DefaultCipherABI()
	require.NoError(t, err)
	outputs := cipherABI.Methods["getCiphers"].Outputs

	entries := []cipherEntry{
		{
			Poster:     common.HexToAddress("0x00000000000000000000000000000000000000b1"),
			RoundId:    big.NewInt(7),
			Cid:        "bafy-c1",
			MerkleRoot: [32]byte{0x01},
			Timestamp:  big.NewInt(1700000001),
		},
		{
			Poster:     common.HexToAddress("0x00000000000000000000000000000000000000b2"),
			RoundId:    big.NewInt(7),
			Cid:        "bafy-c2",
			MerkleRoot: [32]byte{0x02},
			Timestamp:  big.NewInt(1700000002),
		},
	}

	packed, err := outputs.Pack(entries)
	require.NoError(t, err)

	out, err := outputs.Unpack(packed)
	require.NoError(t, err)

	records, err := decodeCiphers(out)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Source order must survive decoding, the mirror relies on it.
	require.Equal(t, "bafy-c1", records[0].Cid)
	require.Equal(t, "bafy-c2", records[1].Cid)
	for i, record := range records {
		require.Equal(t, entries[i].Poster, record.Poster)
		require.Equal(t, uint64(7), record.RoundId)
		require.Equal(t, common.BytesToHash(entries[i].MerkleRoot[:]), record.MerkleRoot)
		require.Equal(t, entries[i].Timestamp.Int64(), record.Timestamp)
	}
}

func TestDecodeCiphersDivergentTuple(t *testing.T) {
	divergentABI, err := ParseABI([]byte(`[
	  {"type":"function","name":"getCiphers","stateMutability":"view",
	   "inputs":[{"name":"roundId","type":"uint256"}],
	   "outputs":[{"name":"","type":"tuple[]","components":[
	     {"name":"cid","type":"string"},
	     {"name":"merkleRoot","type":"bytes32"}]}]}
	]`))
	require.NoError(t, err)
	outputs := divergentABI.Methods["getCiphers"].Outputs

	type slimEntry struct {
		Cid        string
		MerkleRoot [32]byte
	}
	packed, err := outputs.Pack([]slimEntry{
		{Cid: "bafy-c1", MerkleRoot: [32]byte{0x01}},
	})
	require.NoError(t, err)

	out, err := outputs.Unpack(packed)
	require.NoError(t, err)

	// A record tuple that diverges from the expected shape must surface as a
	// decode error, never escape as a panic.
	records, err := decodeCiphers(out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "shape mismatch")
	require.Nil(t, records)
}

func TestDecodeCiphersEmpty(t *testing.T) {
	cipherABI, err := DefaultCipherABI()
	require.NoError(t, err)
	outputs := cipherABI.Methods["getCiphers"].Outputs

	packed, err := outputs.Pack([]cipherEntry{})
	require.NoError(t, err)

	out, err := outputs.Unpack(packed)
	require.NoError(t, err)

	records, err := decodeCiphers(out)
	require.NoError(t, err)
	require.Empty(t, records)
}
