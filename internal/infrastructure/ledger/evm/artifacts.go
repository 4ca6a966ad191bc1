package evmledger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Default ABIs for the two known contracts. Deployments that diverge can
// point the relayer at their own artifact files instead.
const (
	registryABIJSON = `[
	  {"type":"function","name":"lastRound","stateMutability":"view","inputs":[],
	   "outputs":[{"name":"","type":"uint256"}]},
	  {"type":"function","name":"getRoundInfo","stateMutability":"view",
	   "inputs":[{"name":"roundId","type":"uint256"}],
	   "outputs":[
	     {"name":"initiator","type":"address"},
	     {"name":"roundId","type":"uint256"},
	     {"name":"merkleRoot","type":"bytes32"},
	     {"name":"metadataCid","type":"string"},
	     {"name":"timestamp","type":"uint256"}]},
	  {"type":"function","name":"registerRound","stateMutability":"nonpayable",
	   "inputs":[
	     {"name":"roundId","type":"uint256"},
	     {"name":"merkleRoot","type":"bytes32"},
	     {"name":"metadataCid","type":"string"}],
	   "outputs":[]}
	]`

	cipherABIJSON = `[
	  {"type":"function","name":"getCiphers","stateMutability":"view",
	   "inputs":[{"name":"roundId","type":"uint256"}],
	   "outputs":[{"name":"","type":"tuple[]","components":[
	     {"name":"poster","type":"address"},
	     {"name":"roundId","type":"uint256"},
	     {"name":"cid","type":"string"},
	     {"name":"merkleRoot","type":"bytes32"},
	     {"name":"timestamp","type":"uint256"}]}]},
	  {"type":"function","name":"postCipher","stateMutability":"nonpayable",
	   "inputs":[
	     {"name":"roundId","type":"uint256"},
	     {"name":"cid","type":"string"},
	     {"name":"merkleRoot","type":"bytes32"}],
	   "outputs":[]}
	]`
)

func DefaultRegistryABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(registryABIJSON))
}

func DefaultCipherABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(cipherABIJSON))
}

// LoadABI reads an ABI from a compiler artifact file. Both a full artifact
// holding the abi under an "abi" key and a bare abi array are accepted.
func LoadABI(path string) (abi.ABI, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read abi artifact: %s", err)
	}
	return ParseABI(buf)
}

func ParseABI(buf []byte) (abi.ABI, error) {
	var artifact struct {
		Abi json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(buf, &artifact); err == nil && len(artifact.Abi) > 0 {
		buf = artifact.Abi
	}

	parsed, err := abi.JSON(strings.NewReader(string(buf)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse abi: %s", err)
	}
	return parsed, nil
}
