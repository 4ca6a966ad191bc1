package filekeysource

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tapfed/relayerd/internal/core/ports"
)

type service struct {
	path string
}

// NewService reads the hex-encoded private key from a file at resolution
// time, so key rotation only needs a process restart.
func NewService(path string) (ports.KeySource, error) {
	if len(path) <= 0 {
		return nil, fmt.Errorf("missing private key file path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("invalid private key file path: %s", err)
	}

	return &service{path}, nil
}

func (s *service) PrivateKey(_ context.Context) (*ecdsa.PrivateKey, error) {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %s", err)
	}

	keyHex := strings.TrimSpace(string(buf))
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %s", err)
	}
	return key, nil
}
