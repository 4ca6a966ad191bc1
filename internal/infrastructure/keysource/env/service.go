package envkeysource

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tapfed/relayerd/internal/core/ports"
)

type service struct {
	key *ecdsa.PrivateKey
}

// NewService parses a hex-encoded private key, with or without 0x prefix.
// The key is validated at construction so a bad key fails startup, not the
// first submission.
func NewService(keyHex string) (ports.KeySource, error) {
	if len(keyHex) <= 0 {
		return nil, fmt.Errorf("missing private key")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %s", err)
	}

	return &service{key}, nil
}

func (s *service) PrivateKey(_ context.Context) (*ecdsa.PrivateKey, error) {
	return s.key, nil
}
