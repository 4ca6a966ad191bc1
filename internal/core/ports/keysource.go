package ports

import (
	"context"
	"crypto/ecdsa"
)

// KeySource provisions the destination-side signing key. The key is resolved
// once at startup and held for the process lifetime.
type KeySource interface {
	PrivateKey(ctx context.Context) (*ecdsa.PrivateKey, error)
}
