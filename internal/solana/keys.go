// Package solana is a small Solana client: keys, wallet derivation, transaction signing,
// JSON-RPC over HTTP and signature confirmation over WebSocket.
package solana

import (
	"errors"
	"fmt"
	"strings"

	solanago "github.com/gagliardetto/solana-go"
)

// PublicKey is a Solana account address.
type PublicKey = solanago.PublicKey

var ErrInvalidPublicKey = errors.New("invalid public key")

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	if strings.TrimSpace(s) == "" {
		return PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidPublicKey)
	}
	pk, err := solanago.PublicKeyFromBase58(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidPublicKey, s, err)
	}
	return pk, nil
}

// AssociatedTokenAddress returns the canonical token account of owner for mint.
func AssociatedTokenAddress(owner, mint PublicKey) (PublicKey, error) {
	ata, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	return ata, err
}

// WSEndpointFor maps an HTTP RPC endpoint to its WebSocket counterpart.
func WSEndpointFor(rpcEndpoint string) string {
	switch {
	case strings.HasPrefix(rpcEndpoint, "https://"):
		return "wss://" + strings.TrimPrefix(rpcEndpoint, "https://")
	case strings.HasPrefix(rpcEndpoint, "http://"):
		return "ws://" + strings.TrimPrefix(rpcEndpoint, "http://")
	default:
		return rpcEndpoint
	}
}
