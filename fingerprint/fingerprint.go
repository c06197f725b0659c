// Package fingerprint maps external voter identities to fixed-size,
// collision-resistant keys so raw identities never have to be stored.
package fingerprint

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// KeySize is the fingerprint width in bytes.
const KeySize = 32

// Key is a derived lookup key standing in for a voter's real identity.
type Key [KeySize]byte

func (k Key) Hex() string {
	return hexutil.Encode(k[:])
}

func KeyFromHex(s string) (Key, error) {
	var key Key
	raw, err := hexutil.Decode(s)
	if err != nil {
		return key, fmt.Errorf("failed to decode fingerprint key: %w", err)
	}
	if len(raw) != KeySize {
		return key, fmt.Errorf("invalid fingerprint key size: expected %d, got %d", KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Fingerprinter derives a Key from an external identity. Implementations must
// be deterministic; distinct identities must not collide in practice.
type Fingerprinter interface {
	Fingerprint(identity string) Key
}

// Keccak fingerprints identities with keccak-256, the same hash the source
// system uses for address derivation. Production default.
type Keccak struct{}

func (Keccak) Fingerprint(identity string) Key {
	var key Key
	copy(key[:], crypto.Keccak256([]byte(identity)))
	return key
}

// SHA3 fingerprints identities with standard SHA3-256.
type SHA3 struct{}

func (SHA3) Fingerprint(identity string) Key {
	return Key(sha3.Sum256([]byte(identity)))
}

// ByName returns the fingerprinter for a configuration name.
func ByName(name string) (Fingerprinter, error) {
	switch name {
	case "keccak":
		return Keccak{}, nil
	case "sha3":
		return SHA3{}, nil
	default:
		return nil, fmt.Errorf("unknown fingerprint scheme: %s", name)
	}
}
