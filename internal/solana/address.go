package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of a decoded Solana public key.
const PublicKeyLength = 32

// Address kinds reported by AddressKind.
const (
	AddressKindWallet  = "wallet"
	AddressKindDerived = "program-derived"
)

// ValidateAddress checks that s is a base58 encoded 32-byte public key.
func ValidateAddress(s string) error {
	_, err := decodeAddress(s)
	return err
}

// IsOnCurve reports whether the address is a valid ed25519 point.
// Program-derived addresses are off curve by construction.
func IsOnCurve(s string) (bool, error) {
	raw, err := decodeAddress(s)
	if err != nil {
		return false, err
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil, nil
}

// AddressKind classifies a valid address as a wallet or program-derived address.
func AddressKind(s string) (string, error) {
	onCurve, err := IsOnCurve(s)
	if err != nil {
		return "", err
	}
	if onCurve {
		return AddressKindWallet, nil
	}
	return AddressKindDerived, nil
}

func decodeAddress(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != PublicKeyLength {
		return nil, fmt.Errorf("%w: %s: decoded length %d", ErrInvalidAddress, s, len(raw))
	}
	return raw, nil
}
