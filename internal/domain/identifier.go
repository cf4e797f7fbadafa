package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Address identifies an actor or account on the home ledger.
// It is a fixed 32-byte value, rendered as 64 hex characters at the API boundary.
type Address [32]byte

// ParseAddress decodes a 64-character hex string into an Address
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("invalid address %q: expected %d bytes, got %d", s, len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// String returns the hex encoding of the address
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the all-zero value
func (a Address) IsZero() bool {
	return a == Address{}
}

// Hash32 is a 32-byte digest used for merkle roots, schedule IDs and job correlation tokens
type Hash32 [32]byte

// ParseHash32 decodes a 64-character hex string into a Hash32
func ParseHash32(s string) (Hash32, error) {
	var h Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash %q: expected %d bytes, got %d", s, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// String returns the hex encoding of the hash
func (h Hash32) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is the all-zero value
func (h Hash32) IsZero() bool {
	return h == Hash32{}
}

// VaultAuthorityAddress derives the signing identity that controls a vault's
// custodial account. The derivation is deterministic in the vault owner, so the
// authority is a capability tied to the vault rather than an ambient signer.
func VaultAuthorityAddress(owner Address) Address {
	data := make([]byte, 0, len(vaultAuthorityPrefix)+len(owner))
	data = append(data, vaultAuthorityPrefix...)
	data = append(data, owner[:]...)
	return Address(sha256.Sum256(data))
}

// CustodialAccountAddress derives the address of the token account holding a
// vault's escrowed balance.
func CustodialAccountAddress(owner Address) Address {
	data := make([]byte, 0, len(custodialAccountPrefix)+len(owner))
	data = append(data, custodialAccountPrefix...)
	data = append(data, owner[:]...)
	return Address(sha256.Sum256(data))
}

var (
	vaultAuthorityPrefix   = []byte("veilpay/vault-authority/")
	custodialAccountPrefix = []byte("veilpay/vault-ata/")
)
