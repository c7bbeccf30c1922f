package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses used by pump.fun token creation.
const (
	// PumpProgram is the pump.fun bonding curve program ID.
	PumpProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// TokenProgram is the SPL token program ID.
	TokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	// AssociatedTokenProgram is the SPL associated token account program ID.
	AssociatedTokenProgram = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// PubkeyLen is the byte length of a Solana public key.
const PubkeyLen = 32

// DecodePubkey decodes a base58 address into its 32 raw bytes.
func DecodePubkey(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", addr, err)
	}
	if len(raw) != PubkeyLen {
		return nil, fmt.Errorf("pubkey %q: expected %d bytes, got %d", addr, PubkeyLen, len(raw))
	}
	return raw, nil
}

// EncodePubkey encodes 32 raw bytes as a base58 address.
func EncodePubkey(raw []byte) string {
	return base58.Encode(raw)
}

// FindProgramAddress derives a Program Derived Address from seeds and a program ID.
// The derivation appends a bump byte (searched downward from 255), the program ID
// and the "ProgramDerivedAddress" marker, hashes with SHA-256, and accepts the
// first result that is not a valid ed25519 curve point. Same inputs always yield
// the same address.
func FindProgramAddress(seeds [][]byte, programID string) (string, error) {
	program, err := DecodePubkey(programID)
	if err != nil {
		return "", err
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 64)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, program...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}

	return "", fmt.Errorf("no off-curve address found for program %s", programID)
}

// FindAssociatedTokenAddress derives the associated token account for a
// wallet/mint pair using the standard ATA seed layout.
func FindAssociatedTokenAddress(wallet, mint string) (string, error) {
	walletRaw, err := DecodePubkey(wallet)
	if err != nil {
		return "", err
	}
	tokenProgramRaw, err := DecodePubkey(TokenProgram)
	if err != nil {
		return "", err
	}
	mintRaw, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}

	return FindProgramAddress([][]byte{walletRaw, tokenProgramRaw, mintRaw}, AssociatedTokenProgram)
}

// isOnCurve reports whether the 32 bytes decode to a valid ed25519 point.
func isOnCurve(point []byte) bool {
	if len(point) != PubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
