package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePubkey_RoundTrip(t *testing.T) {
	raw, err := DecodePubkey(PumpProgram)
	require.NoError(t, err)
	require.Len(t, raw, PubkeyLen)

	assert.Equal(t, PumpProgram, EncodePubkey(raw))
}

func TestDecodePubkey_Invalid(t *testing.T) {
	_, err := DecodePubkey("not-base58-0OIl")
	assert.Error(t, err)

	// Valid base58 but wrong length
	_, err = DecodePubkey("3yZe7d")
	assert.Error(t, err)
}

func TestFindAssociatedTokenAddress(t *testing.T) {
	// Vector computed with an independent implementation of the derivation.
	ata, err := FindAssociatedTokenAddress(
		"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	)
	require.NoError(t, err)
	assert.Equal(t, "FGETo8T8wMcN2wCjav8VK6eh3dLk63evNDPxzLSJra8B", ata)
}

func TestFindProgramAddress_CreatorVault(t *testing.T) {
	creator, err := DecodePubkey("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	require.NoError(t, err)

	vault, err := FindProgramAddress([][]byte{[]byte("creator-vault"), creator}, PumpProgram)
	require.NoError(t, err)
	assert.Equal(t, "36CNecFiDjcw4nydbdVrUYDFhwzWjqhBmmComjAtWAo5", vault)
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	seeds := [][]byte{[]byte("creator-vault"), make([]byte, PubkeyLen)}

	first, err := FindProgramAddress(seeds, PumpProgram)
	require.NoError(t, err)

	second, err := FindProgramAddress(seeds, PumpProgram)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
