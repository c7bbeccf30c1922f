// Package decode turns raw log notifications into creation events.
package decode

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/solana"
)

// CreateDiscriminator is the little-endian u64 tag identifying the pump.fun
// Create instruction payload.
const CreateDiscriminator uint64 = 8530921459188068891

const (
	triggerLog = "Program log: Instruction: Create"
	// Token account creation shares the Create marker prefix and must be skipped.
	skipLog    = "Program log: Instruction: CreateTokenAccount"
	dataPrefix = "Program data: "
)

// ErrTruncated indicates a create payload shorter than its declared layout.
var ErrTruncated = errors.New("create payload truncated")

// Decoder validates and decodes raw frames. Most frames are irrelevant and
// decode to no event without error.
type Decoder struct {
	logger *log.Logger
}

// NewDecoder creates a Decoder.
func NewDecoder(logger *log.Logger) *Decoder {
	if logger == nil {
		logger = log.Default()
	}
	return &Decoder{logger: logger}
}

// Decode extracts zero-or-one CreationEvent from a notification.
// It returns (nil, nil) for frames without the trigger marker or with a
// different instruction discriminator; an error only for payloads that carry
// the create discriminator but are malformed.
func (d *Decoder) Decode(n solana.LogNotification, observedAt time.Time) (*domain.CreationEvent, error) {
	if !containsLog(n.Logs, triggerLog) {
		return nil, nil
	}
	if containsLog(n.Logs, skipLog) {
		return nil, nil
	}

	for _, line := range n.Logs {
		idx := strings.Index(line, dataPrefix)
		if idx < 0 {
			continue
		}

		payload, err := base64.StdEncoding.DecodeString(line[idx+len(dataPrefix):])
		if err != nil {
			// Not the instruction data line we are after.
			continue
		}

		if len(payload) < 8 {
			continue
		}
		if binary.LittleEndian.Uint64(payload[:8]) != CreateDiscriminator {
			// Different event type sharing the log marker; not an error.
			continue
		}

		event, err := d.decodeCreate(payload[8:], n, observedAt)
		if err != nil {
			return nil, fmt.Errorf("decode create %s: %w", n.Signature, err)
		}
		return event, nil
	}

	return nil, nil
}

// decodeCreate decodes the payload after the discriminator: three
// length-prefixed strings (name, symbol, uri) followed by the mint, bonding
// curve, user and creator public keys, then derives the dependent addresses.
func (d *Decoder) decodeCreate(buf []byte, n solana.LogNotification, observedAt time.Time) (*domain.CreationEvent, error) {
	r := reader{buf: buf}

	name, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	symbol, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	uri, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("uri: %w", err)
	}

	mintRaw, err := r.readPubkey()
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	curveRaw, err := r.readPubkey()
	if err != nil {
		return nil, fmt.Errorf("bonding curve: %w", err)
	}
	// The user key is carried in the payload but the creator key is what
	// filtering and vault derivation operate on.
	if _, err := r.readPubkey(); err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	creatorRaw, err := r.readPubkey()
	if err != nil {
		return nil, fmt.Errorf("creator: %w", err)
	}

	mint := solana.EncodePubkey(mintRaw)
	curve := solana.EncodePubkey(curveRaw)
	creator := solana.EncodePubkey(creatorRaw)

	associated, err := solana.FindAssociatedTokenAddress(curve, mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated curve: %w", err)
	}

	vault, err := solana.FindProgramAddress([][]byte{[]byte("creator-vault"), creatorRaw}, solana.PumpProgram)
	if err != nil {
		return nil, fmt.Errorf("derive creator vault: %w", err)
	}

	return &domain.CreationEvent{
		Signature:              n.Signature,
		Name:                   name,
		Symbol:                 symbol,
		URI:                    uri,
		Mint:                   mint,
		BondingCurve:           curve,
		AssociatedBondingCurve: associated,
		Creator:                creator,
		CreatorVault:           vault,
		Slot:                   n.Slot,
		ObservedAt:             observedAt,
	}, nil
}

func containsLog(logs []string, marker string) bool {
	for _, line := range logs {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// reader walks a little-endian borsh-style payload.
type reader struct {
	buf []byte
	off int
}

func (r *reader) readString() (string, error) {
	if r.off+4 > len(r.buf) {
		return "", ErrTruncated
	}
	length := int(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4

	if length < 0 || r.off+length > len(r.buf) {
		return "", ErrTruncated
	}
	s := string(r.buf[r.off : r.off+length])
	r.off += length
	return s, nil
}

func (r *reader) readPubkey() ([]byte, error) {
	if r.off+solana.PubkeyLen > len(r.buf) {
		return nil, ErrTruncated
	}
	raw := r.buf[r.off : r.off+solana.PubkeyLen]
	r.off += solana.PubkeyLen
	return raw, nil
}
