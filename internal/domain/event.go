package domain

import "time"

// CreationEvent is one decoded pump.fun token creation, immutable once built.
type CreationEvent struct {
	// Signature is the transaction signature, unique per event within a session.
	Signature string
	Name      string
	Symbol    string
	URI       string

	Mint                   string
	BondingCurve           string
	AssociatedBondingCurve string
	Creator                string
	CreatorVault           string

	// Slot is the slot the notification was observed at.
	Slot int64
	// ObservedAt is the ingest-time timestamp, not chain time.
	ObservedAt time.Time
}

// PumpFunURL returns the token page for the event's mint.
func (e *CreationEvent) PumpFunURL() string {
	return "https://pump.fun/" + e.Mint
}

// SolscanURL returns the transaction explorer page for the event's signature.
func (e *CreationEvent) SolscanURL() string {
	return "https://solscan.io/tx/" + e.Signature
}
