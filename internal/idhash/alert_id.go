package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeAlertID computes a deterministic alert_id using SHA256.
// Formula: SHA256(signature|channel|mint)
// Returns hex-encoded hash (64 characters). The same event delivered to the
// same channel always yields the same ID, which lets the alert history store
// enforce at-most-one record per (event, channel) via its unique key.
func ComputeAlertID(signature, channel, mint string) string {
	data := fmt.Sprintf("%s|%s|%s", signature, channel, mint)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
