package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"lottery-bridge-lab/internal/domain"
)

// ComputeBridgeID computes a deterministic bridge_id using SHA256.
// Formula: SHA256(kind|operand_a|operand_b|k_offset)
// Returns hex-encoded hash (64 characters).
func ComputeBridgeID(spec domain.BridgeSpec) string {
	data := fmt.Sprintf("%s|%d|%d|%d",
		string(spec.Kind),
		spec.OperandA,
		spec.OperandB,
		spec.KOffset,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
