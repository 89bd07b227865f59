package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewRunID returns a random identifier for a backtest or scan run.
func NewRunID() string {
	return uuid.NewString()
}

// ComputeDrawHash computes a content hash of a draw using SHA256.
// Formula: SHA256(period_id|gdb|g1|...|g7)
// Re-imports compare hashes to detect corrected results.
func ComputeDrawHash(periodID string, tiers []string) string {
	data := fmt.Sprintf("%s|%s", periodID, strings.Join(tiers, "|"))

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
