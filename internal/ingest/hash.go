// Package ingest drives an Upload through the pipeline: raw-line
// intake, separator and mapping detection, batched transform and
// categorization, and dedup-aware persistence.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TransactionHash derives the dedup digest for a transaction. It is a
// pure function of the identifying fields, so re-processing the same
// line after a crash produces the same hash and the insert is a no-op.
func TransactionHash(userID, date string, amount float64, currency, kind, description string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.2f|%s|%s|%s", userID, date, amount, currency, kind, description)
	return hex.EncodeToString(h.Sum(nil))
}
