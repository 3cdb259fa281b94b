// Package identity derives content-addressed identifiers for balance records.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	separator  = "|"
	dateLayout = "2006-01-02"
)

// BalanceID hashes the natural key of a balance line. Missing parts hash as
// empty strings; a nil date hashes as an empty string as well. The result is
// the 64 character lowercase hex of the SHA-256 digest.
func BalanceID(warehouseID, productID, batchNumber string, balanceDate *time.Time) string {
	date := ""
	if balanceDate != nil {
		date = balanceDate.Format(dateLayout)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{warehouseID, productID, batchNumber, date}, separator)))
	return hex.EncodeToString(sum[:])
}
