package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const numberAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

// NewOrderNumber returns a human-readable order reference like
// RV-20240601-K7M2Q9. The suffix alphabet drops ambiguous characters.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			suffix[i] = numberAlphabet[int(now.UnixNano())%len(numberAlphabet)]
			continue
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("RV-%s-%s", now.Format("20060102"), suffix)
}
