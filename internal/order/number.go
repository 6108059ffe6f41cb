package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	numberSuffixLen = 5
	base36          = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NumberGenerator produces a human-readable order number for the given
// creation time.
type NumberGenerator func(now time.Time) string

// GenerateOrderNumber returns ORD-YYYYMMDD-HHMMSS-mmm-XXXXX where XXXXX is
// random base36. Uniqueness is enforced by the orders_order_number_key index.
func GenerateOrderNumber(now time.Time) string {
	now = now.UTC()

	datePart := now.Format("20060102-150405")
	millis := now.Nanosecond() / int(time.Millisecond)

	return fmt.Sprintf("ORD-%s-%03d-%s", datePart, millis, randomSuffix(now))
}

func randomSuffix(now time.Time) string {
	upper := big.NewInt(int64(len(base36)))
	buf := make([]byte, numberSuffixLen)

	for i := range buf {
		n, err := rand.Int(rand.Reader, upper)
		if err != nil {
			// fallback: time-based entropy
			n = big.NewInt((now.UnixNano() >> (i * 5)) % int64(len(base36)))
		}
		buf[i] = base36[n.Int64()]
	}

	return string(buf)
}
