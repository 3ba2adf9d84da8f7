// internal/daily/daily.go
//
// Daily boards: every player who asks for today's board gets the same layout.
// The shuffle seed is derived from HMAC(salt, YYYY-MM-DD) so it cannot be
// guessed without the salt.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the deterministic shuffle seed for the UTC date of t.
func Seed(t time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(t)))
	sum := h.Sum(nil)
	// first 8 bytes, sign bit cleared so the seed stays non-negative
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}
