package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"time"

	"github.com/robalobadob/colorguess/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// TargetFor returns the deterministic daily color for a date using the first
// three bytes of HMAC(salt, YYYY-MM-DD) as R, G, B.
func TargetFor(date time.Time, salt string) game.Color {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	return game.Color{int(sum[0]), int(sum[1]), int(sum[2])}
}
