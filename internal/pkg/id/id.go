package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ForTick returns a ULID stamped with the tick instant, so run ids of
// successive scheduler ticks sort in firing order in the logs.
func ForTick(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
