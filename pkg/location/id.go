package location

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// SessionPrefix marks watch session ids.
const SessionPrefix = "watch_"

var sessionSeq atomic.Uint64

// newSessionID returns an id unique for the process lifetime: a monotonic
// sequence number plus a random UUID.
func newSessionID() string {
	return fmt.Sprintf("%s%d_%s", SessionPrefix, sessionSeq.Add(1), uuid.NewString())
}
