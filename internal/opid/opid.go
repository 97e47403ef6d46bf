// Package opid generates monotonic, sortable operation identifiers used to
// correlate a single Append or RegisterCreator call across its log lines.
//
// Adapted from control-plane/internal/pkg/ulid/ulid.go.
package opid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// New generates a new operation id.
func New() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// IsValid reports whether s parses as a well-formed operation id.
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}
