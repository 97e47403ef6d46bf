//go:build !windows

package vault

import (
	"fmt"

	creatorledger "github.com/Bidon15/creatorledger"
)

// noopProtector reports platform-not-supported for every call: DPAPI is
// Windows-only, so constructing a File vault off Windows still succeeds
// (path-containment logic stays exercisable everywhere) but Store/Retrieve
// fail once they reach the encryption step.
type noopProtector struct{}

func newPlatformProtector() protector {
	return noopProtector{}
}

func (noopProtector) Protect([]byte) ([]byte, error) {
	return nil, fmt.Errorf("dpapi: %w", creatorledger.ErrPlatformNotSupported)
}

func (noopProtector) Unprotect([]byte) ([]byte, error) {
	return nil, fmt.Errorf("dpapi: %w", creatorledger.ErrPlatformNotSupported)
}
