//go:build !darwin

package vault

import (
	"fmt"
	"runtime"

	creatorledger "github.com/Bidon15/creatorledger"
)

func newMacOSOrUnsupported() (Vault, error) {
	return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: macos vault requested on %s", creatorledger.ErrPlatformNotSupported, runtime.GOOS))
}
