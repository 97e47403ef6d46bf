//go:build !linux

package vault

import (
	"fmt"
	"runtime"

	creatorledger "github.com/Bidon15/creatorledger"
)

func newLinuxOrUnsupported() (Vault, error) {
	return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: linux vault requested on %s", creatorledger.ErrPlatformNotSupported, runtime.GOOS))
}
