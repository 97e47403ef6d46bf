//go:build !linux && !darwin && !windows

package vault

import (
	"fmt"
	"runtime"

	creatorledger "github.com/Bidon15/creatorledger"
)

// nativeVault has no native backend on unrecognised platforms; callers of
// Open with VariantAuto fall back to Memory.
func nativeVault(Options) (Vault, error) {
	return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: no native vault backend for %s", creatorledger.ErrPlatformNotSupported, runtime.GOOS))
}
