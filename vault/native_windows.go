//go:build windows

package vault

import (
	"os"
	"path/filepath"
)

// nativeVault on Windows is the File backend under DPAPI, rooted at
// %LOCALAPPDATA%\creatorledger\vault unless Options.FileBase overrides it.
func nativeVault(opts Options) (Vault, error) {
	base := opts.FileBase
	if base == "" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = os.TempDir()
		}
		base = filepath.Join(localAppData, "creatorledger", "vault")
	}
	return NewFile(base)
}
