package vault

import (
	"fmt"
	"log/slog"
	"runtime"

	creatorledger "github.com/Bidon15/creatorledger"
)

// Options configures Open.
type Options struct {
	// Variant selects a backend explicitly. VariantAuto, or the zero value
	// "", probes the host platform's native backend and falls back to
	// Memory with a logged warning if it is unavailable.
	Variant Variant

	// FileBase is the root directory for the File backend. Required when
	// Variant is VariantFile; when auto-probing resolves to File (on
	// Windows) and FileBase is empty, %LOCALAPPDATA%\creatorledger\vault is
	// used.
	FileBase string

	// Logger receives the fallback warning when auto-probing falls back
	// to Memory. Defaults to slog.Default().
	Logger *slog.Logger
}

// Open constructs a Vault per opts. An explicit Variant that does not match
// the host OS fails with platform-not-supported rather than silently
// falling back — only VariantAuto falls back.
func Open(opts Options) (Vault, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Variant {
	case VariantFile:
		if runtime.GOOS != "windows" {
			return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: file vault requested on %s", creatorledger.ErrPlatformNotSupported, runtime.GOOS))
		}
		if opts.FileBase == "" {
			return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: file vault requires FileBase", creatorledger.ErrInvalidInput))
		}
		return NewFile(opts.FileBase)
	case VariantLinux:
		if runtime.GOOS != "linux" {
			return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: linux vault requested on %s", creatorledger.ErrPlatformNotSupported, runtime.GOOS))
		}
		return newLinuxOrUnsupported()
	case VariantMacOS:
		if runtime.GOOS != "darwin" {
			return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: macos vault requested on %s", creatorledger.ErrPlatformNotSupported, runtime.GOOS))
		}
		return newMacOSOrUnsupported()
	case VariantMemory:
		return NewMemory(), nil
	case VariantAuto, "":
		return openAuto(opts, logger)
	default:
		return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: unknown vault variant %q", creatorledger.ErrInvalidInput, opts.Variant))
	}
}

func openAuto(opts Options, logger *slog.Logger) (Vault, error) {
	v, err := nativeVault(opts)
	if err == nil {
		return v, nil
	}
	logger.Warn("native vault unavailable, falling back to in-process memory vault",
		slog.String("os", runtime.GOOS),
		slog.String("reason", err.Error()),
	)
	return NewMemory(), nil
}
