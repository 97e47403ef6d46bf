package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	creatorledger "github.com/Bidon15/creatorledger"
)

// protector encrypts/decrypts a seed under an OS-provided user-scoped
// data-protection primitive. On Windows this is DPAPI (protector_windows.go);
// elsewhere Protect/Unprotect report platform-not-supported
// (protector_other.go), since V-File is specified as "Windows-style"
// OS-bound encryption — path resolution itself stays OS-independent so
// ResolveKeyPath can be exercised (and its containment invariant tested) on
// any platform.
type protector interface {
	Protect(plaintext []byte) ([]byte, error)
	Unprotect(ciphertext []byte) ([]byte, error)
}

// File is the V-File vault backend: it encrypts a creator's seed under the
// OS data-protection primitive and writes the ciphertext to
// {base}/{creator_id}.key.
//
// The atomic write (temp file, fsync, rename) and 0600 permissions are
// adapted from bao_store.go's syncLocked.
type File struct {
	base      string
	protector protector
}

// NewFile opens (creating if needed) a V-File vault rooted at base. base is
// created with 0700 permissions if it does not exist.
func NewFile(base string) (*File, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: resolve base: %v", creatorledger.ErrVaultIO, err))
	}
	if err := os.MkdirAll(absBase, 0o700); err != nil {
		return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: mkdir base: %v", creatorledger.ErrVaultIO, err))
	}
	return &File{base: absBase, protector: newPlatformProtector()}, nil
}

var _ Vault = (*File)(nil)

// ResolveKeyPath computes the target file path for creatorID under base and
// enforces the path-containment invariant: the normalised absolute target
// must lie inside the normalised absolute base. It never touches the
// filesystem beyond path normalisation, so it can be exercised standalone
// (property P6 / scenario S6) independent of OS-specific encryption
// availability.
func ResolveKeyPath(base, creatorID string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", creatorledger.WrapVaultError("resolve-path", creatorID, fmt.Errorf("%w: %v", creatorledger.ErrVaultIO, err))
	}
	absBase = filepath.Clean(absBase)

	if err := validateCreatorID(creatorID); err != nil {
		return "", err
	}

	target := filepath.Clean(filepath.Join(absBase, creatorID+".key"))

	rel, err := filepath.Rel(absBase, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", creatorledger.WrapVaultError("resolve-path", creatorID, creatorledger.ErrPathTraversal)
	}
	return target, nil
}

// Store implements Vault.
func (f *File) Store(_ context.Context, creatorID string, secret *creatorledger.SecretKey) error {
	path, err := ResolveKeyPath(f.base, creatorID)
	if err != nil {
		return err
	}
	seed, err := secret.Seed()
	if err != nil {
		return creatorledger.WrapVaultError("store", creatorID, err)
	}
	ciphertext, err := f.protector.Protect(seed)
	if err != nil {
		return creatorledger.WrapVaultError("store", creatorID, err)
	}
	if err := writeFileAtomic(path, ciphertext); err != nil {
		return creatorledger.WrapVaultError("store", creatorID, fmt.Errorf("%w: %v", creatorledger.ErrVaultIO, err))
	}
	return nil
}

// Retrieve implements Vault.
func (f *File) Retrieve(_ context.Context, creatorID string) (*creatorledger.SecretKey, error) {
	path, err := ResolveKeyPath(f.base, creatorID)
	if err != nil {
		return nil, err
	}
	ciphertext, err := os.ReadFile(path) // #nosec G304 -- path validated by ResolveKeyPath's containment check.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w", ErrAbsent))
		}
		return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w: %v", creatorledger.ErrVaultIO, err))
	}
	seed, err := f.protector.Unprotect(ciphertext)
	if err != nil {
		return nil, creatorledger.WrapVaultError("retrieve", creatorID, err)
	}
	defer secureZero(seed)
	return creatorledger.SecretKeyFromSeed(seed)
}

// Delete implements Vault.
func (f *File) Delete(_ context.Context, creatorID string) (bool, error) {
	path, err := ResolveKeyPath(f.base, creatorID)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, creatorledger.WrapVaultError("delete", creatorID, fmt.Errorf("%w: %v", creatorledger.ErrVaultIO, err))
	}
	return true, nil
}

// Exists implements Vault.
func (f *File) Exists(_ context.Context, creatorID string) (bool, error) {
	path, err := ResolveKeyPath(f.base, creatorID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, creatorledger.WrapVaultError("exists", creatorID, fmt.Errorf("%w: %v", creatorledger.ErrVaultIO, err))
}

// writeFileAtomic writes data to path as a crash-safe commit point: write
// temp -> fsync temp -> rename. Adapted from bao_store.go's syncLocked.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	fh, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 -- tmp path derives from the already-containment-checked target path.
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write: %w", err)
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("fsync: %w", err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func secureZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
