//go:build darwin

package vault

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"

	creatorledger "github.com/Bidon15/creatorledger"
)

// macOSExitAbsent is the `security` CLI's exit code when a generic-password
// item is not found.
const macOSExitAbsent = 44

const keychainService = "CreatorLedger"

// MacOS is the V-macOS vault backend: it shells out to the security CLI to
// store each seed base64-encoded as a generic-password item in the login
// keychain, keyed by account=<creator_id>, service=CreatorLedger.
//
// Subprocess shape mirrors Linux: exec.CommandContext with an explicit
// argv, never a shell string, adapted from the nitro.Deployer worker
// wrapper.
type MacOS struct {
	lookPath func(string) (string, error)
}

// NewMacOS probes for the security CLI and fails with
// platform-not-supported if it is absent.
func NewMacOS() (*MacOS, error) {
	m := &MacOS{lookPath: exec.LookPath}
	if _, err := m.lookPath("security"); err != nil {
		return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: security CLI not found on PATH", creatorledger.ErrPlatformNotSupported))
	}
	return m, nil
}

var _ Vault = (*MacOS)(nil)

func newMacOSOrUnsupported() (Vault, error) {
	return NewMacOS()
}

func nativeVault(_ Options) (Vault, error) {
	return NewMacOS()
}

func (m *MacOS) run(ctx context.Context, args ...string) (stdout, stderr []byte, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, "security", args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	runErr := cmd.Run()
	code := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	return outBuf.Bytes(), errBuf.Bytes(), code, runErr
}

// Store implements Vault.
func (m *MacOS) Store(ctx context.Context, creatorID string, secret *creatorledger.SecretKey) error {
	if err := validateCreatorID(creatorID); err != nil {
		return err
	}
	seed, err := secret.Seed()
	if err != nil {
		return creatorledger.WrapVaultError("store", creatorID, err)
	}
	encoded := base64.StdEncoding.EncodeToString(seed)

	// Clear any existing item first, then add with -U (update if present),
	// so Store stays idempotent.
	_, _, _, _ = m.run(ctx, "delete-generic-password", "-a", creatorID, "-s", keychainService)

	_, stderr, _, err := m.run(ctx,
		"add-generic-password",
		"-a", creatorID,
		"-s", keychainService,
		"-w", encoded,
		"-U",
	)
	if err != nil {
		return creatorledger.WrapVaultError("store", creatorID, fmt.Errorf("%w: security add-generic-password: %v: %s", creatorledger.ErrVaultIO, err, stderr))
	}
	return nil
}

// Retrieve implements Vault.
func (m *MacOS) Retrieve(ctx context.Context, creatorID string) (*creatorledger.SecretKey, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return nil, err
	}
	stdout, stderr, code, err := m.run(ctx, "find-generic-password", "-a", creatorID, "-s", keychainService, "-w")
	if err != nil {
		if code == macOSExitAbsent {
			return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w", ErrAbsent))
		}
		return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w: security find-generic-password: %v: %s", creatorledger.ErrVaultIO, err, stderr))
	}
	seed, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(stdout)))
	if err != nil {
		return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w: malformed keychain payload: %v", creatorledger.ErrVaultIO, err))
	}
	defer secureZero(seed)
	return creatorledger.SecretKeyFromSeed(seed)
}

// Delete implements Vault.
func (m *MacOS) Delete(ctx context.Context, creatorID string) (bool, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return false, err
	}
	existed, err := m.Exists(ctx, creatorID)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	_, stderr, code, err := m.run(ctx, "delete-generic-password", "-a", creatorID, "-s", keychainService)
	if err != nil && code != macOSExitAbsent {
		return false, creatorledger.WrapVaultError("delete", creatorID, fmt.Errorf("%w: security delete-generic-password: %v: %s", creatorledger.ErrVaultIO, err, stderr))
	}
	return true, nil
}

// Exists implements Vault.
func (m *MacOS) Exists(ctx context.Context, creatorID string) (bool, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return false, err
	}
	_, _, code, err := m.run(ctx, "find-generic-password", "-a", creatorID, "-s", keychainService)
	if err != nil {
		if code == macOSExitAbsent {
			return false, nil
		}
		return false, nil
	}
	return true, nil
}
