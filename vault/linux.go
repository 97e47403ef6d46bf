//go:build linux

package vault

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"

	creatorledger "github.com/Bidon15/creatorledger"
)

// secretToolService names the Secret Service attribute secret-tool stores
// and looks up creator seeds under.
const secretToolService = "CreatorLedger"

// Linux is the V-Linux vault backend: it shells out to secret-tool, the
// freedesktop Secret Service CLI, storing each seed base64-encoded under
// attributes service=CreatorLedger, account=<creator_id>.
//
// The subprocess invocation shape (exec.CommandContext with an explicit
// argv, captured stdout/stderr buffers, no shell interpolation) is adapted
// from the nitro.Deployer worker wrapper.
type Linux struct {
	lookPath func(string) (string, error)
}

// NewLinux probes for secret-tool on PATH and fails with
// platform-not-supported if it is absent.
func NewLinux() (*Linux, error) {
	l := &Linux{lookPath: exec.LookPath}
	if _, err := l.lookPath("secret-tool"); err != nil {
		return nil, creatorledger.WrapVaultError("open", "", fmt.Errorf("%w: secret-tool not found on PATH", creatorledger.ErrPlatformNotSupported))
	}
	return l, nil
}

var _ Vault = (*Linux)(nil)

func newLinuxOrUnsupported() (Vault, error) {
	return NewLinux()
}

func nativeVault(_ Options) (Vault, error) {
	return NewLinux()
}

func (l *Linux) run(ctx context.Context, stdin []byte, args ...string) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, "secret-tool", args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	runErr := cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), runErr
}

// Store implements Vault.
func (l *Linux) Store(ctx context.Context, creatorID string, secret *creatorledger.SecretKey) error {
	if err := validateCreatorID(creatorID); err != nil {
		return err
	}
	seed, err := secret.Seed()
	if err != nil {
		return creatorledger.WrapVaultError("store", creatorID, err)
	}
	encoded := []byte(base64.StdEncoding.EncodeToString(seed))
	_, stderr, err := l.run(ctx, encoded,
		"store", "--label", "CreatorLedger seed: "+creatorID,
		"service", secretToolService,
		"account", creatorID,
	)
	if err != nil {
		return creatorledger.WrapVaultError("store", creatorID, fmt.Errorf("%w: secret-tool store: %v: %s", creatorledger.ErrVaultIO, err, stderr))
	}
	return nil
}

// Retrieve implements Vault.
func (l *Linux) Retrieve(ctx context.Context, creatorID string) (*creatorledger.SecretKey, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return nil, err
	}
	stdout, stderr, err := l.run(ctx, nil,
		"lookup", "service", secretToolService, "account", creatorID,
	)
	if err != nil || len(stdout) == 0 {
		if err == nil {
			return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w", ErrAbsent))
		}
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w", ErrAbsent))
		}
		return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w: secret-tool lookup: %v: %s", creatorledger.ErrVaultIO, err, stderr))
	}
	seed, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(stdout)))
	if err != nil {
		return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w: malformed secret-tool payload: %v", creatorledger.ErrVaultIO, err))
	}
	defer secureZero(seed)
	return creatorledger.SecretKeyFromSeed(seed)
}

// Delete implements Vault.
func (l *Linux) Delete(ctx context.Context, creatorID string) (bool, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return false, err
	}
	existed, err := l.Exists(ctx, creatorID)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	_, stderr, err := l.run(ctx, nil, "clear", "service", secretToolService, "account", creatorID)
	if err != nil {
		return false, creatorledger.WrapVaultError("delete", creatorID, fmt.Errorf("%w: secret-tool clear: %v: %s", creatorledger.ErrVaultIO, err, stderr))
	}
	return true, nil
}

// Exists implements Vault.
func (l *Linux) Exists(ctx context.Context, creatorID string) (bool, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return false, err
	}
	stdout, _, err := l.run(ctx, nil, "lookup", "service", secretToolService, "account", creatorID)
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, nil
	}
	return len(bytes.TrimSpace(stdout)) > 0, nil
}
