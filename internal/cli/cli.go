// Package cli implements zfill's command-line subcommands.
package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zfill/internal/store"
	"golang.org/x/term"
)

// ReadPassword prompts on w and reads a line from the terminal without echo.
func ReadPassword(prompt string, w io.Writer) ([]byte, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return b, nil
}

// ReadNewPassword prompts for a new password with confirmation.
func ReadNewPassword(w io.Writer) ([]byte, error) {
	pass, err := ReadPassword("master password: ", w)
	if err != nil {
		return nil, err
	}
	confirm, err := ReadPassword("confirm password: ", w)
	if err != nil {
		zcrypto.Erase(pass)
		return nil, err
	}
	defer zcrypto.Erase(confirm)

	if !bytes.Equal(pass, confirm) {
		zcrypto.Erase(pass)
		return nil, fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

// IsFirstRun checks whether the vault has been initialized.
func IsFirstRun(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "salt"))
	return err != nil
}

// OpenStore prompts for the master password and opens the vault in dir.
func OpenStore(dir string) (*store.Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var pass []byte
	var err error
	if IsFirstRun(dir) {
		pass, err = ReadNewPassword(os.Stderr)
	} else {
		pass, err = ReadPassword("master password: ", os.Stderr)
	}
	if err != nil {
		return nil, err
	}

	return store.Open(zfilesystem.NewOSFileSystem(dir), pass)
}
