package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// minPasswordLength applies to new master passwords only.
const minPasswordLength = 8

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // test seams
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptMnemonicFn    = promptMnemonic
	promptConfirmFn     = promptConfirm
)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter master password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minPasswordLength {
		vaultcrypto.Zero(password)
		return nil, walleterr.WithSuggestion(
			walleterr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		vaultcrypto.Zero(password)
		return nil, err
	}
	defer vaultcrypto.Zero(confirm)

	if string(password) != string(confirm) {
		vaultcrypto.Zero(password)
		return nil, walleterr.WithSuggestion(
			walleterr.ErrInvalidInput,
			"passwords do not match",
		)
	}

	return password, nil
}

// promptMnemonic reads a whole mnemonic from one line of stdin.
func promptMnemonic() (string, error) {
	out(os.Stderr, "Enter your recovery phrase, then a blank line: ")
	return readMnemonic(os.Stdin)
}

// readMnemonic collects lines until the phrase validates, a blank line or EOF,
// so a numbered list pasted over several lines arrives whole.
func readMnemonic(r io.Reader) (string, error) {
	reader := bufio.NewReader(r)
	var phrase []string
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			phrase = append(phrase, line)
			if wallet.ValidateMnemonic(strings.Join(phrase, " ")) == nil {
				break
			}
		} else if err == nil {
			break
		}
		if err != nil {
			if len(phrase) == 0 {
				return "", fmt.Errorf("reading mnemonic: %w", err)
			}
			break
		}
	}
	return strings.Join(phrase, "\n"), nil
}

// promptConfirm asks a yes/no question. Anything but y/yes is a no.
func promptConfirm(prompt string) bool {
	out(os.Stderr, "%s [y/N]: ", prompt)

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// confirmPresence is the software authenticator's user-presence check.
func confirmPresence(_ context.Context, prompt string) (bool, error) {
	return promptConfirmFn(prompt), nil
}

// readPassword prompts for a password and returns it as a string.
func readPassword(prompt string) (string, error) {
	pw, err := promptPasswordFn(prompt)
	if err != nil {
		return "", err
	}
	defer vaultcrypto.Zero(pw)
	return string(pw), nil
}
