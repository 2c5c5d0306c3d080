package evm

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PassphraseSource yields the keystore passphrase when a wallet is opened.
type PassphraseSource func(ctx context.Context) (string, error)

// StaticPassphrase always returns value.
func StaticPassphrase(value string) PassphraseSource {
	return func(context.Context) (string, error) { return value, nil }
}

// EnvPassphrase reads the passphrase from an environment variable at open time.
func EnvPassphrase(name string) PassphraseSource {
	return func(context.Context) (string, error) {
		name = strings.TrimSpace(name)
		if name == "" {
			return "", fmt.Errorf("passphrase env not configured")
		}
		value, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %s not set", name)
		}
		return value, nil
	}
}

// TerminalPassphrase prompts on the controlling terminal without echo.
func TerminalPassphrase(prompt string, out io.Writer) PassphraseSource {
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("stdin is not a terminal")
		}
		if out == nil {
			out = os.Stderr
		}
		fmt.Fprint(out, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}
