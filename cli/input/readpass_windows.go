//go:build windows

package input

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

func readSecurePassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(os.Stderr)
	return string(pass), nil
}
