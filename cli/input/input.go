package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal is a terminal used for input. If `nil`, stdin is used.
var Terminal *term.Terminal

// ReadWriter combines reader and writer.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// ReadLine reads a line from the input without trailing '\n'.
func ReadLine(prompt string) (string, error) {
	trm := Terminal
	if trm == nil {
		s, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return readLineNoTerm(prompt)
		}
		defer func() { _ = term.Restore(int(os.Stdin.Fd()), s) }()
		trm = term.NewTerminal(ReadWriter{
			Reader: os.Stdin,
			Writer: os.Stdout,
		}, prompt)
	} else {
		trm.SetPrompt(prompt)
	}
	line, err := trm.ReadLine()
	return strings.TrimRight(line, "\n"), err
}

func readLineNoTerm(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

// ReadPassword reads the user's password with prompt.
func ReadPassword(prompt string) (string, error) {
	if Terminal != nil {
		return Terminal.ReadPassword(prompt)
	}
	return readSecurePassword(prompt)
}

// ConfirmPassword reads the password twice and checks that both entries
// are the same.
func ConfirmPassword(prompt string) (string, error) {
	phrase, err := ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	confirm, err := ReadPassword("Confirm password > ")
	if err != nil {
		return "", err
	}
	if phrase != confirm {
		return "", fmt.Errorf("the passwords do not match")
	}
	return phrase, nil
}
