// Package readpwd obtains the password protecting the master key, from
// the terminal, stdin, or an external password program.
package readpwd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/geneticgrabbag/securefs/internal/tlog"
)

// 2kB limit like EncFS
const maxPasswordLen = 2048

// Once reads a password a single time. extpass, when non-empty, is a
// command whose first stdout line is the password; otherwise the
// terminal is prompted, or stdin consumed when not a terminal.
func Once(extpass string) (string, error) {
	if extpass != "" {
		return fromExtpass(extpass)
	}
	if !terminal.IsTerminal(int(os.Stdin.Fd())) {
		return fromStdin()
	}
	return fromTerminal("Password: ")
}

// Twice prompts twice on the terminal and requires both entries to
// match. Non-interactive sources are read once.
func Twice(extpass string) (string, error) {
	if extpass != "" {
		return fromExtpass(extpass)
	}
	if !terminal.IsTerminal(int(os.Stdin.Fd())) {
		return fromStdin()
	}
	p1, err := fromTerminal("Password: ")
	if err != nil {
		return "", err
	}
	p2, err := fromTerminal("Repeat: ")
	if err != nil {
		return "", err
	}
	if p1 != p2 {
		return "", errors.New("passwords do not match")
	}
	return p1, nil
}

func fromTerminal(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)
	// terminal.ReadPassword removes the trailing newline
	p, err := terminal.ReadPassword(fd)
	fmt.Fprint(os.Stderr, "\n")
	if err != nil {
		return "", fmt.Errorf("could not read password from terminal: %v", err)
	}
	if len(p) == 0 {
		return "", errors.New("password is empty")
	}
	return string(p), nil
}

func fromStdin() (string, error) {
	tlog.Info.Println("Reading password from stdin")
	return readFirstLine(os.Stdin)
}

// fromExtpass executes the extpass command and returns the first line
// of its output. The "-passfile=FILE" option gets transformed to
// "/bin/cat -- FILE"; FILE must not be split on spaces, so that prefix
// is handled specially.
func fromExtpass(extpass string) (string, error) {
	tlog.Info.Println("Reading password from extpass program")
	var parts []string
	if strings.HasPrefix(extpass, PassfileCat) {
		parts = []string{"/bin/cat", "--", extpass[len(PassfileCat):]}
	} else {
		parts = strings.Split(extpass, " ")
	}
	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Stderr = os.Stderr
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("extpass pipe setup failed: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("extpass cmd start failed: %v", err)
	}
	p, err := readFirstLine(pipe)
	pipe.Close()
	if werr := cmd.Wait(); werr != nil {
		return "", fmt.Errorf("extpass program returned an error: %v", werr)
	}
	if err != nil {
		return "", err
	}
	return p, nil
}

// PassfileCat is the command prefix a password file option expands to
const PassfileCat = "/bin/cat -- "

func readFirstLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return "", errors.New("password is empty")
		}
		return "", fmt.Errorf("read password failed: %v", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is empty")
	}
	if len(line) > maxPasswordLen {
		return "", fmt.Errorf("maximum password length of %d bytes exceeded", maxPasswordLen)
	}
	return line, nil
}
