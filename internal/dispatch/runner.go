package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for the output pipes after the
// command was killed.
const waitDelay = 2 * time.Second

// Cmd is one external command.
type Cmd struct {
	Name string
	Args []string
	Dir  string
}

// String renders the command as a shell line, quoting where needed.
func (c Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, shellQuote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, shellQuote(a))
	}
	line := strings.Join(parts, " ")
	if c.Dir != "" {
		line = "cd " + shellQuote(c.Dir) + " && " + line
	}
	return line
}

// Runner executes submission commands. The dispatcher only sees the exit
// status and the combined output.
type Runner interface {
	Run(ctx context.Context, c Cmd) ([]byte, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// Run starts the command and waits for it. A context deadline kills the
// command's whole process group and surfaces as context.DeadlineExceeded.
func (ExecRunner) Run(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out.Bytes(), fmt.Errorf("%s: %w", c.Name, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.Bytes(), fmt.Errorf("%w: %s exited with code %d: %s", ErrSubmission, c.Name, exitErr.ExitCode(), lastLine(out.String()))
		}
		return out.Bytes(), fmt.Errorf("%w: %s: %w", ErrSubmission, c.Name, err)
	}
	return out.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// shellQuote wraps s in single quotes unless it only holds safe characters.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
