// Package editor runs the user's external editor on a temporary file.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

const defaultEditor = "vi"

// Error reports that the editor could not be launched or its file could not be read back.
type Error struct {
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("editor %q failed: %v", e.Command, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Resolve picks the editor command: the configured value, then $VISUAL, then
// $EDITOR, then vi.
func Resolve(configured string) string {
	for _, candidate := range []string{configured, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if candidate != "" {
			return candidate
		}
	}
	return defaultEditor
}

// Launcher opens an editor command such as "code --wait" on a temporary file.
type Launcher struct {
	Command string
	Suffix  string // temp file suffix, e.g. ".go" for syntax highlighting

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	logger *slog.Logger
}

func NewLauncher(command, suffix string, logger *slog.Logger) *Launcher {
	return &Launcher{
		Command: command,
		Suffix:  suffix,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		logger:  logger,
	}
}

// Edit writes initial to a temporary file, waits for the editor to exit and
// returns the saved content. A non-zero exit status keeps initial unchanged.
func (l *Launcher) Edit(ctx context.Context, initial string) (string, error) {
	words, err := shellquote.Split(l.Command)
	if err != nil {
		return "", &Error{Command: l.Command, Err: err}
	}
	if len(words) == 0 {
		return "", &Error{Command: l.Command, Err: errors.New("empty command")}
	}

	f, err := os.CreateTemp("", "ai-cli-edit-*"+l.Suffix)
	if err != nil {
		return "", &Error{Command: l.Command, Err: err}
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", &Error{Command: l.Command, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &Error{Command: l.Command, Err: err}
	}

	cmd := exec.CommandContext(ctx, words[0], append(words[1:], path)...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	l.logger.Debug("launching editor", "command", l.Command, "file", path)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			l.logger.Warn("editor exited with non-zero status, keeping content unchanged",
				"command", l.Command, "status", exitErr.ExitCode())
			return initial, nil
		}
		return "", &Error{Command: l.Command, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Command: l.Command, Err: err}
	}
	return string(data), nil
}
