// Package prompt reads single lines of user input with cancellation support.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

var (
	// ErrInterrupted is returned when the user aborts a prompt with Ctrl-C.
	ErrInterrupted = errors.New("interrupted")

	// ErrNoTerminal indicates no terminal is available for interactive input.
	ErrNoTerminal = errors.New("no terminal available for prompting")
)

// Prompter reads one line of input after showing a prompt.
type Prompter interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
	Close() error
}

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Open returns a line-editing prompter when stdin is a terminal, and falls
// back to the controlling terminal when stdin is piped.
func Open(out io.Writer) (Prompter, error) {
	if IsTerminal(os.Stdin) {
		return NewLiner(), nil
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTerminal, err)
	}
	return NewReader(tty, out), nil
}

// Liner prompts with line editing on the process terminal. The terminal is
// only switched to raw mode once the first prompt is shown, so typing
// before that still echoes.
type Liner struct {
	state *liner.State
}

func NewLiner() *Liner {
	return &Liner{}
}

func (l *Liner) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if l.state == nil {
		l.state = liner.NewLiner()
		l.state.SetCtrlCAborts(true)
	}
	line, err := l.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrInterrupted
	}
	return line, err
}

func (l *Liner) Close() error {
	if l.state == nil {
		return nil
	}
	return l.state.Close()
}

type lineResult struct {
	line string
	err  error
}

// Reader prompts on out and reads lines from in. A background goroutine
// reads one line per request, so in is never read while no prompt is
// waiting, and a cancelled prompt hands its line to the next one.
type Reader struct {
	in       io.Reader
	out      io.Writer
	requests chan struct{}
	lines    chan lineResult
	pending  bool
	once     sync.Once
}

func NewReader(in io.Reader, out io.Writer) *Reader {
	return &Reader{
		in:       in,
		out:      out,
		requests: make(chan struct{}),
		lines:    make(chan lineResult, 1),
	}
}

func (r *Reader) pump() {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for range r.requests {
		if scanner.Scan() {
			r.lines <- lineResult{line: scanner.Text()}
			continue
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		r.lines <- lineResult{err: err}
	}
}

func (r *Reader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.once.Do(func() { go r.pump() })

	fmt.Fprint(r.out, prompt)
	if !r.pending {
		r.requests <- struct{}{}
		r.pending = true
	}
	select {
	case <-ctx.Done():
		fmt.Fprintln(r.out)
		return "", ctx.Err()
	case res := <-r.lines:
		r.pending = false
		return res.line, res.err
	}
}

// Close closes the input when it is a closer.
func (r *Reader) Close() error {
	if c, ok := r.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
