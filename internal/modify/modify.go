// Package modify runs one modify-mode session: it asks the completion client
// for a rewritten file, reviews the differences with the user and writes the
// accepted result back.
package modify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/markis/ai-cli/internal/client"
	"github.com/markis/ai-cli/internal/diff"
	"github.com/markis/ai-cli/internal/patch"
	"github.com/markis/ai-cli/internal/review"
	"github.com/markis/ai-cli/internal/textfile"
)

// Completer returns the model's reply to a chat request.
type Completer interface {
	Complete(ctx context.Context, req client.Request) (string, error)
}

// Reviewer resolves every hunk of a session.
type Reviewer interface {
	Review(ctx context.Context, s *review.Session) error
}

// Outcome is the result of a session that finished without error.
type Outcome int

const (
	// Applied means the file was rewritten
	Applied Outcome = iota
	// NoChange means the file was left untouched
	NoChange
)

func (o Outcome) String() string {
	if o == Applied {
		return "applied"
	}
	return "no change"
}

// Options carries the request and diff settings for a session.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Diff        diff.Options
}

type Runner struct {
	completer Completer
	reviewer  Reviewer
	out       io.Writer
	logger    *slog.Logger
	opts      Options
}

func NewRunner(completer Completer, reviewer Reviewer, out io.Writer, logger *slog.Logger, opts Options) *Runner {
	return &Runner{
		completer: completer,
		reviewer:  reviewer,
		out:       out,
		logger:    logger,
		opts:      opts,
	}
}

// ReadInput checks the instruction and reads the target file. Failures are
// reported as InputError.
func ReadInput(path, instruction string) (*textfile.File, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, &InputError{Err: errors.New("no modification prompt provided")}
	}
	src, err := textfile.Read(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return src, nil
}

// Run modifies the file at path according to instruction. extra is optional
// additional context sent with the request. Cancellation is reported as
// review.ErrCancelled; nothing is written unless Applied is returned.
func (r *Runner) Run(ctx context.Context, path, instruction, extra string) (Outcome, error) {
	src, err := ReadInput(path, instruction)
	if err != nil {
		return NoChange, err
	}
	r.logger.Debug("read file", "path", path, "encoding", src.Encoding, "line_ending", fmt.Sprintf("%q", src.LineEnding))

	fmt.Fprintf(r.out, "Requesting changes for %s...\n", path)
	temperature := r.opts.Temperature
	response, err := r.completer.Complete(ctx, client.Request{
		Model:       r.opts.Model,
		Messages:    BuildMessages(instruction, extra, src.Content),
		Temperature: &temperature,
		MaxTokens:   r.opts.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return NoChange, review.ErrCancelled
		}
		return NoChange, &CompletionError{Err: err}
	}

	suggested := matchFinalNewline(src.Content, diff.NormalizeNewlines(StripFence(response)))
	session, err := review.NewSession(path, src.Content, suggested, r.opts.Diff)
	if err != nil {
		return NoChange, &DiffComputationError{Err: err}
	}
	if len(session.Hunks) == 0 {
		fmt.Fprintln(r.out, "No changes suggested.")
		return NoChange, nil
	}
	r.logger.Debug("computed hunks", "stats", diff.Summarize(session.Hunks).String())

	if err := r.reviewer.Review(ctx, session); err != nil {
		return NoChange, err
	}

	err = patch.Commit(session, src)
	var writeErr *patch.WriteError
	switch {
	case err == nil:
		fmt.Fprintf(r.out, "Applied changes to %s\n", path)
		return Applied, nil
	case errors.Is(err, patch.ErrNoChange):
		fmt.Fprintln(r.out, "No changes applied.")
		return NoChange, nil
	case errors.As(err, &writeErr):
		return NoChange, err
	default:
		return NoChange, &DiffComputationError{Err: err}
	}
}
