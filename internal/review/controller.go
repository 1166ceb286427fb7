package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/markis/ai-cli/internal/diff"
	"github.com/markis/ai-cli/internal/editor"
	"github.com/markis/ai-cli/internal/prompt"
	"github.com/markis/ai-cli/internal/render"
)

// Terminal supplies raw lines of user input.
type Terminal interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// Editor returns the content saved by an external editor started on initial.
type Editor interface {
	Edit(ctx context.Context, initial string) (string, error)
}

// Mode selects how a review is resolved.
type Mode int

const (
	// Interactive prompts the user for every decision
	Interactive Mode = iota
	// AcceptAll accepts every hunk without prompting
	AcceptAll
	// DisplayOnly shows the diff and rejects every hunk
	DisplayOnly
)

const (
	globalMenu   = "[1] accept  [2] reject  [3] edit  [4] split"
	globalPrompt = "Choose an action (default 1): "
	invalidInput = "Invalid choice, please try again."
)

// Controller drives a Session to Done from user input.
type Controller struct {
	term     Terminal
	editor   Editor
	out      io.Writer
	renderer *render.HunkRenderer
	logger   *slog.Logger
	mode     Mode
}

func NewController(term Terminal, ed Editor, out io.Writer, renderer *render.HunkRenderer, logger *slog.Logger, mode Mode) *Controller {
	return &Controller{
		term:     term,
		editor:   ed,
		out:      out,
		renderer: renderer,
		logger:   logger,
		mode:     mode,
	}
}

// Review shows every hunk and collects decisions until the session is Done.
// It returns ErrCancelled when the user interrupts at any prompt or while
// the editor is open.
func (c *Controller) Review(ctx context.Context, s *Session) error {
	if len(s.Hunks) == 0 {
		s.state = Done
		return nil
	}

	c.display(s)

	switch c.mode {
	case AcceptAll:
		return s.acceptAll()
	case DisplayOnly:
		return s.rejectAll()
	}

	for s.state != Done {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		if err := c.step(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) display(s *Session) {
	fmt.Fprintln(c.out)
	fmt.Fprint(c.out, c.renderer.FileHeader(s.Path))
	for i, h := range s.Hunks {
		fmt.Fprint(c.out, c.renderer.Render(h, i+1, len(s.Hunks)))
	}
	fmt.Fprint(c.out, c.renderer.Summary(s.Hunks))
}

// step consumes one input, or one editor round trip, and applies the
// resulting transition. Unrecognized input leaves the state unchanged.
func (c *Controller) step(ctx context.Context, s *Session) error {
	c.logger.Debug("review step", "state", s.state, "cursor", s.cursor)

	switch s.state {
	case AwaitingGlobalChoice:
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, globalMenu)
		input, err := c.read(ctx, globalPrompt)
		if err != nil {
			return err
		}
		switch parseGlobal(input) {
		case choiceAccept:
			return s.acceptAll()
		case choiceReject:
			return s.rejectAll()
		case choiceEdit:
			return s.beginEdit()
		case choiceSplit:
			return s.beginSplit()
		}
		fmt.Fprintln(c.out, invalidInput)
		return nil

	case Presenting:
		fmt.Fprintln(c.out)
		fmt.Fprint(c.out, c.renderer.Render(s.Hunks[s.cursor], s.cursor+1, len(s.Hunks)))
		input, err := c.read(ctx, fmt.Sprintf("Apply hunk %d/%d? [Y/n/e]: ", s.cursor+1, len(s.Hunks)))
		if err != nil {
			return err
		}
		switch parseHunk(input) {
		case choiceAccept:
			return s.decide(diff.Accepted)
		case choiceReject:
			return s.decide(diff.Rejected)
		case choiceEdit:
			return s.beginHunkEdit()
		}
		fmt.Fprintln(c.out, invalidInput)
		return nil

	case AwaitingEdit:
		return c.edit(ctx, s)
	}
	return fmt.Errorf("unexpected review state %s", s.state)
}

func (c *Controller) edit(ctx context.Context, s *Session) error {
	content, err := c.editor.Edit(ctx, s.editInput())
	if err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		var editorErr *editor.Error
		if !errors.As(err, &editorErr) {
			return err
		}
		c.logger.Warn("editor unavailable", "err", err)
		fmt.Fprintf(c.out, "Could not open the editor: %v\n", editorErr.Err)
		return s.cancelEdit()
	}
	return s.finishEdit(content)
}

func (c *Controller) read(ctx context.Context, label string) (string, error) {
	input, err := c.term.ReadLine(ctx, label)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, prompt.ErrInterrupted) || errors.Is(err, io.EOF) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return input, nil
}

type choice int

const (
	choiceInvalid choice = iota
	choiceAccept
	choiceReject
	choiceEdit
	choiceSplit
)

func parseGlobal(input string) choice {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "1", "a", "accept", "y", "yes":
		return choiceAccept
	case "2", "r", "reject", "n", "no":
		return choiceReject
	case "3", "e", "edit":
		return choiceEdit
	case "4", "s", "split":
		return choiceSplit
	}
	return choiceInvalid
}

func parseHunk(input string) choice {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "y", "yes", "a", "accept":
		return choiceAccept
	case "n", "no", "r", "reject":
		return choiceReject
	case "e", "edit":
		return choiceEdit
	}
	return choiceInvalid
}
