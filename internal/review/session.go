package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/markis/ai-cli/internal/diff"
)

// ErrCancelled is returned when the user interrupts the review.
var ErrCancelled = errors.New("cancelled")

// State is the position of the review state machine.
type State int

const (
	// AwaitingGlobalChoice waits for accept, reject, edit or split
	AwaitingGlobalChoice State = iota
	// Presenting asks about the hunk at the cursor
	Presenting
	// AwaitingEdit waits for the editor, on the whole file or the hunk at the cursor
	AwaitingEdit
	// Done means every hunk is resolved or the file was edited directly
	Done
)

// String returns the string representation of a state.
func (s State) String() string {
	switch s {
	case AwaitingGlobalChoice:
		return "awaiting-global-choice"
	case Presenting:
		return "presenting"
	case AwaitingEdit:
		return "awaiting-edit"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// wholeFile is the cursor value for an edit of the entire suggestion.
const wholeFile = -1

// Session holds one modify-mode review: the file, both versions of its
// content and the hunks between them. Content uses "\n" line endings.
type Session struct {
	Path      string
	Original  string
	Suggested string
	Hunks     []diff.Hunk

	state  State
	cursor int
	edited *string
}

// NewSession computes the hunks between original and suggested.
func NewSession(path, original, suggested string, opts diff.Options) (*Session, error) {
	original = diff.NormalizeNewlines(original)
	suggested = diff.NormalizeNewlines(suggested)

	hunks, err := diff.ComputeHunks(diff.SplitLines(original), diff.SplitLines(suggested), opts)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Path:      path,
		Original:  original,
		Suggested: suggested,
		Hunks:     hunks,
	}
	if len(hunks) == 0 {
		s.state = Done
	}
	return s, nil
}

func (s *Session) State() State {
	return s.state
}

// Cursor is the index of the hunk being presented or edited, or -1 for a
// whole-file edit.
func (s *Session) Cursor() int {
	return s.cursor
}

// EditedContent returns the content saved from a whole-file edit.
func (s *Session) EditedContent() (string, bool) {
	if s.edited == nil {
		return "", false
	}
	return *s.edited, true
}

// Resolved reports whether the session reached Done with every hunk decided.
func (s *Session) Resolved() bool {
	if s.state != Done {
		return false
	}
	if s.edited != nil {
		return true
	}
	for _, h := range s.Hunks {
		if !h.Decision.Resolved() {
			return false
		}
	}
	return true
}

func (s *Session) expect(states ...State) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from state %s", s.state)
}

func (s *Session) decideRemaining(d diff.Decision) error {
	if err := s.expect(AwaitingGlobalChoice); err != nil {
		return err
	}
	for i := range s.Hunks {
		if s.Hunks[i].Decision == diff.Undecided {
			s.Hunks[i].Decision = d
		}
	}
	s.state = Done
	return nil
}

func (s *Session) acceptAll() error {
	return s.decideRemaining(diff.Accepted)
}

func (s *Session) rejectAll() error {
	return s.decideRemaining(diff.Rejected)
}

func (s *Session) beginEdit() error {
	if err := s.expect(AwaitingGlobalChoice); err != nil {
		return err
	}
	s.state = AwaitingEdit
	s.cursor = wholeFile
	return nil
}

func (s *Session) beginSplit() error {
	if err := s.expect(AwaitingGlobalChoice); err != nil {
		return err
	}
	s.state = Presenting
	s.cursor = -1
	s.advance()
	return nil
}

// advance moves the cursor to the next undecided hunk, or to Done.
func (s *Session) advance() {
	for s.cursor++; s.cursor < len(s.Hunks); s.cursor++ {
		if s.Hunks[s.cursor].Decision == diff.Undecided {
			s.state = Presenting
			return
		}
	}
	s.state = Done
}

func (s *Session) decide(d diff.Decision) error {
	if err := s.expect(Presenting); err != nil {
		return err
	}
	s.Hunks[s.cursor].Decision = d
	s.advance()
	return nil
}

func (s *Session) beginHunkEdit() error {
	if err := s.expect(Presenting); err != nil {
		return err
	}
	s.state = AwaitingEdit
	return nil
}

// editInput is the text handed to the editor for the current edit.
func (s *Session) editInput() string {
	if s.cursor == wholeFile {
		return s.Suggested
	}
	return strings.Join(s.Hunks[s.cursor].ModifiedLines, "")
}

func (s *Session) finishEdit(content string) error {
	if err := s.expect(AwaitingEdit); err != nil {
		return err
	}
	content = diff.NormalizeNewlines(content)

	if s.cursor == wholeFile {
		s.edited = &content
		s.state = Done
		return nil
	}

	h := &s.Hunks[s.cursor]

	// Text before the end of the file must stay newline-terminated; at the
	// end, the hunk keeps its own end-of-file newline state, or the
	// original's when the hunk only deleted lines.
	initial := s.editInput()
	atEOF := h.Original.End() > len(diff.SplitLines(s.Original))
	newline := !atEOF || strings.HasSuffix(initial, "\n")
	if atEOF && initial == "" {
		newline = strings.HasSuffix(s.Original, "\n")
	}
	switch {
	case content == "":
	case newline:
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
	default:
		content = strings.TrimSuffix(content, "\n")
	}

	h.ModifiedLines = diff.SplitLines(content)
	shift := len(h.ModifiedLines) - h.Modified.Count
	h.Modified.Count = len(h.ModifiedLines)
	for i := s.cursor + 1; i < len(s.Hunks); i++ {
		s.Hunks[i].Modified.Start += shift
	}
	h.Decision = diff.Edited
	s.state = Presenting
	s.advance()
	return nil
}

func (s *Session) cancelEdit() error {
	if err := s.expect(AwaitingEdit); err != nil {
		return err
	}
	if s.cursor == wholeFile {
		s.state = AwaitingGlobalChoice
		s.cursor = 0
		return nil
	}
	s.state = Presenting
	return nil
}
