// Package patch reconstructs the final file content from a resolved review
// and writes it back to disk.
package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/markis/ai-cli/internal/diff"
	"github.com/markis/ai-cli/internal/review"
	"github.com/markis/ai-cli/internal/textfile"
)

var (
	// ErrNoChange means the reviewed result equals the original content.
	ErrNoChange = errors.New("no changes to apply")

	// ErrUnresolved is returned when a session still has undecided hunks.
	ErrUnresolved = errors.New("review is not resolved")
)

// WriteError wraps a failure to write the result back to disk.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Merge rebuilds content from original, taking the modified lines of
// accepted and edited hunks and the original lines of rejected ones. Hunks
// must be ascending and non-overlapping.
func Merge(original string, hunks []diff.Hunk) (string, error) {
	lines := diff.SplitLines(original)

	var b strings.Builder
	b.Grow(len(original))

	pos := 0
	for i, h := range hunks {
		start := h.Original.Start - 1
		end := start + h.Original.Count
		if start < pos || end > len(lines) {
			return "", fmt.Errorf("hunk %d covers lines %d-%d outside the remaining %d-%d",
				i+1, start+1, end, pos+1, len(lines))
		}

		writeLines(&b, lines[pos:start])
		switch h.Decision {
		case diff.Accepted, diff.Edited:
			writeLines(&b, h.ModifiedLines)
		case diff.Rejected:
			writeLines(&b, lines[start:end])
		default:
			return "", fmt.Errorf("%w: hunk %d is %s", ErrUnresolved, i+1, h.Decision)
		}
		pos = end
	}
	writeLines(&b, lines[pos:])

	return b.String(), nil
}

func writeLines(b *strings.Builder, lines []string) {
	for _, line := range lines {
		b.WriteString(line)
	}
}

// Apply returns the final content of a resolved session. A whole-file edit
// is used verbatim. ErrNoChange is returned when nothing differs from the
// original.
func Apply(s *review.Session) (string, error) {
	if !s.Resolved() {
		return "", ErrUnresolved
	}

	content, edited := s.EditedContent()
	if !edited {
		var err error
		content, err = Merge(s.Original, s.Hunks)
		if err != nil {
			return "", err
		}
	}

	if content == s.Original {
		return "", ErrNoChange
	}
	return content, nil
}

// Commit applies the session and replaces src on disk with the result,
// keeping the file's encoding, line endings and permissions.
func Commit(s *review.Session, src *textfile.File) error {
	content, err := Apply(s)
	if err != nil {
		return err
	}

	data, err := src.Encode(content)
	if err != nil {
		return &WriteError{Path: src.Path, Err: err}
	}
	if err := textfile.WriteAtomic(src.Path, data, src.Mode); err != nil {
		return &WriteError{Path: src.Path, Err: err}
	}
	return nil
}
