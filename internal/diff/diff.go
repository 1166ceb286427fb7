package diff

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	// ErrTooManyLines indicates the inputs hold more distinct lines than can be aligned.
	ErrTooManyLines = errors.New("too many distinct lines to diff")

	// ErrInconsistent indicates the alignment did not account for every input line.
	ErrInconsistent = errors.New("inconsistent diff alignment")
)

// Decision is the review outcome of a single hunk.
type Decision int

const (
	// Undecided is the initial state of every hunk
	Undecided Decision = iota
	// Accepted hunks contribute their modified lines
	Accepted
	// Rejected hunks keep their original lines
	Rejected
	// Edited hunks contribute user-edited modified lines
	Edited
)

// String returns the string representation of a decision.
func (d Decision) String() string {
	switch d {
	case Undecided:
		return "undecided"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Edited:
		return "edited"
	default:
		return "unknown"
	}
}

// Resolved reports whether the decision is terminal.
func (d Decision) Resolved() bool {
	return d == Accepted || d == Rejected || d == Edited
}

// Range is a span of lines in one version of the text.
// Start is 1-based. For an empty range it is the line position where the
// lines would be inserted.
type Range struct {
	Start int
	Count int
}

// End returns the 1-based line number just past the range.
func (r Range) End() int {
	return r.Start + r.Count
}

// Hunk is a contiguous block of change between the original and suggested text.
type Hunk struct {
	Original      Range
	Modified      Range
	OriginalLines []string // lines removed, with terminators
	ModifiedLines []string // lines added, with terminators
	ContextBefore []string // unchanged lines preceding the hunk
	ContextAfter  []string // unchanged lines following the hunk
	Decision      Decision
}

// Options controls hunk grouping.
type Options struct {
	// ContextLines is the number of unchanged lines kept on each side of a hunk for display.
	ContextLines int
	// MergeDistance merges change runs separated by fewer than this many unchanged lines.
	MergeDistance int
}

// DefaultOptions returns the standard three lines of context and merge distance.
func DefaultOptions() Options {
	return Options{ContextLines: 3, MergeDistance: 3}
}

// Stats summarizes a hunk sequence.
type Stats struct {
	Hunks     int
	Additions int
	Deletions int
}

// Summarize counts hunks and changed lines.
func Summarize(hunks []Hunk) Stats {
	stats := Stats{Hunks: len(hunks)}
	for _, h := range hunks {
		stats.Additions += h.Modified.Count
		stats.Deletions += h.Original.Count
	}
	return stats
}

// String returns a short human-readable summary.
func (s Stats) String() string {
	noun := "hunks"
	if s.Hunks == 1 {
		noun = "hunk"
	}
	return fmt.Sprintf("%d %s, +%d -%d", s.Hunks, noun, s.Additions, s.Deletions)
}

// NormalizeNewlines converts CRLF line endings to LF.
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// SplitLines splits content into lines, each keeping its trailing newline.
// The last line has no terminator when content does not end with one.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// run is a maximal stretch of non-equal lines, as half-open 0-based indexes.
type run struct {
	origStart, origEnd int
	modStart, modEnd   int
}

// ComputeHunks aligns original and modified and returns the changed regions in
// ascending order. Identical inputs produce no hunks.
func ComputeHunks(original, modified []string, opts Options) ([]Hunk, error) {
	opts.ContextLines = max(opts.ContextLines, 0)
	opts.MergeDistance = max(opts.MergeDistance, 0)

	runs, err := changeRuns(original, modified)
	if err != nil {
		return nil, err
	}
	runs = mergeRuns(runs, opts.MergeDistance)

	hunks := make([]Hunk, 0, len(runs))
	for i, r := range runs {
		// Context never reaches into a neighbouring hunk.
		lo, hi := 0, len(original)
		if i > 0 {
			lo = runs[i-1].origEnd
		}
		if i < len(runs)-1 {
			hi = runs[i+1].origStart
		}
		before := max(lo, r.origStart-opts.ContextLines)
		after := min(hi, r.origEnd+opts.ContextLines)

		hunks = append(hunks, Hunk{
			Original:      Range{Start: r.origStart + 1, Count: r.origEnd - r.origStart},
			Modified:      Range{Start: r.modStart + 1, Count: r.modEnd - r.modStart},
			OriginalLines: slices.Clone(original[r.origStart:r.origEnd]),
			ModifiedLines: slices.Clone(modified[r.modStart:r.modEnd]),
			ContextBefore: slices.Clone(original[before:r.origStart]),
			ContextAfter:  slices.Clone(original[r.origEnd:after]),
		})
	}
	return hunks, nil
}

// changeRuns runs a Myers diff over the line sequences and collects the
// non-equal stretches.
func changeRuns(original, modified []string) ([]run, error) {
	a, b, err := encodeLines(original, modified)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	// No deadline keeps the result deterministic for large inputs.
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(a, b, false)

	var runs []run
	var cur *run
	i, j := 0, 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		if d.Type == diffmatchpatch.DiffEqual {
			if cur != nil {
				runs = append(runs, *cur)
				cur = nil
			}
			i += n
			j += n
			continue
		}
		if cur == nil {
			cur = &run{origStart: i, origEnd: i, modStart: j, modEnd: j}
		}
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			i += n
			cur.origEnd = i
		case diffmatchpatch.DiffInsert:
			j += n
			cur.modEnd = j
		}
	}
	if cur != nil {
		runs = append(runs, *cur)
	}

	if i != len(original) || j != len(modified) {
		return nil, fmt.Errorf("%w: consumed %d of %d original and %d of %d suggested lines",
			ErrInconsistent, i, len(original), j, len(modified))
	}
	return runs, nil
}

// mergeRuns joins runs separated by fewer than distance unchanged lines.
func mergeRuns(runs []run, distance int) []run {
	if len(runs) < 2 {
		return runs
	}
	merged := []run{runs[0]}
	for _, r := range runs[1:] {
		last := &merged[len(merged)-1]
		if r.origStart-last.origEnd < distance {
			last.origEnd = r.origEnd
			last.modEnd = r.modEnd
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// encodeLines maps every distinct line to a rune so the character diff can
// operate on whole lines. Surrogate code points are skipped because they do
// not survive conversion to string.
func encodeLines(original, modified []string) ([]rune, []rune, error) {
	index := make(map[string]rune, len(original))
	encode := func(lines []string) ([]rune, error) {
		out := make([]rune, len(lines))
		for k, line := range lines {
			r, ok := index[line]
			if !ok {
				r = lineRune(len(index))
				if r > utf8.MaxRune {
					return nil, fmt.Errorf("%w: more than %d", ErrTooManyLines, len(index))
				}
				index[line] = r
			}
			out[k] = r
		}
		return out, nil
	}

	a, err := encode(original)
	if err != nil {
		return nil, nil, err
	}
	b, err := encode(modified)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func lineRune(n int) rune {
	r := rune(n)
	if r >= surrogateMin {
		r += surrogateMax - surrogateMin + 1
	}
	return r
}
