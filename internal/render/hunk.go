package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/markis/ai-cli/internal/diff"
)

const noNewlineMarker = `\ No newline at end of file`

// HunkRenderer formats hunks as numbered unified-diff blocks.
type HunkRenderer struct {
	plainText bool

	fileStyle    lipgloss.Style
	headerStyle  lipgloss.Style
	removedStyle lipgloss.Style
	addedStyle   lipgloss.Style
	contextStyle lipgloss.Style
	markerStyle  lipgloss.Style
}

func NewHunkRenderer(usePlainText bool) *HunkRenderer {
	return &HunkRenderer{
		plainText:    usePlainText,
		fileStyle:    lipgloss.NewStyle().Bold(true),
		headerStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		removedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		addedStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		contextStyle: lipgloss.NewStyle().Faint(true),
		markerStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true),
	}
}

func (r *HunkRenderer) style(s lipgloss.Style, text string) string {
	if r.plainText {
		return text
	}
	return s.Render(text)
}

// FileHeader returns the two-line header naming both versions of path.
func (r *HunkRenderer) FileHeader(path string) string {
	return r.style(r.fileStyle, fmt.Sprintf("--- %s (original)", path)) + "\n" +
		r.style(r.fileStyle, fmt.Sprintf("+++ %s (suggested)", path)) + "\n"
}

// Render formats hunk number index of total. Index is 1-based.
func (r *HunkRenderer) Render(h diff.Hunk, index, total int) string {
	var sb strings.Builder

	header := fmt.Sprintf("[%d/%d] @@ -%s +%s @@", index, total, formatRange(h.Original), formatRange(h.Modified))
	if h.Decision != diff.Undecided {
		header += " (" + h.Decision.String() + ")"
	}
	sb.WriteString(r.style(r.headerStyle, header))
	sb.WriteByte('\n')

	r.writeLines(&sb, " ", h.ContextBefore, r.contextStyle)
	r.writeLines(&sb, "-", h.OriginalLines, r.removedStyle)
	r.writeLines(&sb, "+", h.ModifiedLines, r.addedStyle)
	r.writeLines(&sb, " ", h.ContextAfter, r.contextStyle)

	return sb.String()
}

// Summary returns the one-line change count shown after all hunks.
func (r *HunkRenderer) Summary(hunks []diff.Hunk) string {
	return r.style(r.headerStyle, diff.Summarize(hunks).String()) + "\n"
}

func (r *HunkRenderer) writeLines(sb *strings.Builder, prefix string, lines []string, s lipgloss.Style) {
	for _, line := range lines {
		text, terminated := strings.CutSuffix(line, "\n")
		sb.WriteString(r.style(s, prefix+displayLine(text)))
		sb.WriteByte('\n')
		if !terminated {
			sb.WriteString(r.style(r.markerStyle, noNewlineMarker))
			sb.WriteByte('\n')
		}
	}
}

// displayLine replaces text that is not valid UTF-8 with a placeholder.
func displayLine(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return fmt.Sprintf("<undecodable line: %d bytes>", len(text))
}

// formatRange follows the unified diff convention where an empty range names
// the line before the insertion point.
func formatRange(rng diff.Range) string {
	start := rng.Start
	if rng.Count == 0 {
		start--
	}
	return fmt.Sprintf("%d,%d", start, rng.Count)
}
