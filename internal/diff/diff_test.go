package diff

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compute(t *testing.T, original, modified string, opts Options) []Hunk {
	t.Helper()
	hunks, err := ComputeHunks(SplitLines(original), SplitLines(modified), opts)
	require.NoError(t, err)
	return hunks
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "empty", content: "", want: nil},
		{name: "single without newline", content: "a", want: []string{"a"}},
		{name: "single with newline", content: "a\n", want: []string{"a\n"}},
		{name: "no final newline", content: "a\nb", want: []string{"a\n", "b"}},
		{name: "blank lines kept", content: "a\n\nb\n", want: []string{"a\n", "\n", "b\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLines(tt.content)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.content, strings.Join(got, ""))
		})
	}
}

func TestNormalizeNewlines(t *testing.T) {
	assert.Equal(t, "a\nb\n", NormalizeNewlines("a\r\nb\r\n"))
	assert.Equal(t, "a\nb", NormalizeNewlines("a\nb"))
}

func TestComputeHunks_Identical(t *testing.T) {
	hunks := compute(t, "a\nb\nc\n", "a\nb\nc\n", DefaultOptions())
	assert.Empty(t, hunks)

	hunks = compute(t, "", "", DefaultOptions())
	assert.Empty(t, hunks)
}

func TestComputeHunks_SingleReplacement(t *testing.T) {
	hunks := compute(t, "a\nb\nc\n", "a\nx\nc\n", DefaultOptions())
	require.Len(t, hunks, 1)

	h := hunks[0]
	assert.Equal(t, Range{Start: 2, Count: 1}, h.Original)
	assert.Equal(t, Range{Start: 2, Count: 1}, h.Modified)
	assert.Equal(t, []string{"b\n"}, h.OriginalLines)
	assert.Equal(t, []string{"x\n"}, h.ModifiedLines)
	assert.Equal(t, []string{"a\n"}, h.ContextBefore)
	assert.Equal(t, []string{"c\n"}, h.ContextAfter)
	assert.Equal(t, Undecided, h.Decision)
}

func TestComputeHunks_NewFile(t *testing.T) {
	hunks := compute(t, "", "hello\n", DefaultOptions())
	require.Len(t, hunks, 1)

	h := hunks[0]
	assert.Empty(t, h.OriginalLines)
	assert.Equal(t, []string{"hello\n"}, h.ModifiedLines)
	assert.Equal(t, Range{Start: 1, Count: 0}, h.Original)
	assert.Equal(t, Range{Start: 1, Count: 1}, h.Modified)
}

func TestComputeHunks_Disjoint(t *testing.T) {
	hunks := compute(t, "a\nb\nc\n", "x\ny\n", DefaultOptions())
	require.Len(t, hunks, 1)

	assert.Equal(t, Range{Start: 1, Count: 3}, hunks[0].Original)
	assert.Equal(t, Range{Start: 1, Count: 2}, hunks[0].Modified)
	assert.Empty(t, hunks[0].ContextBefore)
	assert.Empty(t, hunks[0].ContextAfter)
}

func TestComputeHunks_MissingFinalNewline(t *testing.T) {
	hunks := compute(t, "a\nb", "a\nb\n", DefaultOptions())
	require.Len(t, hunks, 1)
	assert.Equal(t, []string{"b"}, hunks[0].OriginalLines)
	assert.Equal(t, []string{"b\n"}, hunks[0].ModifiedLines)
}

func TestComputeHunks_MergeDistance(t *testing.T) {
	original := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"

	tests := []struct {
		name      string
		modified  string
		distance  int
		wantHunks int
	}{
		{name: "gap of two merges", modified: "1\nX\n3\n4\nY\n6\n7\n8\n9\n10\n", distance: 3, wantHunks: 1},
		{name: "gap of three stays split", modified: "1\nX\n3\n4\n5\nY\n7\n8\n9\n10\n", distance: 3, wantHunks: 2},
		{name: "distance zero never merges", modified: "1\nX\n3\nY\n5\n6\n7\n8\n9\n10\n", distance: 0, wantHunks: 2},
		{name: "large distance merges all", modified: "X\n2\n3\n4\n5\n6\n7\n8\n9\nY\n", distance: 10, wantHunks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hunks := compute(t, original, tt.modified, Options{ContextLines: 3, MergeDistance: tt.distance})
			assert.Len(t, hunks, tt.wantHunks)
		})
	}
}

func TestComputeHunks_MergedHunkCarriesUnchangedLines(t *testing.T) {
	hunks := compute(t, "a\nb\nc\nd\n", "A\nb\nC\nd\n", DefaultOptions())
	require.Len(t, hunks, 1)
	assert.Equal(t, []string{"a\n", "b\n", "c\n"}, hunks[0].OriginalLines)
	assert.Equal(t, []string{"A\n", "b\n", "C\n"}, hunks[0].ModifiedLines)
}

func TestComputeHunks_ContextStopsAtNeighbour(t *testing.T) {
	original := "1\n2\n3\n4\n5\n6\n7\n8\n"
	modified := "X\n2\n3\n4\n5\nY\n7\n8\n"

	hunks := compute(t, original, modified, Options{ContextLines: 10, MergeDistance: 1})
	require.Len(t, hunks, 2)

	assert.Equal(t, []string{"2\n", "3\n", "4\n", "5\n"}, hunks[0].ContextAfter)
	assert.Equal(t, []string{"2\n", "3\n", "4\n", "5\n"}, hunks[1].ContextBefore)
	assert.Equal(t, []string{"7\n", "8\n"}, hunks[1].ContextAfter)
}

func TestComputeHunks_NegativeOptionsClamp(t *testing.T) {
	hunks := compute(t, "a\nb\nc\n", "a\nx\nc\n", Options{ContextLines: -1, MergeDistance: -5})
	require.Len(t, hunks, 1)
	assert.Empty(t, hunks[0].ContextBefore)
	assert.Empty(t, hunks[0].ContextAfter)
}

func randomText(r *rand.Rand) string {
	words := []string{"alpha", "beta", "gamma", "delta", "", "}"}
	n := r.Intn(20)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(words[r.Intn(len(words))])
		sb.WriteByte('\n')
	}
	if n > 0 && r.Intn(4) == 0 {
		sb.WriteString("tail")
	}
	return sb.String()
}

func TestComputeHunks_OrderedAndDisjoint(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a, b := randomText(r), randomText(r)
		t.Run(fmt.Sprintf("pair-%d", i), func(t *testing.T) {
			oldLines, newLines := SplitLines(a), SplitLines(b)
			hunks, err := ComputeHunks(oldLines, newLines, Options{ContextLines: 2, MergeDistance: r.Intn(4)})
			require.NoError(t, err)

			prevOld, prevNew := 1, 1
			for _, h := range hunks {
				assert.GreaterOrEqual(t, h.Original.Start, prevOld)
				assert.GreaterOrEqual(t, h.Modified.Start, prevNew)
				assert.Len(t, h.OriginalLines, h.Original.Count)
				assert.Len(t, h.ModifiedLines, h.Modified.Count)
				// Lines between hunks are shared by both versions.
				assert.Equal(t, h.Original.Start-prevOld, h.Modified.Start-prevNew)
				prevOld, prevNew = h.Original.End(), h.Modified.End()
				// Strictly ascending: the next hunk starts past this one.
				prevOld++
				prevNew++
			}
		})
	}
}

func TestComputeHunks_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		a, b := SplitLines(randomText(r)), SplitLines(randomText(r))
		first, err := ComputeHunks(a, b, DefaultOptions())
		require.NoError(t, err)
		second, err := ComputeHunks(a, b, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestLineRune_SkipsSurrogates(t *testing.T) {
	assert.Equal(t, rune(0), lineRune(0))
	assert.Equal(t, rune(surrogateMin-1), lineRune(surrogateMin-1))
	assert.Equal(t, rune(surrogateMax+1), lineRune(surrogateMin))
}

func TestComputeHunks_ManyDistinctLines(t *testing.T) {
	// Crosses the surrogate block in the rune encoding.
	n := surrogateMin + 100
	original := make([]string, n)
	modified := make([]string, n)
	for i := range original {
		original[i] = fmt.Sprintf("line %d\n", i)
		modified[i] = original[i]
	}
	modified[n-1] = "changed\n"

	hunks, err := ComputeHunks(original, modified, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	assert.Equal(t, n, hunks[0].Original.Start)
}

func TestDecision(t *testing.T) {
	tests := []struct {
		decision Decision
		name     string
		resolved bool
	}{
		{Undecided, "undecided", false},
		{Accepted, "accepted", true},
		{Rejected, "rejected", true},
		{Edited, "edited", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.decision.String())
		assert.Equal(t, tt.resolved, tt.decision.Resolved())
	}
}

func TestSummarize(t *testing.T) {
	hunks := compute(t, "a\nb\nc\n", "a\nx\ny\nc\n", DefaultOptions())
	stats := Summarize(hunks)
	assert.Equal(t, Stats{Hunks: 1, Additions: 2, Deletions: 1}, stats)
	assert.Equal(t, "1 hunk, +2 -1", stats.String())
}
