package args

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/markis/ai-cli/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Prompts["explain"] = config.Prompt{Prompt: "Explain the following code"}
	cfg.Prompts["review"] = config.Prompt{Prompt: "Review this", Model: "reviewer-model"}
	return cfg
}

func parse(t *testing.T, argv []string, stdin string) (Arguments, error) {
	t.Helper()
	var in *strings.Reader
	if stdin != "" {
		in = strings.NewReader(stdin)
	}
	var out bytes.Buffer
	if in == nil {
		return ParseArgs(context.Background(), testConfig(), argv, nil, &out)
	}
	return ParseArgs(context.Background(), testConfig(), argv, in, &out)
}

func TestParseArgs_DirectPrompt(t *testing.T) {
	args, err := parse(t, []string{"what", "is", "go"}, "")
	require.NoError(t, err)

	assert.Equal(t, "what is go", args.Prompt())
	assert.Equal(t, "deepseek-chat", args.Model)
	assert.False(t, args.ModifyMode())
	assert.Equal(t, 3, args.ContextLines)
	assert.Equal(t, 3, args.MergeDistance)
}

func TestParseArgs_PipedInputJoinsAskPrompt(t *testing.T) {
	args, err := parse(t, []string{"summarize"}, "some text\n")
	require.NoError(t, err)
	assert.Equal(t, "summarize\n\nsome text", args.Prompt())
	assert.Empty(t, args.Input)

	args, err = parse(t, nil, "only piped\n")
	require.NoError(t, err)
	assert.Equal(t, "only piped", args.Prompt())
}

func TestParseArgs_PredefinedCommand(t *testing.T) {
	args, err := parse(t, []string{"review", "main.go"}, "")
	require.NoError(t, err)
	assert.Equal(t, "review", args.Command)
	assert.Equal(t, []string{"main.go", "Review this"}, args.Prompts)
	assert.Equal(t, "reviewer-model", args.Model)

	args, err = parse(t, []string{"review", "--model", "mine"}, "")
	require.NoError(t, err)
	assert.Equal(t, "mine", args.Model)
}

func TestParseArgs_Modify(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(promptFile, []byte("  add comments\n"), 0o644))

	args, err := parse(t, []string{
		"-m", "main.go", "-p", promptFile, "--context", "5", "--merge", "1",
		"--editor", "nano", "-y", "be brief",
	}, "extra context\n")
	require.NoError(t, err)

	assert.True(t, args.ModifyMode())
	assert.Equal(t, "main.go", args.ModifyFile)
	assert.Equal(t, []string{"be brief", "add comments"}, args.Prompts)
	assert.Equal(t, "extra context", args.Input, "piped input stays separate in modify mode")
	assert.Equal(t, 5, args.ContextLines)
	assert.Equal(t, 1, args.MergeDistance)
	assert.Equal(t, "nano", args.Editor)
	assert.True(t, args.Yes)
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{name: "no prompt", argv: nil, want: "no prompt provided"},
		{name: "modify without prompt", argv: []string{"-m", "f.txt"}, want: "no modification prompt"},
		{name: "dry run with yes", argv: []string{"-m", "f.txt", "--dry-run", "-y", "x"}, want: "cannot be used together"},
		{name: "yes without modify", argv: []string{"-y", "x"}, want: "require --modify"},
		{name: "negative context", argv: []string{"--context", "-1", "x"}, want: "--context"},
		{name: "missing prompt file", argv: []string{"-p", "/does/not/exist", "x"}, want: "prompt file"},
		{name: "unknown flag", argv: []string{"--bogus"}, want: "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.argv, "")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseArgs_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseArgs(context.Background(), testConfig(), []string{"--help"}, nil, &out)
	assert.ErrorIs(t, err, ErrHelp)
	assert.Contains(t, out.String(), "--modify")
	assert.Contains(t, out.String(), "explain")
}

func TestShouldUsePlainText(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Render.Format = "plain"
	assert.True(t, shouldUsePlainText(cfg))

	cfg.Render.Format = "markdown"
	t.Setenv("NO_COLOR", "1")
	assert.True(t, shouldUsePlainText(cfg))
}

func TestSummarizePrompt(t *testing.T) {
	assert.Equal(t, "short prompt", summarizePrompt("  short\n prompt "))
	long := strings.Repeat("word ", 20)
	got := summarizePrompt(long)
	assert.Len(t, got, 60)
	assert.True(t, strings.HasSuffix(got, "..."))

	wide := summarizePrompt(strings.Repeat("请修改这段代码", 10))
	assert.True(t, utf8.ValidString(wide))
	assert.Equal(t, 60, utf8.RuneCountInString(wide))
	assert.Equal(t, strings.Repeat("请修改这段代码", 10)[:57*3]+"...", wide)
}
