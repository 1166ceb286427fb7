package args

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/markis/ai-cli/internal/config"
	"github.com/spf13/cobra"
)

// ErrHelp is returned when help was printed instead of running a command.
var ErrHelp = errors.New("help requested")

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Prompts      []string
	Input        string
	Model        string
	Command      string
	UsePlainText bool
	Debug        bool

	ModifyFile    string
	PromptFile    string
	ContextLines  int
	MergeDistance int
	Editor        string
	DryRun        bool
	Yes           bool
}

// Prompt joins the prompt parts.
func (a Arguments) Prompt() string {
	return strings.Join(a.Prompts, "\n\n")
}

// ModifyMode reports whether a file was given with --modify.
func (a Arguments) ModifyMode() bool {
	return a.ModifyFile != ""
}

// ParseArgs parses command-line arguments and piped input, returning an Arguments struct.
// It uses Cobra to handle commands and flags, allowing for both predefined commands and direct prompts.
// stdin is nil when nothing is piped. Help and usage text is written to out.
func ParseArgs(ctx context.Context, cfg *config.Config, argv []string, stdin io.Reader, out io.Writer) (Arguments, error) {
	args := Arguments{}
	ran := false

	rootCmd := &cobra.Command{
		Use:   "ai-cli [command] [flags] [prompt]",
		Args:  cobra.ArbitraryArgs,
		Short: "An AI CLI tool for asking questions and modifying files",
		Long: "Ask a question and stream the answer, or use --modify to request changes to a file\n" +
			"and review them hunk by hunk before they are written.",
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			ran = true
			// Handle direct prompts (when no command is specified)
			if len(cmdArgs) > 0 {
				args.Prompts = append(args.Prompts, strings.Join(cmdArgs, " "))
			}
			return nil
		},
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetArgs(argv)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&args.Model, "model", cfg.Model, "The AI model to use")
	flags.BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg), "Disable markdown rendering")
	flags.BoolVar(&args.Debug, "debug", false, "Enable debug logging")

	// Modify mode flags
	flags.StringVarP(&args.ModifyFile, "modify", "m", "", "Request changes to `FILE` and review them")
	flags.StringVarP(&args.PromptFile, "prompt-file", "p", "", "Read the prompt from `FILE`")
	flags.IntVar(&args.ContextLines, "context", cfg.Modify.ContextLines, "Unchanged lines shown around each hunk")
	flags.IntVar(&args.MergeDistance, "merge", cfg.Modify.MergeDistance, "Merge changes separated by fewer than `N` unchanged lines")
	flags.StringVar(&args.Editor, "editor", cfg.Editor, "Editor command used for edits")
	flags.BoolVar(&args.DryRun, "dry-run", false, "Show the suggested changes without writing them")
	flags.BoolVarP(&args.Yes, "yes", "y", false, "Accept all suggested changes without prompting")

	// Add predefined commands
	names := make([]string, 0, len(cfg.Prompts))
	for name := range cfg.Prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmdPrompt := cfg.Prompts[name]
		cmd := &cobra.Command{
			Use:   name + " [input]",
			Short: summarizePrompt(cmdPrompt.Prompt),
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				ran = true
				args.Command = name
				if len(cmdArgs) > 0 {
					args.Prompts = append(args.Prompts, strings.Join(cmdArgs, " "))
				}
				args.Prompts = append(args.Prompts, cmdPrompt.Prompt)
				if cmdPrompt.Model != "" && !cmd.Flags().Changed("model") {
					args.Model = cmdPrompt.Model
				}
				return nil
			},
		}
		rootCmd.AddCommand(cmd)
	}

	// Execute the command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return Arguments{}, err
	}
	if !ran {
		return Arguments{}, ErrHelp
	}

	if args.PromptFile != "" {
		data, err := os.ReadFile(args.PromptFile)
		if err != nil {
			return Arguments{}, fmt.Errorf("failed to read prompt file: %w", err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			args.Prompts = append(args.Prompts, text)
		}
	}

	// Read from stdin if available
	if stdin != nil {
		input, err := readInput(stdin)
		if err != nil {
			return Arguments{}, err
		}
		args.Input = input
	}

	if err := args.validate(); err != nil {
		return Arguments{}, err
	}
	return args, nil
}

func (a *Arguments) validate() error {
	if a.ContextLines < 0 {
		return errors.New("--context must not be negative")
	}
	if a.MergeDistance < 0 {
		return errors.New("--merge must not be negative")
	}
	if a.DryRun && a.Yes {
		return errors.New("--dry-run and --yes cannot be used together")
	}

	if a.ModifyMode() {
		if len(a.Prompts) == 0 {
			return errors.New("no modification prompt provided")
		}
		return nil
	}
	if a.DryRun || a.Yes {
		return errors.New("--dry-run and --yes require --modify")
	}

	// In ask mode piped input is part of the prompt
	if a.Input != "" {
		a.Prompts = append(a.Prompts, a.Input)
		a.Input = ""
	}
	if len(a.Prompts) == 0 {
		return errors.New("no prompt provided")
	}
	return nil
}

func readInput(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max buffer
	var buf strings.Builder
	for scanner.Scan() {
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// PipedStdin returns os.Stdin when input is piped or redirected, else nil.
func PipedStdin() io.Reader {
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		return os.Stdin
	}
	return nil
}

// shouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func shouldUsePlainText(cfg *config.Config) bool {
	// Check if the rendering format is set to plain
	if cfg.Render.Format == "plain" {
		return true
	}

	// Redirected output and NO_COLOR both disable color
	if !term.FromEnv().IsColorEnabled() {
		return true
	}

	// Check for TERM=dumb
	if os.Getenv("TERM") == "dumb" {
		return true
	}

	return false
}

func summarizePrompt(prompt string) string {
	// Trim and limit the length of the prompt summary
	summary := strings.Join(strings.Fields(prompt), " ")
	if runes := []rune(summary); len(runes) > 60 {
		summary = string(runes[:57]) + "..."
	}
	return summary
}
