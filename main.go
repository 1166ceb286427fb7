package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/markis/ai-cli/internal/args"
	"github.com/markis/ai-cli/internal/client"
	"github.com/markis/ai-cli/internal/config"
	"github.com/markis/ai-cli/internal/diff"
	"github.com/markis/ai-cli/internal/editor"
	"github.com/markis/ai-cli/internal/logging"
	"github.com/markis/ai-cli/internal/modify"
	"github.com/markis/ai-cli/internal/prompt"
	"github.com/markis/ai-cli/internal/render"
	"github.com/markis/ai-cli/internal/review"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitCancelled = 130
)

// main function to parse arguments and run ask or modify mode.
func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return report(os.Stderr, err)
	}

	arguments, err := args.ParseArgs(ctx, cfg, os.Args[1:], args.PipedStdin(), os.Stdout)
	if errors.Is(err, args.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return report(os.Stderr, err)
	}

	logger := logging.New(os.Stderr, arguments.Debug)
	logger.Debug("starting", "model", arguments.Model, "modify", arguments.ModifyFile, "command", arguments.Command)

	apiKey, err := resolveAPIKey(cfg, arguments)
	if err != nil {
		return report(os.Stderr, err)
	}
	c := client.New(cfg, apiKey, logger)

	if arguments.ModifyMode() {
		err = runModify(ctx, cfg, arguments, c, logger)
	} else {
		err = ask(ctx, arguments, c)
	}
	if err != nil && ctx.Err() != nil {
		err = review.ErrCancelled
	}
	return report(os.Stderr, err)
}

// resolveAPIKey returns the API key once the modify target is known to be
// readable, so a bad target file is reported before a missing key.
func resolveAPIKey(cfg *config.Config, arguments args.Arguments) (string, error) {
	if arguments.ModifyMode() {
		if _, err := modify.ReadInput(arguments.ModifyFile, arguments.Prompt()); err != nil {
			return "", err
		}
	}
	return client.APIKey(cfg)
}

func ask(ctx context.Context, arguments args.Arguments, c *client.Client) error {
	chunks, err := c.Stream(ctx, client.Request{
		Model:    arguments.Model,
		Messages: []client.Message{{Role: "user", Content: arguments.Prompt()}},
	})
	if err != nil {
		return err
	}
	return render.NewTerminalRenderer(os.Stdout, arguments.UsePlainText).Render(chunks)
}

func runModify(ctx context.Context, cfg *config.Config, arguments args.Arguments, c *client.Client, logger *slog.Logger) error {
	mode := review.Interactive
	switch {
	case arguments.Yes:
		mode = review.AcceptAll
	case arguments.DryRun:
		mode = review.DisplayOnly
	}

	launcher := editor.NewLauncher(editor.Resolve(arguments.Editor), filepath.Ext(arguments.ModifyFile), logger)

	var term review.Terminal
	if mode == review.Interactive {
		p, err := prompt.Open(os.Stdout)
		switch {
		case errors.Is(err, prompt.ErrNoTerminal):
			logger.Warn("no terminal for review, showing changes only", "err", err)
			mode = review.DisplayOnly
		case err != nil:
			return err
		default:
			defer p.Close()
			term = p
		}

		// The editor needs the terminal even when stdin is piped.
		if !prompt.IsTerminal(os.Stdin) {
			if tty, err := os.Open("/dev/tty"); err == nil {
				defer tty.Close()
				launcher.Stdin = tty
			}
		}
	}

	controller := review.NewController(term, launcher, os.Stdout,
		render.NewHunkRenderer(arguments.UsePlainText), logger, mode)
	runner := modify.NewRunner(c, controller, os.Stdout, logger, modify.Options{
		Model:       arguments.Model,
		Temperature: cfg.Modify.Temperature,
		MaxTokens:   cfg.Modify.MaxTokens,
		Diff: diff.Options{
			ContextLines:  arguments.ContextLines,
			MergeDistance: arguments.MergeDistance,
		},
	})

	outcome, err := runner.Run(ctx, arguments.ModifyFile, arguments.Prompt(), arguments.Input)
	if err != nil {
		return err
	}
	logger.Debug("modify finished", "outcome", outcome)
	return nil
}

// report prints err and returns the exit code for it.
func report(w io.Writer, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, review.ErrCancelled), errors.Is(err, prompt.ErrInterrupted):
		fmt.Fprintln(w, "cancelled")
		return exitCancelled
	default:
		fmt.Fprintln(w, "Error:", err)
		return exitFailure
	}
}
