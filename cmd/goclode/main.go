// GoClode - AI Coding Assistant
// A conversational CLI for coding with LLMs, scoped to a single project
// directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazyhaar/goclode/internal/cli"
	"github.com/hazyhaar/goclode/internal/clog"
)

const version = "0.2.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version")
		directory   = flag.String("dir", ".", "Project directory (default: current directory)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `GoClode v%s - AI Coding Assistant

Usage: goclode [options]

Options:
`, version)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  goclode                    Start interactive session in the current directory
  goclode --debug            Start with debug logging
  goclode --dir ./myproject  Start scoped to a specific project

Environment Variables:
  CEREBRAS_API_KEY           Cerebras API key
  OPENROUTER_API_KEY         OpenRouter API key (optional)
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("GoClode v%s\n", version)
		return
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	ctx := clog.With(context.Background(), clog.New(os.Stderr, level))

	abs, err := filepath.Abs(*directory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cli.Run(ctx, abs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
