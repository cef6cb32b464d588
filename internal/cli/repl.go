// Package cli implements the conversational read-eval-print loop, wired
// against the core storage/bus/config/instance packages rather than a
// single shared *sql.DB.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/hazyhaar/goclode/internal/bus"
	"github.com/hazyhaar/goclode/internal/clog"
	"github.com/hazyhaar/goclode/internal/config"
	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/instance"
	"github.com/hazyhaar/goclode/internal/intent"
	"github.com/hazyhaar/goclode/internal/providers"
	"github.com/hazyhaar/goclode/internal/storage/migrate"
	"github.com/hazyhaar/goclode/internal/storage/sqlitestore"
	"github.com/hazyhaar/goclode/internal/transcript"
	"github.com/hazyhaar/goclode/internal/vcs"
)

// REPL is the main conversational interface for one project directory.
type REPL struct {
	directory string
	bus       *bus.Bus
	registry  *providers.Registry
	store     *transcript.Store
	git       *vcs.Manager
	parser    *intent.Parser
	engine    *sqlitestore.Engine

	rl     *readline.Instance
	ctx    context.Context
	cancel context.CancelFunc

	session      transcript.Session
	debugMode    bool
	shutdownOnce sync.Once
}

// Run builds a project Instance bound to directory and runs the REPL inside
// it, disposing every scoped resource when the loop exits.
func Run(ctx context.Context, directory string) error {
	_, err := instance.Provide(ctx, directory, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, runInScope(ctx, directory)
	})
	return err
}

func runInScope(ctx context.Context, directory string) error {
	cfg, err := config.Get(ctx, directory)
	if err != nil {
		return err
	}

	engine, err := sqlitestore.Open(directory)
	if err != nil {
		return err
	}
	defer engine.Close()
	storageRoot := filepath.Join(directory, ".opencode")

	proj := instance.From(ctx).Project()
	target := sqlitestore.New(engine, proj.ID)

	sentinel := filepath.Join(storageRoot, "migrated")
	if err := migrate.New(nil, target, proj.ID, sentinel).Run(ctx); err != nil {
		return err
	}

	b := bus.New()
	store := transcript.New(target, proj.ID, b)
	registry := providers.NewRegistry(cfg)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36m>\033[0m ",
		HistoryFile:     filepath.Join(storageRoot, "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return coreerr.IO("readline", err)
	}
	defer rl.Close()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &REPL{
		directory: directory,
		bus:       b,
		registry:  registry,
		store:     store,
		git:       vcs.NewManager(directory),
		parser:    intent.NewParser(),
		engine:    engine,
		rl:        rl,
		ctx:       loopCtx,
		cancel:    cancel,
	}

	return r.run()
}

func (r *REPL) run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		r.shutdown()
	}()

	providerID := "cerebras"
	if p := r.registry.Current(); p != nil {
		providerID = p.ID()
	}

	sess, err := r.store.CreateSession(r.ctx, providerID)
	if err != nil {
		return err
	}
	r.session = sess

	r.printWelcome()

	for {
		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		in := r.parser.Parse(line)
		if in == nil {
			continue
		}

		if err := r.handle(in); err != nil {
			fmt.Printf("\033[31mError: %v\033[0m\n", err)
		}
	}

	r.shutdown()
	return nil
}

func (r *REPL) handle(in *intent.Intent) error {
	clog.Ctx(r.ctx).Debug("intent parsed",
		"type", string(in.Type), "action", in.Action, "confidence", in.Confidence)

	switch in.Type {
	case intent.Exit:
		r.shutdown()
		return nil

	case intent.Help:
		r.printHelp()
		return nil

	case intent.History:
		return r.showHistory()

	case intent.Status:
		return r.showStatus()

	case intent.Diff:
		return r.showDiff()

	case intent.Switch:
		return r.handleSwitch(in.Provider)

	case intent.Config:
		return r.handleConfig(in.Args)

	case intent.Debug:
		r.debugMode = !r.debugMode
		fmt.Printf("debug mode: %v\n", r.debugMode)
		return nil

	default:
		return r.handleChat(in)
	}
}

func (r *REPL) handleChat(in *intent.Intent) error {
	provider := r.registry.Current()
	if provider == nil {
		return coreerr.Invalid("no provider available")
	}

	if _, err := r.store.AddMessage(r.ctx, r.session.ID, transcript.Message{
		Role:      "user",
		Content:   in.Raw,
		CreatedAt: time.Now(),
	}); err != nil {
		return err
	}

	messages, err := r.buildMessages()
	if err != nil {
		return err
	}

	fmt.Print("\033[90mthinking...\033[0m")
	start := time.Now()

	stream, err := provider.Stream(r.ctx, &providers.Request{Messages: messages, Temperature: 0.7})
	if err != nil {
		fmt.Println()
		return err
	}
	fmt.Print("\r\033[K")

	var full strings.Builder
	var tokensIn, tokensOut int
	for chunk := range stream {
		if chunk.Error != nil {
			return chunk.Error
		}
		if chunk.Delta != "" {
			fmt.Print(chunk.Delta)
			full.WriteString(chunk.Delta)
		}
		if chunk.Done {
			tokensIn = chunk.TokensIn
			tokensOut = chunk.TokensOut
		}
	}
	fmt.Println()

	_, err = r.store.AddMessage(r.ctx, r.session.ID, transcript.Message{
		Role:       "assistant",
		Content:    full.String(),
		ProviderID: provider.ID(),
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
		LatencyMS:  time.Since(start).Milliseconds(),
		CreatedAt:  time.Now(),
	})
	return err
}

func (r *REPL) buildMessages() ([]providers.Message, error) {
	history, err := r.store.GetMessages(r.ctx, r.session.ID)
	if err != nil {
		return nil, err
	}

	out := make([]providers.Message, 0, len(history)+1)
	out = append(out, providers.Message{
		Role:    "system",
		Content: "You are a terse, project-scoped coding assistant.",
	})
	for _, m := range history {
		out = append(out, providers.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (r *REPL) showHistory() error {
	msgs, err := r.store.GetMessages(r.ctx, r.session.ID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format(time.Kitchen), m.Role, m.Content)
	}
	return nil
}

func (r *REPL) showStatus() error {
	branch := ""
	if r.git.IsRepo() {
		branch, _ = r.git.CurrentBranch()
	}
	fmt.Printf("session: %s\nprovider: %s\nbranch: %s\n", r.session.ID, r.session.ProviderID, branch)
	return nil
}

func (r *REPL) showDiff() error {
	diff, err := r.store.GetSessionDiff(r.ctx, r.session.ID)
	if err != nil {
		if transcript.IsNotFound(err) {
			fmt.Println("no diff recorded for this session")
			return nil
		}
		return err
	}
	for _, f := range diff.Files {
		fmt.Printf("%s +%d -%d\n", f.Path, f.Additions, f.Deletions)
	}
	return nil
}

func (r *REPL) handleSwitch(providerID string) error {
	if providerID == "" {
		fmt.Println("usage: /provider <id>")
		return nil
	}
	if err := r.registry.SetCurrent(providerID); err != nil {
		return err
	}
	fmt.Printf("switched to %s\n", providerID)
	return nil
}

func (r *REPL) handleConfig(args []string) error {
	if len(args) == 0 {
		cfg, err := config.Get(r.ctx, r.directory)
		if err != nil {
			return err
		}
		fmt.Printf("theme=%s share=%s model=%s\n", cfg.Theme, cfg.Share, cfg.Model)
		return nil
	}
	fmt.Println("usage: /config")
	return nil
}

func (r *REPL) printWelcome() {
	fmt.Println("\033[1mGoClode\033[0m — project-scoped coding assistant")
	fmt.Printf("session %s started\n", r.session.ID)
}

func (r *REPL) printHelp() {
	fmt.Println(`commands:
  /help      show this help
  /history   show this session's messages
  /status    show session/provider/branch
  /diff      show the session's recorded diff
  /provider  switch the active provider
  /config    show effective configuration
  /debug     toggle debug mode
  /exit      quit`)
}

func (r *REPL) shutdown() {
	r.shutdownOnce.Do(func() {
		r.cancel()
	})
}
