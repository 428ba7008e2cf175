package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cseek/internal/buffers"
	"cseek/internal/config"
	"cseek/internal/domain"
	"cseek/internal/eventbus"
	"cseek/internal/locate"
	"cseek/internal/position"
	"cseek/internal/query"
	"cseek/internal/search"
	"cseek/internal/ui"
)

var (
	flagIndexFile  string
	flagProgram    string
	flagDir        string
	flagSearchType string
	flagQuery      string
	flagNoPreview  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cseek",
		Short: "Live, incrementally narrowed queries over a cscope index",
		Long: `cseek drives a pre-built cscope cross-reference index interactively:
every keystroke restarts the query, results stream in as the indexer finds
them, the selection is previewed in place and Enter prints the final
file:line jump target.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVarP(&flagIndexFile, "file", "f", "", "index file path (absolute or relative)")
	rootCmd.Flags().StringVarP(&flagProgram, "program", "p", "", "indexer executable (default cscope)")
	rootCmd.Flags().StringVarP(&flagDir, "dir", "d", "", "directory to resolve the index from (default cwd)")
	rootCmd.Flags().StringVarP(&flagSearchType, "type", "t", "symbol", "search type: symbol, definition, called-by, calling, text, egrep, file, including, assignment")
	rootCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "seed query text")
	rootCmd.Flags().BoolVar(&flagNoPreview, "no-preview", false, "disable the preview pane")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Log to a file; stdout belongs to the TUI and the final jump target
	logFile, err := os.OpenFile("cseek.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	cfg, err := config.NewService().Load()
	if err != nil {
		log.Printf("Error loading config: %v", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg)

	startDir := flagDir
	if startDir == "" {
		if startDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("cannot determine working directory: %w", err)
		}
	}

	searchType, err := domain.ParseSearchType(flagSearchType)
	if err != nil {
		return err
	}

	// Resolve the index before anything else; an unresolvable index is a
	// configuration error and no subprocess may be launched.
	finder := locate.NewFinder(locate.NewMarkerDiscoverer())
	loc, err := finder.Resolve(cfg.IndexFile, startDir)
	if err != nil {
		var notFound *locate.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("index file not found: %s (build it with %s -b)", notFound.Configured, cfg.Program)
		}
		return err
	}

	bus := eventbus.New()
	defer bus.Close()
	bus.Publish(eventbus.DatabaseResolvedEvent{Location: loc})

	splitter := query.NewSplitter(firstRune(cfg.Query.NarrowRune))
	builder := query.NewBuilder(cfg.Program, cfg.ExtraArgs)
	orch := search.NewOrchestrator(bus, splitter, query.NewCompiler(), builder, loc, cfg.UI.MaxContentWidth)
	defer orch.Terminate()

	resolver := position.NewResolver(buffers.NewManager(), loc.Directory)

	// Re-run the current query when the external indexer rebuilds the database
	watcher, err := locate.NewIndexWatcher(bus, loc)
	if err != nil {
		log.Printf("Index watcher unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	model := ui.NewModel(bus, cfg, splitter, resolver, loc,
		locate.SupportsAssignment(loc.Path), searchType, flagQuery, orch.Terminate)

	p := tea.NewProgram(model, tea.WithAltScreen())
	model.SetProgram(p)

	forwardEvents(bus, p)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		p.Quit()
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}

	if m, ok := finalModel.(*ui.Model); ok {
		if marker := m.Committed(); marker != nil {
			fmt.Printf("%s:%d\n", marker.File, marker.Line)
		}
	}

	return nil
}

// forwardEvents pumps bus events into the Bubble Tea program
func forwardEvents(bus eventbus.EventBus, p *tea.Program) {
	eventChan := make(chan eventbus.DomainEvent, 100)
	forward := func(e eventbus.DomainEvent) {
		select {
		case eventChan <- e:
		default:
			log.Println("Event channel full, dropping event")
		}
	}

	for _, eventType := range []eventbus.EventType{
		eventbus.EventSearchStarted,
		eventbus.EventCandidatesFound,
		eventbus.EventSearchFinished,
		eventbus.EventSearchFailed,
		eventbus.EventIndexRebuilt,
		eventbus.EventError,
	} {
		bus.Subscribe(eventType, forward)
	}

	go func() {
		for event := range eventChan {
			p.Send(ui.EventMsg{Event: event})
		}
	}()
}

// applyFlags lets command line flags override the stored configuration
func applyFlags(cfg *config.Config) {
	if flagIndexFile != "" {
		cfg.IndexFile = flagIndexFile
	}
	if flagProgram != "" {
		cfg.Program = flagProgram
	}
	if flagNoPreview {
		cfg.UI.ShowPreview = false
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return '#'
}
