package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mailtriage/internal/analytics"
	"mailtriage/internal/config"
	"mailtriage/internal/email"
	"mailtriage/internal/enrichment"
	"mailtriage/internal/extractor"
	"mailtriage/internal/inbox"
	"mailtriage/internal/intelligence"
	"mailtriage/internal/openai"
	"mailtriage/internal/poller"
	"mailtriage/internal/router"
	"mailtriage/internal/store"
	"mailtriage/internal/triage"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "triagectl",
		Short: "Operate the support mail triage pipeline from the command line",
		Long: `triagectl replays offline mail through the triage pipeline, runs a
single inbox poll cycle and prints the analytics reports.

Configuration is read from the environment (and .env) like the server.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(pollOnceCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the pipeline pieces a command needs
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  store.Store
	triage *triage.Service
}

// newApp opens the record store and, when withPipeline is set, wires the
// language model, outbound mail and routing behind the triage service
func newApp(ctx context.Context, withPipeline bool) (*app, error) {
	cfg := config.Load()
	logger := cfg.SetupLogger()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, store: st}
	if !withPipeline {
		return a, nil
	}

	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, processed records will not outlive this command")
	}

	llm, err := openai.NewClient(cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	adapter := intelligence.NewAdapter(llm)

	sender, err := email.NewSender(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a.triage = triage.NewService(
		st,
		enrichment.NewEnricher(adapter, extractor.New(adapter), logger),
		router.New(cfg, sender, adapter, st, logger),
		adapter,
		analytics.NewService(st, logger),
		logger,
	)
	return a, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func importCmd() *cobra.Command {
	var emlPath, mboxPath string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replay EML or MBOX mail through enrich-and-forward",
		Long: `Parse offline mail and run every message through the same pipeline as a
manual submission: enrichment, forwarding, auto-response and storage.

--eml accepts a single .eml file or a directory scanned recursively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (emlPath == "") == (mboxPath == "") {
				return fmt.Errorf("exactly one of --eml or --mbox is required")
			}

			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.store.Close()

			imp := &importer{svc: a.triage, logger: a.logger}
			if mboxPath != "" {
				err = imp.importMBOX(ctx, mboxPath, batchSize)
			} else {
				err = imp.importEML(ctx, emlPath)
			}

			fmt.Printf("Imported %d emails (%d forwarded, %d failed)\n", imp.stored, imp.forwarded, imp.failed)
			return err
		},
	}

	cmd.Flags().StringVar(&emlPath, "eml", "", "Path to EML file or directory containing EML files")
	cmd.Flags().StringVar(&mboxPath, "mbox", "", "Path to MBOX file")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "MBOX messages parsed per batch")

	return cmd
}

// importer feeds parsed messages to the triage service one at a time
type importer struct {
	svc       *triage.Service
	logger    zerolog.Logger
	stored    int
	forwarded int
	failed    int
}

func (imp *importer) importEML(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to access path: %w", err)
	}

	var messages []*inbox.Message
	switch {
	case info.IsDir():
		fmt.Println("Scanning directory for EML files...")
		messages, err = inbox.ParseDirectory(path)
		if err != nil {
			return err
		}
	case strings.HasSuffix(strings.ToLower(path), ".eml"):
		msg, err := inbox.ParseEMLFile(path)
		if err != nil && msg == nil {
			return err
		}
		messages = []*inbox.Message{msg}
	default:
		return fmt.Errorf("invalid file type: expected .eml file or directory")
	}

	fmt.Printf("Parsed %d emails\n", len(messages))
	return imp.submit(ctx, messages)
}

func (imp *importer) importMBOX(ctx context.Context, path string, batchSize int) error {
	return inbox.ParseMBOXFileStreaming(path, batchSize, func(batch []*inbox.Message, progress inbox.MBOXProgress) error {
		if err := imp.submit(ctx, batch); err != nil {
			return err
		}
		fmt.Printf("Progress: %.1f%% (%d messages parsed)\n", progress.PercentComplete, progress.MessagesParsed)
		return nil
	})
}

func (imp *importer) submit(ctx context.Context, messages []*inbox.Message) error {
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := imp.svc.EnrichAndForward(ctx, msg.ToInbound())
		if err != nil {
			imp.failed++
			imp.logger.Warn().Err(err).Str("message_id", msg.MessageID).Msg("Failed to import email")
			continue
		}

		imp.stored++
		if outcome.Forwarded {
			imp.forwarded++
		}
	}
	return nil
}

func pollOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll-once",
		Short: "Run a single inbox poll cycle and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.store.Close()

			p := poller.New(inbox.NewIMAPTransport(a.cfg, a.logger), a.triage, a.cfg, a.logger)
			result, cycleErr := p.RunCycle(ctx)
			if err := printJSON(result); err != nil {
				return err
			}
			return cycleErr
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "report weekly|stats",
		Short:     "Print the weekly report or the 30-day response statistics as JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{analytics.PeriodWeekly, analytics.PeriodStats},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.store.Close()

			report, err := analytics.NewService(a.store, a.logger).Report(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
