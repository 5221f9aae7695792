package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"esp-translator/internal/classify"
	"esp-translator/internal/config"
	"esp-translator/internal/esp"
	"esp-translator/internal/espenc"
	"esp-translator/internal/extract"
	"esp-translator/internal/inject"
	"esp-translator/internal/interchange"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "esp-translator",
		Short: "Extract and reinject translatable text in Elder Scrolls III data files",
		Long:  "A round-trip localization tool for .esm/.esp files: extracts translatable prose into a CSV table and injects edited text back into a byte-exact, structurally valid file.",
	}

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(injectCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <input.esp> <output.csv>",
		Short: "Extract translatable text into a CSV interchange table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			types, _ := cmd.Flags().GetStringSlice("types")
			rulesPath, _ := cmd.Flags().GetString("rules")
			return runExtract(args[0], args[1], types, rulesPath)
		},
	}

	cmd.Flags().StringSlice("types", nil, "Record type tags to extract (e.g. BOOK,INFO,GMST); default all")
	cmd.Flags().String("rules", "", "TOML file with extra classifier rules")

	return cmd
}

func injectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject <input.esp> <translations.csv> <output.esp>",
		Short: "Inject translated text from a CSV table back into a data file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rulesPath, _ := cmd.Flags().GetString("rules")
			return runInject(args[0], args[1], args[2], rulesPath)
		},
	}

	cmd.Flags().String("rules", "", "TOML file with extra classifier rules")

	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <input.esp>",
		Short: "Check that a data file decodes and re-encodes byte-for-byte",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args[0])
		},
	}
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// initClassifier builds the shared codec and classifier from config and
// an optional rule file.
func initClassifier(cfg *config.Config, rulesPath string) (*espenc.Codec, *classify.Classifier, error) {
	codec, err := espenc.New(cfg.Encoding)
	if err != nil {
		return nil, nil, fmt.Errorf("configure encoding: %w", err)
	}

	rules := classify.DefaultRules()
	if rulesPath != "" {
		rules, err = classify.LoadRules(rulesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load classifier rules: %w", err)
		}
		log.Info().Str("path", rulesPath).Msg("Loaded classifier rule file")
	}

	return codec, classify.New(rules, codec), nil
}

func applyLogLevel(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, keeping info")
		return
	}
	zerolog.SetGlobalLevel(level)
}

// runExtract handles the `extract` command.
func runExtract(inputPath, outputPath string, types []string, rulesPath string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()
	applyLogLevel(cfg)

	codec, cls, err := initClassifier(cfg, rulesPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}

	f, err := esp.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", inputPath, err)
	}

	log.Info().
		Str("input", inputPath).
		Int("records", len(f.Records)).
		Str("types", strings.Join(types, ",")).
		Msg("Starting extraction")

	rows, err := extract.Run(ctx, f, cls, codec, extract.Options{
		Types:   types,
		Workers: cfg.WorkerCount,
	})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output table: %w", err)
	}
	defer out.Close()

	if err := interchange.WriteAll(out, rows); err != nil {
		return fmt.Errorf("write output table: %w", err)
	}

	log.Info().
		Int("rows", len(rows)).
		Str("output", outputPath).
		Msg("Extraction complete")

	return nil
}

// runInject handles the `inject` command.
func runInject(inputPath, csvPath, outputPath, rulesPath string) error {
	cfg := config.Load()
	applyLogLevel(cfg)

	codec, cls, err := initClassifier(cfg, rulesPath)
	if err != nil {
		return err
	}

	table, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open translation table: %w", err)
	}
	rows, err := interchange.ReadAll(table)
	table.Close()
	if err != nil {
		return fmt.Errorf("read translation table: %w", err)
	}
	log.Info().Int("rows", len(rows)).Str("table", csvPath).Msg("Loaded translation table")

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}

	f, err := esp.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", inputPath, err)
	}

	stats, problems, err := inject.Run(f, rows, cls, codec)
	if err != nil {
		return fmt.Errorf("inject: %w", err)
	}

	// All problems are reported before failing so one run surfaces
	// everything; no output is written when any occurred.
	if len(problems) > 0 {
		for _, p := range problems {
			log.Error().Str("id", p.ID).Str("kind", p.Kind.String()).Msg("Injection problem")
		}
		return problems
	}

	if err := os.WriteFile(outputPath, f.Encode(), 0644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	log.Info().
		Int("records", stats.Records).
		Int("injected", stats.Injected).
		Str("output", outputPath).
		Msg("Injection complete")

	return nil
}

// runVerify handles the `verify` command.
func runVerify(inputPath string) error {
	cfg := config.Load()
	applyLogLevel(cfg)

	codec, err := espenc.New(cfg.Encoding)
	if err != nil {
		return fmt.Errorf("configure encoding: %w", err)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}

	f, err := esp.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", inputPath, err)
	}

	info, err := f.HeaderInfo(codec)
	if err != nil {
		return fmt.Errorf("decode header: %w", err)
	}

	masters := make([]string, 0, len(info.Masters))
	for _, m := range info.Masters {
		masters = append(masters, m.Name)
	}

	deleted, persistent := 0, 0
	for _, rec := range f.Records {
		if rec.Deleted() {
			deleted++
		}
		if rec.Persistent() {
			persistent++
		}
	}

	log.Info().
		Str("author", info.Author).
		Float32("version", info.Version).
		Uint32("records", info.NumRecords).
		Int("deleted", deleted).
		Int("persistent", persistent).
		Strs("masters", masters).
		Msg("Header decoded")

	if !bytes.Equal(f.Encode(), data) {
		return fmt.Errorf("re-encoding %s did not reproduce the original bytes", inputPath)
	}

	log.Info().
		Str("input", inputPath).
		Int("bytes", len(data)).
		Msg("Round-trip verified byte-for-byte")

	return nil
}
