package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benjaminschreck/go-consent/pkg/consent"
	"github.com/benjaminschreck/go-consent/pkg/consent/httpapi"
	"github.com/benjaminschreck/go-consent/pkg/consent/sheet"
	"github.com/joho/godotenv"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: consentgen <command> [flags]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  generate -template <docx> -data <xlsx>   Generate one consent per spreadsheet row")
	fmt.Fprintln(w, "  serve [-addr :8080]                      Serve the upload API")
	fmt.Fprintln(w, "  version                                  Show version information")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	if err := loadEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "failed to load .env file: %v\n", err)
		return 1
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "consentgen version %s\n", version)
		return 0
	case "generate":
		return runGenerate(ctx, args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		usage(stderr)
		return 2
	}
}

// loadEnv loads path into the environment when it exists. Variables already
// set win over the file.
func loadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// setup reads the configuration from the environment, applies the flag
// overrides, installs the result globally and loads the rules file.
func setup(apply func(*consent.Config)) (*consent.Config, *consent.Rules, error) {
	cfg := consent.ConfigFromEnvironment()
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := consent.SetGlobalConfig(cfg); err != nil {
		return nil, nil, err
	}
	consent.UpdateLoggerFromConfig()

	rules, err := consent.LoadRulesFile(cfg.RulesFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rules, nil
}

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("generate", flag.ContinueOnError)
	fset.SetOutput(stderr)
	templatePath := fset.String("template", "", "DOCX template (required)")
	dataPath := fset.String("data", "", "XLSX spreadsheet with one row per site (required)")
	out := fset.String("out", "", "output archive (default $CONSENT_OUTPUT or consentimientos_generados.zip)")
	rulesPath := fset.String("rules", "", "YAML rules file")
	workers := fset.Int("workers", 0, "documents built at once")
	sheetName := fset.String("sheet", "", "worksheet name (default the first sheet)")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if *templatePath == "" || *dataPath == "" {
		fmt.Fprintln(stderr, "generate: -template and -data are required")
		fset.Usage()
		return 2
	}

	cfg, rules, err := setup(func(c *consent.Config) {
		if *out != "" {
			c.Output = *out
		}
		if *rulesPath != "" {
			c.RulesFile = *rulesPath
		}
		if *workers > 0 {
			c.Workers = *workers
		}
		if *sheetName != "" {
			c.Sheet = *sheetName
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	tmpl, err := consent.LoadTemplateFile(*templatePath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", consent.NewInputError("template", err))
		return 1
	}
	records, err := sheet.ReadFile(*dataPath, sheet.Options{Sheet: cfg.Sheet})
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	records = sheet.Visible(records)

	logger := consent.GetLogger()
	builder := consent.NewBuilder(tmpl,
		consent.WithConfig(cfg),
		consent.WithRules(rules),
		consent.WithLogger(logger),
	)
	report, err := consent.Generate(ctx, builder, records, consent.GenerateOptions{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "generation interrupted: %v\n", err)
		return 1
	}

	file, err := os.Create(cfg.Output)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create %s: %v\n", cfg.Output, err)
		return 1
	}
	if err := report.Bundle.WriteZip(file); err != nil {
		file.Close()
		fmt.Fprintf(stderr, "failed to write %s: %v\n", cfg.Output, err)
		return 1
	}
	if err := file.Close(); err != nil {
		fmt.Fprintf(stderr, "failed to write %s: %v\n", cfg.Output, err)
		return 1
	}

	fmt.Fprintln(stdout, report.Summary())
	return 0
}

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fset := flag.NewFlagSet("serve", flag.ContinueOnError)
	fset.SetOutput(stderr)
	addr := fset.String("addr", "", "listen address (default $CONSENT_ADDR or :8080)")
	rulesPath := fset.String("rules", "", "YAML rules file")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	cfg, rules, err := setup(func(c *consent.Config) {
		if *addr != "" {
			c.Addr = *addr
		}
		if *rulesPath != "" {
			c.RulesFile = *rulesPath
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	logger := consent.GetLogger()
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewHandler(cfg, rules, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error: %v", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed: %v", err)
			return 1
		}
		logger.Info("server stopped")
	}
	return 0
}
