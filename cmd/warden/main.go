package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	otelPkg "github.com/basket/go-warden/internal/otel"
	"github.com/basket/go-warden/internal/persistence"
	"github.com/basket/go-warden/internal/telemetry"
	"github.com/basket/go-warden/pkg/governance"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.1-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage of %s:

SUBCOMMANDS:
  %s seed [-config <file>] [-watch]     Apply a workflow definition to the store
  %s check <from> <to>                  Validate a status transition
  %s evaluate -role <role> [-data <file>]
                                        Evaluate completion rules against task data
                                        (task data is a JSON object; - reads stdin)
  %s protocol <role> <error-type>       Resolve the error protocol for a role
  %s prompt <role>                      Synthesize the operating prompt for a role

FLAGS:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
ENVIRONMENT VARIABLES:
  WARDEN_HOME             Data directory (default: ~/.warden)
  WARDEN_OTEL_EXPORTER    Enable telemetry export: otlp-http, stdout, none
`)
}

// app bundles the dependencies subcommands share.
type app struct {
	store      *persistence.Store
	catalog    *governance.Catalog
	registry   *governance.Registry
	evaluator  *governance.Evaluator
	synthesize *governance.Synthesizer
	logger     *slog.Logger
	tracer     trace.Tracer
}

func homeDir() string {
	if env := os.Getenv("WARDEN_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".warden")
}

func main() {
	dbPath := flag.String("db", "", "sqlite database path (default: $WARDEN_HOME/warden.db)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	quietFlag := flag.Bool("quiet", false, "write logs to file only, not stdout")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	home := homeDir()
	quiet := *quietFlag || !isatty.IsTerminal(os.Stderr.Fd())
	logger, logCloser, err := telemetry.NewLogger(home, *logLevel, quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	otelCfg := otelPkg.Config{}
	if exporter := os.Getenv("WARDEN_OTEL_EXPORTER"); exporter != "" {
		otelCfg.Enabled = true
		otelCfg.Exporter = exporter
	}
	provider, err := otelPkg.Init(ctx, otelCfg)
	if err != nil {
		logger.Error("otel init failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	metrics, err := governance.NewMetrics(provider.Meter)
	if err != nil {
		logger.Error("metrics init failed", "error", err)
		os.Exit(1)
	}

	path := *dbPath
	if path == "" {
		path = filepath.Join(home, "warden.db")
	}
	store, err := persistence.Open(path)
	if err != nil {
		logger.Error("open store failed", "path", path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	a := newApp(store, metrics, logger, provider.Tracer)

	var code int
	switch args[0] {
	case "seed":
		code = runSeedCommand(ctx, a, args[1:])
	case "check":
		code = runCheckCommand(ctx, a, args[1:])
	case "evaluate":
		code = runEvaluateCommand(ctx, a, args[1:])
	case "protocol":
		code = runProtocolCommand(ctx, a, args[1:])
	case "prompt":
		code = runPromptCommand(ctx, a, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[0])
		printUsage()
		code = 2
	}
	os.Exit(code)
}

func newApp(store *persistence.Store, metrics *governance.Metrics, logger *slog.Logger, tracer trace.Tracer) *app {
	catalog := governance.NewCatalog(store)
	evaluator := governance.NewEvaluator(store, metrics)
	return &app{
		store:      store,
		catalog:    catalog,
		registry:   governance.NewRegistry(catalog, store, metrics),
		evaluator:  evaluator,
		synthesize: governance.NewSynthesizer(store, metrics),
		logger:     logger,
		tracer:     tracer,
	}
}

// testApp builds an app without telemetry wiring, for tests.
func testApp(store *persistence.Store, logger *slog.Logger) *app {
	if logger == nil {
		logger = slog.Default()
	}
	return newApp(store, nil, logger, nooptrace.NewTracerProvider().Tracer("warden-test"))
}
