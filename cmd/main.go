// Package main provides the CLI entry point for the API check harness.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/clinic/tools/apicheck/internal/assert"
	"github.com/example/clinic/tools/apicheck/internal/catalog"
	"github.com/example/clinic/tools/apicheck/internal/client"
	"github.com/example/clinic/tools/apicheck/internal/config"
	"github.com/example/clinic/tools/apicheck/internal/fixture"
	"github.com/example/clinic/tools/apicheck/internal/metrics"
	"github.com/example/clinic/tools/apicheck/internal/openapi"
	"github.com/example/clinic/tools/apicheck/internal/report"
	"github.com/example/clinic/tools/apicheck/internal/scenario"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Exit codes: 0 all scenarios passed, 1 at least one failed, 2 usage or
// configuration error.
const (
	exitOK       = 0
	exitFailures = 1
	exitUsage    = 2
)

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// CLI flags
var (
	configPath     string
	baseURL        string
	scenarioNames  stringList
	scenariosDir   string
	timeout        time.Duration
	seed           uint64
	verbose        bool
	noColor        bool
	list           bool
	validate       bool
	dryRun         bool
	showVersion    bool
	openapiPath    string
	prometheusAddr string
)

func init() {
	// Configuration
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&configPath, "c", "", "Path to the YAML configuration file (shorthand)")

	// Target overrides
	flag.StringVar(&baseURL, "base-url", "", "Override target base URL (e.g., http://localhost:8000)")
	flag.DurationVar(&timeout, "timeout", 0, "Override per-request timeout (e.g., 10s)")
	flag.Uint64Var(&seed, "seed", 0, "Fix the fixture random seed for reproducible payloads")

	// Scenario selection
	flag.Var(&scenarioNames, "scenario", "Run only the named scenario (repeatable)")
	flag.Var(&scenarioNames, "s", "Run only the named scenario (shorthand, repeatable)")
	flag.StringVar(&scenariosDir, "scenarios-dir", "", "Directory with additional YAML scenario files")

	// Utility flags
	flag.BoolVar(&verbose, "verbose", false, "Print every step outcome, not just failures")
	flag.BoolVar(&verbose, "v", false, "Print every step outcome (shorthand)")
	flag.BoolVar(&noColor, "no-color", false, "Disable ANSI colors in the report")
	flag.BoolVar(&list, "list", false, "List available scenarios and exit")
	flag.BoolVar(&list, "l", false, "List available scenarios (shorthand)")
	flag.BoolVar(&validate, "validate", false, "Validate configuration and scenarios, then exit")
	flag.BoolVar(&dryRun, "dry-run", false, "Show the execution plan without sending requests")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	// Cross-checking and observability
	flag.StringVar(&openapiPath, "openapi", "", "Cross-check scenario paths against an OpenAPI spec file")
	flag.StringVar(&prometheusAddr, "prometheus", "", "Expose Prometheus metrics during the run (e.g., :9901)")

	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `apicheck - Clinic Registration API Test Harness

USAGE:
    apicheck -base-url <url> [options]
    apicheck -config <path> [options]
    apicheck -list

DESCRIPTION:
    Runs assertion scenarios against a live clinic registration backend.
    Each scenario creates its own fixtures with randomized unique payloads,
    walks a sequence of HTTP steps with expected-status and body checks,
    and deletes created fixtures afterwards in reverse order.

    Scenarios come from the built-in catalog plus any YAML files in
    -scenarios-dir. A run fails when any step's assertion fails; an
    expected 4xx is a pass.

CONFIGURATION:
    -config, -c <path>    Path to the YAML configuration file
    Settings also come from APICHECK_* environment variables
    (APICHECK_BASE_URL, APICHECK_TIMEOUT, ...). Flags win over both.

TARGET OPTIONS:
    -base-url <url>       Backend root URL (required unless in config/env)
    -timeout <dur>        Per-request timeout (default 30s)
    -seed <n>             Fix the fixture random seed

SCENARIO OPTIONS:
    -scenario, -s <name>  Run only the named scenario (repeatable)
    -scenarios-dir <dir>  Load additional YAML scenario files

UTILITY OPTIONS:
    -list, -l             List available scenarios
    -validate             Validate configuration and scenarios, then exit
    -dry-run              Show execution plan without sending requests
    -verbose, -v          Print every step outcome
    -no-color             Disable ANSI colors
    -version              Show version information
    -help, -h             Show this help message

OBSERVABILITY:
    -openapi <path>       Warn about steps missing from an OpenAPI spec;
                          with -list, list the document's operations
    -prometheus <addr>    Expose /metrics during the run (e.g., :9901)

EXIT CODES:
    0    every selected scenario passed
    1    at least one assertion failed
    2    usage or configuration error

EXAMPLES:
    # Run the full catalog against a local backend
    apicheck -base-url http://localhost:8000

    # Run two scenarios verbosely
    apicheck -base-url http://localhost:8000 -s registration-lifecycle -s file-upload -v

    # Use a config file with extra scenario definitions
    apicheck -config configs/staging.yaml -scenarios-dir ./scenarios

    # Cross-check scenario paths against the backend's OpenAPI document
    apicheck -base-url http://localhost:8000 -openapi docs/openapi.yaml -dry-run

    # List the operations an OpenAPI document declares
    apicheck -openapi docs/openapi.yaml -list
`)
}

func main() {
	flag.Parse()

	if showVersion {
		printVersion()
		os.Exit(exitOK)
	}

	os.Exit(run())
}

// run carries the whole invocation so deferred cleanup survives os.Exit.
func run() int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return exitUsage
	}
	applyOverrides(&cfg)

	factory := newFactory(cfg.Seed)
	registry := scenario.NewRegistry()
	if err := catalog.Register(registry, factory); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering catalog: %v\n", err)
		return exitUsage
	}
	if err := registry.LoadDirectory(cfg.ScenariosDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenarios from %s: %v\n", cfg.ScenariosDir, err)
		return exitUsage
	}

	// Listing needs no target. With -openapi, list the document's
	// operations instead of the scenario catalog.
	if list {
		if cfg.OpenAPISpec != "" {
			if err := printOperationList(cfg.OpenAPISpec); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading OpenAPI spec: %v\n", err)
				return exitUsage
			}
			return exitOK
		}
		printScenarioList(registry)
		return exitOK
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cfg.Target.BaseURL == "" && configPath == "" {
			fmt.Fprintln(os.Stderr)
			printUsage()
		}
		return exitUsage
	}
	logger := newLogger(cfg)

	defs, err := selectDefinitions(registry, scenarioNames)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Available scenarios: %s\n", strings.Join(registry.Names(), ", "))
		return exitUsage
	}

	if cfg.OpenAPISpec != "" {
		if err := crossCheck(cfg.OpenAPISpec, defs); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading OpenAPI spec: %v\n", err)
			return exitUsage
		}
	}

	if validate {
		fmt.Printf("Configuration '%s' is valid.\n", cfg.Name)
		printConfigSummary(cfg, registry)
		return exitOK
	}

	if dryRun {
		printExecutionPlan(cfg, defs)
		return exitOK
	}

	return execute(cfg, logger, defs)
}

func execute(cfg config.Config, logger zerolog.Logger, defs []scenario.Definition) int {
	c, err := client.New(cfg.Target.BaseURL, client.Options{
		Timeout:           cfg.Target.Timeout,
		TLSSkipVerify:     cfg.Target.TLSSkipVerify,
		Headers:           cfg.Target.Headers,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		metricsErr := recorder.Serve(ctx, cfg.MetricsAddr)
		// Cancel the context before draining, or the listener never stops.
		defer func() {
			stop()
			if err, ok := <-metricsErr; ok && err != nil {
				logger.Warn().Err(err).Msg("metrics listener failed")
			}
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	orch := scenario.NewOrchestrator(c, logger, recorder)
	printer := report.NewPrinter(os.Stdout, report.Options{
		Verbose: cfg.Output.Verbose,
		NoColor: cfg.Output.NoColor,
	})

	fmt.Printf("apicheck %s against %s (%d scenarios)\n\n", version, cfg.Target.BaseURL, len(defs))

	for _, def := range defs {
		if ctx.Err() != nil {
			logger.Warn().Msg("interrupted, skipping remaining scenarios")
			break
		}
		tc := assert.NewContext(cfg.Target.BaseURL)
		rep := orch.Run(ctx, tc, def)
		printer.Scenario(&rep)
	}

	summary := printer.Finish()
	if !summary.AllPassed() {
		return exitFailures
	}
	return exitOK
}

func newFactory(seed uint64) *fixture.Factory {
	if seed != 0 {
		return fixture.NewSeeded(seed)
	}
	return fixture.New()
}

func newLogger(cfg config.Config) zerolog.Logger {
	level := zerolog.WarnLevel
	if cfg.Output.Verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: cfg.Output.NoColor}
	return zerolog.New(out).Level(level).With().Timestamp().Str("run", cfg.Name).Logger()
}

func applyOverrides(cfg *config.Config) {
	if baseURL != "" {
		cfg.Target.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.Target.Timeout = timeout
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if scenariosDir != "" {
		cfg.ScenariosDir = scenariosDir
	}
	if openapiPath != "" {
		cfg.OpenAPISpec = openapiPath
	}
	if prometheusAddr != "" {
		cfg.MetricsAddr = prometheusAddr
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if noColor {
		cfg.Output.NoColor = true
	}
}

// selectDefinitions resolves the requested names, or the whole registry in
// registration order when none were requested.
func selectDefinitions(registry *scenario.Registry, names []string) ([]scenario.Definition, error) {
	if len(names) == 0 {
		var defs []scenario.Definition
		for _, name := range registry.Names() {
			def, err := registry.Get(name)
			if err != nil {
				return nil, err
			}
			defs = append(defs, *def)
		}
		return defs, nil
	}

	var defs []scenario.Definition
	for _, name := range names {
		def, err := registry.Get(name)
		if err != nil {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

func crossCheck(specPath string, defs []scenario.Definition) error {
	spec, err := openapi.Load(specPath)
	if err != nil {
		return err
	}
	for _, def := range defs {
		for _, missing := range spec.MissingSteps(def) {
			fmt.Fprintf(os.Stderr, "Warning: %s: %s not in OpenAPI spec\n", def.Name, missing)
		}
	}
	return nil
}

func printVersion() {
	fmt.Printf("apicheck version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

func printConfigSummary(cfg config.Config, registry *scenario.Registry) {
	fmt.Println()
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Name:      %s\n", cfg.Name)
	fmt.Printf("  Target:    %s\n", cfg.Target.BaseURL)
	fmt.Printf("  Timeout:   %v\n", cfg.Target.Timeout)
	fmt.Printf("  Scenarios: %d\n", registry.Count())
	if cfg.RateLimit.RequestsPerSecond > 0 {
		fmt.Printf("  Rate:      %.1f req/s\n", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.ScenariosDir != "" {
		fmt.Printf("  Extra dir: %s\n", cfg.ScenariosDir)
	}
}

func printScenarioList(registry *scenario.Registry) {
	fmt.Printf("Available scenarios (%d):\n\n", registry.Count())

	// Group by first tag for readability.
	groups := make(map[string][]*scenario.Definition)
	for _, def := range registry.All() {
		category := "other"
		if len(def.Tags) > 0 {
			category = def.Tags[0]
		}
		groups[category] = append(groups[category], def)
	}

	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		defs := groups[category]
		sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
		fmt.Printf("== %s ==\n", strings.ToUpper(category))
		for _, def := range defs {
			fmt.Printf("  %-28s %2d steps  %s\n", def.Name, len(def.Steps), def.Description)
		}
		fmt.Println()
	}
}

func printOperationList(specPath string) error {
	spec, err := openapi.Load(specPath)
	if err != nil {
		return err
	}

	ops := spec.Operations()
	fmt.Printf("OpenAPI operations in %s (%d total):\n\n", specPath, len(ops))
	for _, op := range ops {
		fmt.Printf("  %-7s %-50s %s\n", op.Method, op.Path, op.Summary)
	}
	return nil
}

func printExecutionPlan(cfg config.Config, defs []scenario.Definition) {
	fmt.Println("=== Execution Plan (Dry Run) ===")
	fmt.Println()
	fmt.Printf("Target:  %s (timeout %v)\n", cfg.Target.BaseURL, cfg.Target.Timeout)
	fmt.Printf("Scenarios selected: %d\n", len(defs))
	fmt.Println()

	for _, def := range defs {
		fmt.Printf("%s (%d steps)\n", def.Name, len(def.Steps))
		for i, step := range def.Steps {
			method := step.Method
			if method == "" {
				method = "GET"
				if step.Body != nil || step.BodyFunc != nil || step.Upload != nil || step.UploadFunc != nil {
					method = "POST"
				}
			}
			expected := step.ExpectedStatus
			if expected == 0 {
				expected = 200
			}
			marks := ""
			if step.Critical {
				marks += " [critical]"
			}
			if step.Teardown != "" {
				marks += " [teardown]"
			}
			fmt.Printf("  %2d. %-7s %-50s expect %d%s\n", i+1, method, step.Path, expected, marks)
		}
		fmt.Println()
	}

	fmt.Println("Ready to execute. Remove -dry-run flag to run the checks.")
}
