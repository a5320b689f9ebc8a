package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quarrydata/quarry/internal/pipeline"
	"github.com/quarrydata/quarry/pkg/config"
	"github.com/quarrydata/quarry/pkg/json"
	"github.com/quarrydata/quarry/pkg/logger"
	"github.com/quarrydata/quarry/pkg/metrics"
	"github.com/quarrydata/quarry/pkg/observability"
	"github.com/quarrydata/quarry/pkg/registry"

	// Import built-in pipelines to register them
	_ "github.com/quarrydata/quarry/pkg/jobs"
)

var version = "0.1.0"

// runFlags carries the run command's overrides. Zero values leave the spec
// untouched.
type runFlags struct {
	specFile    string
	csvPath     string
	dbDSN       string
	logFile     string
	jsonOutput  bool
	timeout     time.Duration
	metricsAddr string
	trace       bool
	gzip        bool
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := initLogger(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "quarry",
		Short: "Quarry - HTML table extract, transform and load pipelines",
		Long: `Quarry extracts tabular datasets embedded in HTML documents, cleans and
normalizes them, derives new columns, and loads the result into a CSV file and
a relational store, followed by verification queries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quarry v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered pipelines",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available pipelines:")
			for _, spec := range registry.ListSpecs() {
				if spec.Description != "" {
					fmt.Printf("  - %s: %s\n", spec.Name, spec.Description)
				} else {
					fmt.Printf("  - %s\n", spec.Name)
				}
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the built-in pipelines to a YAML spec file",
		Long: `Write the built-in pipeline specs to a YAML file as a starting point for
custom pipelines. Edit the file and run it with 'quarry run -f <file> <name>'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "pipelines.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			f := &config.File{Pipelines: registry.ListSpecs()}
			if err := config.Save(path, f); err != nil {
				return err
			}
			fmt.Printf("Wrote %d pipeline specs to %s\n", len(f.Pipelines), path)
			return nil
		},
	})

	flags := &runFlags{}
	runCmd := &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Run a pipeline",
		Long: `Run a registered pipeline, or one declared in a YAML spec file.

Examples:
  quarry run banks
  quarry run gdp --json
  quarry run banks -f pipelines.yaml --csv /tmp/banks.csv --gzip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(args[0], flags)
		},
	}

	runCmd.Flags().StringVarP(&flags.specFile, "file", "f", "", "Path to a YAML spec file; default is the built-in registry")
	runCmd.Flags().StringVar(&flags.csvPath, "csv", "", "Override the CSV output path")
	runCmd.Flags().StringVar(&flags.dbDSN, "db", "", "Override the database DSN")
	runCmd.Flags().StringVar(&flags.logFile, "log-file", "", "Override the run log path")
	runCmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print query results as JSON")
	runCmd.Flags().DurationVar(&flags.timeout, "timeout", 5*time.Minute, "Overall run timeout; 0 disables")
	runCmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	runCmd.Flags().BoolVar(&flags.trace, "trace", false, "Emit OpenTelemetry spans to stdout")
	runCmd.Flags().BoolVar(&flags.gzip, "gzip", false, "Gzip-compress the CSV output")
	root.AddCommand(runCmd)

	err := root.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger configures the process logger from the environment.
func initLogger() error {
	return logger.Init(logger.Config{
		Level:    getEnv("LOG_LEVEL", "info"),
		Encoding: getEnv("LOG_FORMAT", "console"),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runPipeline resolves the named spec, applies flag overrides and drives one
// run to completion. Query results collected before a failure are still
// printed.
func runPipeline(name string, flags *runFlags) error {
	spec, err := resolveSpec(name, flags.specFile)
	if err != nil {
		return err
	}
	applyOverrides(spec, flags)

	log := logger.With(zap.String("component", "quarry-cli"))

	if flags.trace {
		cfg := observability.DefaultConfig()
		cfg.Enabled = true
		cfg.ServiceVersion = version
		if err := observability.Initialize(cfg); err != nil {
			return err
		}
		defer func() {
			if err := observability.Shutdown(context.Background()); err != nil {
				log.Warn("failed to shut down tracing", zap.Error(err))
			}
		}()
	}

	if flags.metricsAddr != "" {
		metrics.Serve(flags.metricsAddr)
		log.Info("metrics endpoint started",
			zap.String("addr", flags.metricsAddr))
	}

	ctx := context.Background()
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	p, err := pipeline.New(spec, pipeline.Options{Logger: log})
	if err != nil {
		return err
	}

	runErr := p.Run(ctx)

	if err := printResults(p.Results(), flags.jsonOutput); err != nil {
		log.Warn("failed to print query results", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("pipeline %s failed: %w", spec.Name, runErr)
	}
	return nil
}

// resolveSpec prefers the spec file when one is named, falling back to the
// built-in registry.
func resolveSpec(name, file string) (*config.Spec, error) {
	if file == "" {
		return registry.Get(name)
	}
	f, err := config.Load(file)
	if err != nil {
		return nil, err
	}
	return f.Find(name)
}

func applyOverrides(spec *config.Spec, flags *runFlags) {
	if flags.csvPath != "" {
		spec.Sinks.CSV.Path = flags.csvPath
	}
	if flags.dbDSN != "" {
		spec.Sinks.DB.DSN = flags.dbDSN
	}
	if flags.logFile != "" {
		spec.RunLog.Path = flags.logFile
	}
	if flags.gzip {
		spec.Sinks.CSV.Compress = true
	}
}

// printResults writes each query and its result to stdout, as an aligned
// text block or as one JSON document per query.
func printResults(results []pipeline.QueryResult, asJSON bool) error {
	for _, qr := range results {
		if asJSON {
			data, err := json.Marshal(qr)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			continue
		}
		fmt.Println(qr.SQL)
		fmt.Println(qr.Result.String())
		fmt.Println()
	}
	return nil
}
