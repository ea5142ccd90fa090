// Building Data - sensor data importer and read API
//
// This is the main entry point for the building data service. It imports
// building sensor exports from a source directory into one canonical
// dataset, serves that dataset over HTTP and hands every successful import
// off to MQTT, InfluxDB and a snapshot file.
//
// With --once it runs a single import, writes the dataset and exits.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	_ "github.com/nerrad567/building-data/migrations"

	"github.com/nerrad567/building-data/internal/api"
	"github.com/nerrad567/building-data/internal/dataset"
	"github.com/nerrad567/building-data/internal/handoff"
	"github.com/nerrad567/building-data/internal/history"
	"github.com/nerrad567/building-data/internal/importer"
	"github.com/nerrad567/building-data/internal/infrastructure/config"
	"github.com/nerrad567/building-data/internal/infrastructure/database"
	"github.com/nerrad567/building-data/internal/infrastructure/influxdb"
	"github.com/nerrad567/building-data/internal/infrastructure/logging"
	"github.com/nerrad567/building-data/internal/infrastructure/metrics"
	"github.com/nerrad567/building-data/internal/infrastructure/mqtt"
	"github.com/nerrad567/building-data/internal/pipeline"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options are the command line flags.
type options struct {
	configPath  string
	once        bool
	outPath     string
	summaryPath string
	version     bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses the command line.
func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("buildingdata", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file (default $"+config.EnvConfigPath+")")
	fs.BoolVar(&opts.once, "once", false, "run one import, write the dataset and exit")
	fs.StringVarP(&opts.outPath, "out", "o", "-", "dataset output path for --once; compression follows the extension, - is stdout")
	fs.StringVar(&opts.summaryPath, "summary", "", "write the import run summary as JSON to this path (--once)")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.configPath == "" {
		opts.configPath = os.Getenv(config.EnvConfigPath)
	}
	return opts, nil
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments without the program name
//   - stdout: Destination for --version and for the --once dataset
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintf(stdout, "buildingdata %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	log := logging.Default()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.once {
		// stdout may carry the dataset.
		log = logging.NewWithWriter(cfg.Logging, version, os.Stderr)
		return runOnce(ctx, cfg, opts, stdout, log)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting building data service",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", opts.configPath,
	)
	return serve(ctx, cfg, log)
}

// newImporter builds the importer from the import config section.
func newImporter(cfg *config.Config, log *logging.Logger) (*importer.Importer, error) {
	policy, err := importer.PolicyByName(cfg.Import.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return importer.New(importer.Options{
		SourceDir:      cfg.Import.SourceDir,
		Extensions:     cfg.Import.Extensions,
		Format:         cfg.Import.Format,
		Workers:        cfg.Import.Workers,
		Policy:         policy,
		Clock:          importer.Clock(strings.ToLower(cfg.Import.Clock)),
		Location:       loc,
		WeatherPath:    cfg.Import.WeatherFile,
		MaxSourceBytes: cfg.GetMaxSourceBytes(),
	}, log.With("component", "importer"))
}

// runOnce imports the source directory once and writes the dataset.
func runOnce(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer, log *logging.Logger) error {
	im, err := newImporter(cfg, log)
	if err != nil {
		return fmt.Errorf("creating importer: %w", err)
	}

	store := dataset.NewStore()
	runner := pipeline.New(pipeline.Deps{Importer: im, Store: store, Logger: log})

	runRecord, importErr := runner.Run(ctx, history.OriginCLI)
	if opts.summaryPath != "" {
		if err := writeSummary(opts.summaryPath, runRecord); err != nil {
			return err
		}
	}
	if importErr != nil {
		return fmt.Errorf("importing: %w", importErr)
	}

	d, _ := store.Load()
	if opts.outPath == "" || opts.outPath == "-" {
		if err := d.Encode(stdout); err != nil {
			return fmt.Errorf("writing dataset: %w", err)
		}
		return nil
	}
	if err := handoff.WriteSnapshot(opts.outPath, d); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	log.Info("dataset written", "path", opts.outPath, "buildings", len(d))
	return nil
}

// writeSummary writes the run record as indented JSON.
func writeSummary(path string, run history.Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // summary is not sensitive
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// serve runs the long-lived service until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	im, err := newImporter(cfg, log)
	if err != nil {
		return fmt.Errorf("creating importer: %w", err)
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sinks := handoff.Sinks{SnapshotPath: cfg.Import.SnapshotPath}
	apiDeps := api.Deps{
		Config:   cfg.API,
		Logger:   log.With("component", "api"),
		Gatherer: reg,
		Metrics:  m,
		DB:       db,
		Version:  version,
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		sinks.MQTT = mqttClient
		apiDeps.MQTT = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			m.RecordHandoffFailure(handoff.SinkInfluxDB)
			log.Error("InfluxDB write error", "error", err)
		})
		sinks.InfluxDB = influxClient
		apiDeps.InfluxDB = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	store := dataset.NewStore()
	repo := history.NewRepository(db)
	runner := pipeline.New(pipeline.Deps{
		Importer:  im,
		Store:     store,
		Recorder:  repo,
		Deliverer: handoff.New(sinks, m, log.With("component", "handoff")),
		Metrics:   m,
		Logger:    log.With("component", "pipeline"),
	})

	if err := runner.WarmStart(cfg.Import.SnapshotPath); err != nil {
		log.Warn("snapshot not loaded", "path", cfg.Import.SnapshotPath, "error", err)
	}
	if cfg.Import.OnStartup {
		if _, err := runner.Run(ctx, history.OriginStartup); err != nil {
			log.Error("startup import failed, serving previous dataset", "error", err)
		}
	}

	if mqttClient != nil {
		if err := mqttClient.Subscribe(mqtt.Topics{}.ImportRequest(), byte(cfg.MQTT.QoS), runner.HandleRequest); err != nil {
			log.Warn("import requests over MQTT unavailable", "error", err)
		}
	}

	go runner.Loop(ctx, cfg.GetImportInterval())

	apiDeps.Store = store
	apiDeps.History = repo
	apiDeps.Runner = runner
	server, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"interval", cfg.GetImportInterval(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// healthCheck verifies every configured backend responds.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
