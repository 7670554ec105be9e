package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/config"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/db"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/field"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/fsutil"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/generator"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/monitoring"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/replay"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/sim"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/timeutil"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/units"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/version"
)

// loadConfig reads path, or returns the built-in defaults when path is empty.
func loadConfig(path string) (*config.SimConfig, error) {
	if path == "" {
		return config.DefaultSimConfig(), nil
	}
	return config.LoadSimConfig(path)
}

// flagPassed reports whether name was set on the command line.
func flagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// runReplay stamps the run with clock, which also times the runner.
func runReplay(ctx context.Context, fsys fsutil.FileSystem, clock timeutil.Clock, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stdout)
	tracePath := fs.String("trace", "", "Transport trace to replay (JSON lines, required)")
	configPath := fs.String("config", "", "Simulation config file (defaults built in)")
	dbPath := fs.String("db", "", "Hit database path (overrides db_path from the config)")
	noDB := fs.Bool("no-db", false, "Do not store hits")
	workers := fs.Int("workers", 0, "Number of workers (overrides the config)")
	index := fs.Bool("index", false, "Use the track index for attribution")
	printHits := fs.Bool("print", false, "Print the hits of every event")
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tracePath == "" {
		fs.Usage()
		return errors.New("-trace is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	geo, err := geometry.Default()
	if err != nil {
		return err
	}

	trace, err := fsys.Open(*tracePath)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer trace.Close()

	reg := prometheus.NewRegistry()
	metrics := sim.NewMetrics(reg)
	if *metricsAddr != "" {
		stopMetrics, err := serveMetrics(*metricsAddr, reg)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	var (
		sink     sim.Sink
		database *db.DB
	)
	path := cfg.GetDBPath()
	if *dbPath != "" {
		path = *dbPath
	}
	if !*noDB && path != "" {
		database, err = db.NewDB(path)
		if err != nil {
			return fmt.Errorf("failed to open hit database: %w", err)
		}
		defer database.Close()
		sink = database
	}

	n := cfg.GetWorkers()
	if *workers > 0 {
		n = *workers
	}
	rc := sim.RunnerConfig{
		Workers:       n,
		Indexed:       cfg.GetAttributionIndex() || *index,
		PoolCapacity:  cfg.GetPoolCapacity(),
		PrintProgress: cfg.GetPrintProgress(),
		Field:         field.Solenoid{Bz: cfg.GetFieldTesla() * units.Tesla},
		Metrics:       metrics,
		Clock:         clock,
	}
	if *printHits {
		rc.Print = stdout
	}
	runner := sim.NewRunner(geo, sink, rc)

	runID := uuid.NewString()
	if database != nil {
		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		if err := database.InsertRun(ctx, db.Run{
			ID:         runID,
			Version:    version.String(),
			ConfigJSON: string(cfgJSON),
			StartedAt:  clock.Now(),
		}); err != nil {
			return err
		}
	}

	monitoring.Logf("run %s: replaying %s with %d workers", runID, *tracePath, n)
	summary, runErr := runner.RunWithID(ctx, runID, replay.NewDecoder(trace, geo))

	if database != nil {
		if err := database.FinishRun(context.WithoutCancel(ctx), db.Run{
			ID:         runID,
			StartedAt:  summary.StartedAt,
			FinishedAt: summary.FinishedAt,
			Events:     summary.Events,
			Completed:  summary.Completed,
			Aborted:    summary.Aborted,
			Records:    summary.Records,
		}); err != nil {
			return errors.Join(runErr, err)
		}
	}

	fmt.Fprintf(stdout, "run %s: %d events, %d completed, %d aborted, %d hit records in %s\n",
		summary.RunID, summary.Events, summary.Completed, summary.Aborted, summary.Records,
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	return runErr
}

// serveMetrics exposes reg over HTTP until the returned stop func is called.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Warnf("metrics server: %v", err)
		}
	}()
	monitoring.Logf("serving metrics on http://%s/metrics", ln.Addr())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}

func runGenerate(fsys fsutil.FileSystem, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", "", "Simulation config file (defaults built in)")
	events := fs.Int("n", 0, "Number of events (overrides the config)")
	mode := fs.String("mode", "", "Generator mode: shot or phase_space (overrides the config)")
	seed := fs.Int64("seed", 0, "Random seed (overrides the config)")
	out := fs.String("o", "-", "Output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	n := cfg.GetEvents()
	if flagPassed(fs, "n") {
		if *events < 0 {
			return fmt.Errorf("-n must not be negative, got %d", *events)
		}
		n = *events
	}
	s := cfg.GetSeed()
	if flagPassed(fs, "seed") {
		s = *seed
	}
	m := cfg.GetGeneratorMode()
	if flagPassed(fs, "mode") {
		m = *mode
	}

	gen, err := newGenerator(cfg, m, rand.NewPCG(uint64(s), uint64(s)^0x9e3779b97f4a7c15))
	if err != nil {
		return err
	}

	var w io.Writer = stdout
	if *out != "-" {
		f, err := fsys.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	for id := 0; id < n; id++ {
		primaries, err := gen.Generate()
		if err != nil {
			return fmt.Errorf("event %d: %w", id, err)
		}
		if err := generator.WriteEvent(bw, id, primaries); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if *out != "-" {
		monitoring.Logf("wrote %d %s events to %s", n, m, *out)
	}
	return nil
}

func newGenerator(cfg *config.SimConfig, mode string, src rand.Source) (generator.Generator, error) {
	switch mode {
	case config.ModeShot:
		return generator.NewShot(cfg.GetShotParticles(), cfg.GetShotMaxMomentumMeV()*units.MeV, src)
	case config.ModePhaseSpace:
		ps, err := generator.NewPhaseSpace(generator.PhaseSpaceConfig{
			Beam:             cfg.GetBeamParticle(),
			BeamMomentum:     cfg.GetBeamMomentumMeV() * units.MeV,
			Target:           cfg.GetTargetParticle(),
			Products:         cfg.GetDecayProducts(),
			MaxWeightSamples: cfg.GetMaxWeightSamples(),
		}, src)
		if err != nil {
			return nil, err
		}
		monitoring.Logf("phase space: invariant mass %s, max weight %g",
			units.BestEnergy(ps.InvariantMass()), ps.MaxWeight())
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown generator mode %q", mode)
	}
}

func runMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stdout)
	dbPath := fs.String("db", config.DefaultSimConfig().GetDBPath(), "Hit database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(stdout, fs.Args(), *dbPath)
}
