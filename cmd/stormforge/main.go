// Command stormforge runs a single-node load test: one scenario (a
// configurable GET loop) driven against a target URL, with results
// exported to stdout-adjacent files and the admin API exposed for
// scheduling further runs.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stormforge/stormforge/action"
	"github.com/stormforge/stormforge/cluster"
	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/export"
	"github.com/stormforge/stormforge/master"
	"github.com/stormforge/stormforge/scenario"
	"github.com/stormforge/stormforge/session"
	"github.com/stormforge/stormforge/telemetry"
)

func main() {
	var (
		targetURL = flag.String("target", "http://localhost:8080/", "base_url for the smoke scenario")
		users     = flag.Int("users", 1, "number of scenario copies to run")
		durationS = flag.Int("duration", 10, "how long the smoke scenario loops, in seconds")
		addr      = flag.String("admin-addr", ":9090", "admin API listen address")
		otlpAddr  = flag.String("otlp-endpoint", "", "OTLP/HTTP collector endpoint; telemetry disabled if empty")
	)
	flag.Parse()

	logger := telemetry.NewLogger("stormforge", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *otlpAddr != "" {
		provider, err := telemetry.NewProvider(ctx, "stormforge", *otlpAddr)
		if err != nil {
			logger.Warn("telemetry disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer provider.Shutdown(context.Background())
		}
	}

	runner := &master.Runner{
		Registry: cluster.NewMemoryRegistry(),
		Self:     cluster.Node{ID: "local", Address: *addr},
		Logger:   logger,
	}
	m := master.New(runner, logger)

	admin := &master.AdminServer{
		Master:   m,
		Resolver: staticResolver{scenario: smokeScenario{targetURL: *targetURL}, users: *users, duration: *durationS},
		Realm:    "stormforge",
		Username: os.Getenv("ADMIN_USER"),
		Password: os.Getenv("ADMIN_PASSWORD"),
		Logger:   logger,
	}

	srv := &http.Server{Addr: *addr, Handler: admin.Handler()}
	go func() {
		logger.Info("admin API listening", map[string]interface{}{"addr": *addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("admin server: %v", err)
		}
	}()

	lt := master.LoadTest{
		Name: "smoke",
		Scenarios: []master.ScenarioEntry{
			{Scenario: smokeScenario{targetURL: *targetURL}, Count: *users, Timeout: time.Duration(*durationS+5) * time.Second},
		},
		DefaultConfig: core.Config{"duration_s": *durationS},
	}

	results, err := runner.Run(ctx, lt)
	if err != nil {
		logger.Error("load test failed", map[string]interface{}{"error": err.Error()})
	} else {
		logger.Info("load test complete", map[string]interface{}{
			"metric_keys": len(results.Merged.Metrics) + len(results.Merged.Snapshots), "duration_ms": results.DurationMS,
		})
		if err := writeResults(ctx, results); err != nil {
			logger.Error("export failed", map[string]interface{}{"error": err.Error()})
		}
	}

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func writeResults(ctx context.Context, results *master.Results) error {
	records, err := (export.DefaultEncoder{}).Encode(results.Merged, export.Options{})
	if err != nil {
		return err
	}
	data, err := export.EncodeCSV(records)
	if err != nil {
		return err
	}
	return (&export.FileWriter{}).Write(ctx, results.LoadTest, export.Options{Path: "stormforge-results.csv"}, data)
}

// smokeScenario issues a bounded GET loop against targetURL, standing in
// for whatever scenario a real deployment resolves by name.
type smokeScenario struct {
	scenario.NoInit
	targetURL string
}

func (s smokeScenario) Name() string { return "Smoke.get_loop" }

func (s smokeScenario) Run(ctx context.Context, sess *session.Session) (*session.Session, error) {
	durationS, _ := core.Lookup(sess.Config, "duration_s", "", false)
	ms, ok := durationS.(int)
	if !ok || ms <= 0 {
		ms = 10
	}

	get := action.NewHTTPAction(action.GET, s.targetURL)
	loop := &action.Loop{
		DurationMS: int64(ms) * 1000,
		Inner:      actionAdapter{get},
	}
	return loop.Run(ctx, sess)
}

// actionAdapter lets action.Loop (which wants an action.Action) drive an
// *action.HTTPAction via action.RunAction's error-recording semantics.
type actionAdapter struct{ inner action.Action }

func (a actionAdapter) Name() string { return a.inner.Name() }
func (a actionAdapter) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	return action.RunAction(ctx, s, a.inner, nil), nil
}

// staticResolver resolves every load test name to the same smoke scenario,
// standing in for a real scenario registry.
type staticResolver struct {
	scenario scenario.Scenario
	users    int
	duration int
}

func (r staticResolver) Resolve(name string, options core.Config) (master.LoadTest, error) {
	return master.LoadTest{
		Name:          name,
		DefaultConfig: core.DeepMerge(core.Config{"duration_s": r.duration}, options),
		Scenarios: []master.ScenarioEntry{
			{Scenario: r.scenario, Count: r.users, Timeout: time.Duration(r.duration+5) * time.Second},
		},
	}, nil
}
