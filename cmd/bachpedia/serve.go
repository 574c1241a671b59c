package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/franz/bachpedia/internal/search"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
	"github.com/franz/bachpedia/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog web server",
	Long: `Serve the catalog over HTTP.

Routes:
  /               home page with the search form
  /search         search results with genre, key and instrument facets
  /work/{id}      work detail page (also /work?id=N and /work?bwv=BWV1007)
  /healthz        database health check
  /metrics        Prometheus metrics

Traces are exported over OTLP/HTTP when --telemetry is set; the endpoint comes
from the standard OTEL_EXPORTER_OTLP_* environment variables.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("ranker", "", "search ranker: sql or legacy (default sql)")
	serveCmd.Flags().Bool("telemetry", false, "export traces over OTLP/HTTP")
	serveCmd.Flags().Int("max-conns", 4, "database connections for concurrent readers")

	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("telemetry", serveCmd.Flags().Lookup("telemetry"))
	viper.BindPFlag("max_conns", serveCmd.Flags().Lookup("max-conns"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyRankerFlag(cmd)
	ranker, err := configuredRanker()
	if err != nil {
		return err
	}

	if viper.GetBool("telemetry") {
		shutdown, err := web.SetupTelemetry(ctx, "bachpedia")
		if err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
		defer shutdown()
	}

	db, err := openStore(&store.OpenOptions{
		MaxOpenConns: GetConfigInt("max_conns", 4),
		CacheSizeMB:  viper.GetInt("cache_size_mb"),
	})
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB(), "catalog"),
	)

	srv, err := web.New(&web.Config{
		Store:    db,
		Search:   search.New(db.DB(), search.WithRanker(ranker), search.WithMetrics(search.NewMetrics(reg))),
		Gatherer: reg,
	})
	if err != nil {
		return err
	}

	util.InfoLog("Database: %s", viper.GetString("db"))
	util.InfoLog("Ranker: %s", ranker.Name())
	return srv.ListenAndServe(ctx, GetConfigString("addr", ":8080"))
}
