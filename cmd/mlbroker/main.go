/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command mlbroker runs the rate-limited request broker behind an HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-mlbroker/api"
	"github.com/acronis/go-mlbroker/broker"
	"github.com/acronis/go-mlbroker/config"
	"github.com/acronis/go-mlbroker/httpclient"
	"github.com/acronis/go-mlbroker/httpserver"
	"github.com/acronis/go-mlbroker/httpserver/middleware"
	"github.com/acronis/go-mlbroker/internal/buildinfo"
	"github.com/acronis/go-mlbroker/journal"
	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/profserver"
	"github.com/acronis/go-mlbroker/restapi"
	"github.com/acronis/go-mlbroker/service"
)

const (
	envVarsPrefix    = "MLBROKER"
	metricsNamespace = "mlbroker"

	journalOpenTimeout = 30 * time.Second
	healthCheckTimeout = 3 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the configuration file (YAML or JSON)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadAppConfig(config.NewDefaultLoader(envVarsPrefix), configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()
	logger.Info("starting mlbroker", log.String("version", buildinfo.Version()))

	buildInfoMetric := buildinfo.NewPrometheusBuildInfo(metricsNamespace)
	prometheus.MustRegister(buildInfoMetric)
	defer prometheus.Unregister(buildInfoMetric)

	var units []service.Unit
	brokerOpts := broker.Opts{MetricsNamespace: metricsNamespace}

	// The journal goes after the broker in the unit list, so it's stopped after all jobs are resolved.
	var journalUnit service.Unit
	var dbHealthCheck func(ctx context.Context) error
	if cfg.Journal.Enabled {
		pool, pj, jErr := makeJournal(cfg.Journal, logger)
		if jErr != nil {
			return jErr
		}
		defer pool.Close()
		brokerOpts.Journal = pj
		journalUnit = journal.NewUnit(pj)
		dbHealthCheck = pool.Ping
	}

	metricsCollector := httpclient.NewPrometheusMetricsCollector(metricsNamespace)
	metricsCollector.MustRegisterMetrics()
	defer metricsCollector.UnregisterMetrics()
	client := httpclient.NewWithOpts(cfg.HTTPClient, httpclient.Opts{
		UserAgent:      buildinfo.UserAgent(),
		LoggerProvider: middleware.GetLoggerFromContext,
		Collector:      metricsCollector,
	})
	brokerOpts.Sender = broker.NewHTTPSender(client, uint64(cfg.Broker.MaxResponseBodySize))

	b, err := broker.NewWithOpts(cfg.Broker, logger, brokerOpts)
	if err != nil {
		return fmt.Errorf("create broker: %w", err)
	}

	restapi.MustInitAndRegisterMetrics(metricsNamespace)
	defer restapi.UnregisterMetrics()

	apiHandler := api.NewHandler(cfg.API, b)
	srv := httpserver.New(cfg.Server, logger, httpserver.Opts{
		ServiceNameInURL: api.ServiceNameInURL,
		APIRoutes:        map[httpserver.APIVersion]httpserver.APIRoute{api.Version: apiHandler.Routes},
		ErrorDomain:      api.ErrorDomain,
		HealthCheck:      makeHealthCheck(b, dbHealthCheck),
	})

	units = append(units, srv, b)
	if journalUnit != nil {
		units = append(units, journalUnit)
	}
	units = append(units, broker.NewStatsReporterUnit(b, cfg.Broker.StatsInterval, logger))
	if cfg.ProfServer.Enabled {
		units = append(units, profserver.New(cfg.ProfServer, logger))
	}

	return service.New(logger, service.NewCompositeUnitWithOpts(
		service.CompositeUnitOpts{SequentialStop: true}, units...)).Start()
}

func makeJournal(cfg *journal.Config, logger log.FieldLogger) (*pgxpool.Pool, *journal.PostgresJournal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), journalOpenTimeout)
	defer cancel()

	pool, err := journal.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal database: %w", err)
	}
	if err = journal.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, journal.NewWithOpts(pool, cfg, logger, journal.Opts{MetricsNamespace: metricsNamespace}), nil
}

func makeHealthCheck(b *broker.Broker, pingDB func(ctx context.Context) error) httpserver.HealthCheck {
	return func(ctx context.Context) (httpserver.HealthCheckResult, error) {
		res := httpserver.HealthCheckResult{"broker": httpserver.HealthCheckStatusOK}
		if !b.IsRunning() {
			res["broker"] = httpserver.HealthCheckStatusFail
		}
		if pingDB != nil {
			pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
			defer cancel()
			res["journal"] = httpserver.HealthCheckStatusOK
			if err := pingDB(pingCtx); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				res["journal"] = httpserver.HealthCheckStatusFail
			}
		}
		return res, nil
	}
}
