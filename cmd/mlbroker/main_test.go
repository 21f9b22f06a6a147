/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-mlbroker/api"
	"github.com/acronis/go-mlbroker/broker"
	"github.com/acronis/go-mlbroker/config"
	"github.com/acronis/go-mlbroker/httpserver"
	"github.com/acronis/go-mlbroker/log"
)

func TestLoadAppConfig(t *testing.T) {
	cfg, err := loadAppConfig(config.NewLoader(config.NewViperAdapter()), "config.yml")
	require.NoError(t, err)

	require.Equal(t, 20, cfg.Broker.RateLimit)
	require.Equal(t, time.Second, cfg.Broker.PollBackoff)
	require.Equal(t, config.ByteSize(10*1024*1024), cfg.Broker.MaxResponseBodySize)
	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, map[string]api.Destination{
		"predict": {URL: "http://localhost:9000/predict"},
		"embed":   {URL: "http://localhost:9000/embed", Timeout: 30 * time.Second},
	}, cfg.API.Destinations)
	require.False(t, cfg.Journal.Enabled)
	require.False(t, cfg.ProfServer.Enabled)
	require.Equal(t, log.LevelInfo, cfg.Log.Level)
}

func TestHealthCheck(t *testing.T) {
	b, err := broker.New(&broker.Config{RateLimit: 1, PollBackoff: time.Millisecond}, log.NewDisabledLogger())
	require.NoError(t, err)

	t.Run("broker is not running", func(t *testing.T) {
		res, hcErr := makeHealthCheck(b, nil)(context.Background())
		require.NoError(t, hcErr)
		require.Equal(t, httpserver.HealthCheckResult{"broker": httpserver.HealthCheckStatusFail}, res)
	})

	t.Run("journal database is unavailable", func(t *testing.T) {
		fatalErr := make(chan error, 1)
		go b.Start(fatalErr)
		defer func() { require.NoError(t, b.Stop(false)) }()
		require.Eventually(t, b.IsRunning, time.Second, time.Millisecond*10)

		pingDB := func(ctx context.Context) error { return errors.New("connection refused") }
		res, hcErr := makeHealthCheck(b, pingDB)(context.Background())
		require.NoError(t, hcErr)
		require.Equal(t, httpserver.HealthCheckResult{
			"broker":  httpserver.HealthCheckStatusOK,
			"journal": httpserver.HealthCheckStatusFail,
		}, res)
	})
}
