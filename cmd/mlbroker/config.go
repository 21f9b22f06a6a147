/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"github.com/acronis/go-mlbroker/api"
	"github.com/acronis/go-mlbroker/broker"
	"github.com/acronis/go-mlbroker/config"
	"github.com/acronis/go-mlbroker/httpclient"
	"github.com/acronis/go-mlbroker/httpserver"
	"github.com/acronis/go-mlbroker/journal"
	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/profserver"
)

// AppConfig is the whole configuration of the mlbroker process.
type AppConfig struct {
	Log        *log.Config
	Server     *httpserver.Config
	HTTPClient *httpclient.Config
	Broker     *broker.Config
	API        *api.Config
	Journal    *journal.Config
	ProfServer *profserver.Config
}

// NewAppConfig creates AppConfig with the default key prefixes of every section.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:        log.NewConfig(),
		Server:     httpserver.NewConfig(),
		HTTPClient: httpclient.NewConfig(),
		Broker:     broker.NewConfig(),
		API:        api.NewConfig(),
		Journal:    journal.NewConfig(),
		ProfServer: profserver.NewConfig(),
	}
}

func loadAppConfig(loader *config.Loader, path string) (*AppConfig, error) {
	c := NewAppConfig()
	err := loader.LoadFromFile(path, "", c.Log, c.Server, c.HTTPClient, c.Broker, c.API, c.Journal, c.ProfServer)
	return c, err
}
