/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Loader reads configuration data into a DataProvider and fills Config objects from it.
// Defaults of all objects are set before any of them is filled.
type Loader struct {
	DataProvider DataProvider
}

// NewDefaultLoader creates a Loader over ViperAdapter with values overridable by
// environment variables with the given prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// NewLoader creates a new Loader.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// LoadFromFile reads the file and fills cfgs. An empty dataType is detected by the file extension.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfgs ...Config) error {
	if dataType == "" {
		dt, err := DataTypeFromPath(path)
		if err != nil {
			return err
		}
		dataType = dt
	}
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	return l.fill(cfgs)
}

// LoadFromReader reads data of the given type and fills cfgs.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return err
	}
	return l.fill(cfgs)
}

func (l *Loader) fill(cfgs []Config) error {
	providers := make([]DataProvider, len(cfgs))
	for i, cfg := range cfgs {
		providers[i] = dataProviderFor(l.DataProvider, cfg)
		cfg.SetProviderDefaults(providers[i])
	}
	for i, cfg := range cfgs {
		if err := cfg.Set(providers[i]); err != nil {
			return err
		}
	}
	return nil
}

var dataTypesByExt = map[string]DataType{
	".yml":  DataTypeYAML,
	".yaml": DataTypeYAML,
	".json": DataTypeJSON,
}

// DataTypeFromPath detects the data type by the file extension.
func DataTypeFromPath(path string) (DataType, error) {
	ext := filepath.Ext(path)
	if dt, ok := dataTypesByExt[strings.ToLower(ext)]; ok {
		return dt, nil
	}
	return "", fmt.Errorf("unsupported config file extension %q, should be one of [.yml, .yaml, .json]", ext)
}
