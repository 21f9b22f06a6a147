/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package buildinfo reports the version of the mlbroker module the binary was built from.
package buildinfo

import (
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/acronis/go-mlbroker"

// DevelVersion is reported when the version can't be determined (e.g. "go run" from a working copy).
const DevelVersion = "v0.0.0-devel"

var (
	version     string
	versionOnce sync.Once
)

// Version returns the module version (e.g. "v1.2.3").
func Version() string {
	versionOnce.Do(func() {
		if bi, ok := debug.ReadBuildInfo(); ok {
			version = extractVersion(bi, moduleName)
		}
		if version == "" {
			version = DevelVersion
		}
	})
	return version
}

// UserAgent returns the User-Agent value for downstream requests, e.g. "mlbroker/v1.2.3".
func UserAgent() string {
	return "mlbroker/" + Version()
}

// NewPrometheusBuildInfo creates a gauge which is always 1 and carries the version in its label.
func NewPrometheusBuildInfo(namespace string) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "A metric with a constant '1' value labeled by the version mlbroker was built from.",
		ConstLabels: prometheus.Labels{"version": Version()},
	}, func() float64 { return 1 })
}

// extractVersion looks for the module both as the main one and as a dependency ("moduleName" or "moduleName/vN").
func extractVersion(bi *debug.BuildInfo, modName string) string {
	if bi == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if re.MatchString(bi.Main.Path) && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
