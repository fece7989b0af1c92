/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo reports which roadkit version is linked into the running binary.
package libinfo

import (
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ModulePath is the module path of roadkit.
const ModulePath = "github.com/roadnet/roadkit"

// PrometheusLibVersionLabel is the const label that carries the roadkit version on every roadkit metric.
const PrometheusLibVersionLabel = "roadkit_version"

const unknownVersion = "v0.0.0"

var (
	version     string
	versionOnce sync.Once
)

// Version returns the roadkit version from the build info, or v0.0.0 when it cannot be determined.
func Version() string {
	versionOnce.Do(func() {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			version = extractVersion(buildInfo, ModulePath)
		}
		if version == "" || version == "(devel)" {
			version = unknownVersion
		}
	})
	return version
}

// UserAgent returns the product token used by roadkit HTTP clients.
func UserAgent() string {
	return "roadkit/" + Version()
}

// AddPrometheusLibVersionLabel returns a copy of labels with the roadkit version label added.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	labelsCopy := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		labelsCopy[k] = v
	}
	labelsCopy[PrometheusLibVersionLabel] = Version()
	return labelsCopy
}

// extractVersion looks for modPath or modPath/vN among the dependencies and the main module.
func extractVersion(buildInfo *debug.BuildInfo, modPath string) string {
	if buildInfo == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modPath) + `(/v[0-9]+)?$`)
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			if dep.Replace != nil && dep.Replace.Version != "" {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	if re.MatchString(buildInfo.Main.Path) {
		return buildInfo.Main.Version
	}
	return ""
}
