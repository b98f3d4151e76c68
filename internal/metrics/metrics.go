// Package metrics owns the Prometheus registry served on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BuildInfo struct {
	Version   string
	Revision  string
	BuildDate string
}

// PluginInfo mirrors the plugin's version.mpl.
type PluginInfo struct {
	Name    string
	Version string
	Author  string
}

type Config struct {
	Build  BuildInfo
	Plugin PluginInfo
}

type Provider struct {
	reg *prometheus.Registry
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision", "build_date"},
	)
	plugin := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gfhelper_plugin_info",
			Help: "Metadata read from version.mpl (value is always 1).",
		},
		[]string{"name", "version", "author"},
	)
	reg.MustRegister(build, plugin)

	b := cfg.Build
	if b.Version == "" {
		b.Version = "dev"
	}
	build.WithLabelValues(b.Version, b.Revision, b.BuildDate).Set(1)
	plugin.WithLabelValues(cfg.Plugin.Name, cfg.Plugin.Version, cfg.Plugin.Author).Set(1)

	return &Provider{reg: reg}
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
