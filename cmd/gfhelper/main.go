package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mohammed-shakir/geofence-helper/internal/core/config"
	"github.com/mohammed-shakir/geofence-helper/internal/core/httpclient"
	"github.com/mohammed-shakir/geofence-helper/internal/core/observability"
	"github.com/mohammed-shakir/geofence-helper/internal/core/router"
	"github.com/mohammed-shakir/geofence-helper/internal/core/server"
	"github.com/mohammed-shakir/geofence-helper/internal/exportevents"
	"github.com/mohammed-shakir/geofence-helper/internal/fencestore"
	"github.com/mohammed-shakir/geofence-helper/internal/logger"
	"github.com/mohammed-shakir/geofence-helper/internal/metrics"
	"github.com/mohammed-shakir/geofence-helper/internal/plugin"
	"github.com/mohammed-shakir/geofence-helper/internal/updatecheck"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.PluginDir, "plugin-dir", cfg.PluginDir, "directory holding version.mpl and plugin.ini")
	flag.IntVar(&cfg.InstanceID, "instance", cfg.InstanceID, "instance id whose fences are exported")
	flag.StringVar(&cfg.Fences.Source, "fence-source", cfg.Fences.Source, "fence store backend: sql|redis|file")
	flag.Parse()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Instance:  strconv.Itoa(cfg.InstanceID),
		Component: "gfhelper",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	meta, err := plugin.LoadMetadata(cfg.PluginDir)
	if err != nil {
		appLog.Error("read plugin metadata", "err", err)
		return 1
	}
	settings, err := plugin.LoadSettings(cfg.PluginDir)
	if err != nil {
		appLog.Error("read plugin settings", "err", err)
		return 1
	}
	if !settings.Active {
		appLog.Info("plugin inactive, not serving", "plugin", meta.Name, "dir", cfg.PluginDir)
		return 0
	}

	var prov *metrics.Provider
	if cfg.Metrics {
		prov = metrics.Init(metrics.Config{
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
			Plugin: metrics.PluginInfo{Name: meta.Name, Version: meta.Version, Author: meta.Author},
		})
		observability.Init(prov.Registerer(), true)
		observability.ExposeBuildInfo(Version)
	} else {
		observability.Init(nil, false)
	}

	appLog.Info("starting gfhelper",
		"addr", cfg.Addr,
		"version", Version,
		"plugin_version", meta.Version,
		"fence_source", cfg.Fences.Source,
		"instance", cfg.InstanceID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := fencestore.Open(ctx, cfg.Fences, appLog)
	if err != nil {
		appLog.Error("open fence store", "err", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLog.Warn("close fence store", "err", err)
		}
	}()

	var events exportevents.Publisher = exportevents.Nop{}
	if cfg.ExportEvents.Enabled {
		k, err := exportevents.NewKafka(cfg.ExportEvents.BrokerList(), cfg.ExportEvents.Topic, cfg.ExportEvents.QueueSize, appLog)
		if err != nil {
			appLog.Error("export events disabled", "err", err)
		} else {
			events = k
		}
	}
	defer func() {
		if err := events.Close(); err != nil {
			appLog.Warn("close export events", "err", err)
		}
	}()

	if cfg.UpdateCheck.Enabled {
		checker := updatecheck.New(httpclient.NewOutbound(cfg.UpdateCheck.Timeout), appLog, meta,
			updatecheck.WithInterval(cfg.UpdateCheck.Interval),
			updatecheck.WithTimeout(cfg.UpdateCheck.Timeout))
		go checker.Run(ctx)
	}

	opts := server.Options{
		Deps: router.Deps{
			Fences:     store,
			InstanceID: cfg.InstanceID,
			Events:     events,
			Plugin:     meta,
		},
		Ready: store,
	}
	if prov != nil {
		opts.Metrics = prov.Handler()
	}

	if err := server.Run(ctx, cfg, appLog, opts); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
