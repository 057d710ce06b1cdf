package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/barvenue/tabsync/internal/cache"
	"github.com/barvenue/tabsync/internal/config"
	"github.com/barvenue/tabsync/internal/db"
	apperrors "github.com/barvenue/tabsync/internal/errors"
	"github.com/barvenue/tabsync/internal/logging"
	"github.com/barvenue/tabsync/internal/netmon"
	"github.com/barvenue/tabsync/internal/queue"
	"github.com/barvenue/tabsync/internal/remote"
	"github.com/barvenue/tabsync/internal/sync"
)

// app wires config, storage, connectivity and sync together for the CLI
// commands. Remote-dependent fields stay nil until the server URL is
// configured; queue and cache inspection still work without it.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      *db.DB
	stores  *queue.Stores
	cache   *cache.Store
	monitor *netmon.Monitor
	prober  netmon.Prober

	remote       *remote.Client
	service      *sync.Service
	orchestrator *sync.Orchestrator
	scheduler    *sync.Scheduler
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.NewConsole(cfg.LogLevel)

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		db:     database,
		stores: queue.NewStores(database, cfg.Queue.MaxPending, logging.Component(log, "queue")),
		cache:  cache.New(database, logging.Component(log, "cache")),
	}

	if target := cfg.ProbeTarget(); target != "" {
		a.prober = netmon.NewHTTPProber(target, cfg.Server.RequestTimeout.Std())
	}
	a.monitor = netmon.New(a.prober, cfg.Server.ProbeInterval.Std(), logging.Component(log, "netmon"))

	if cfg.Server.BaseURL != "" {
		client, err := remote.NewClient(remote.Config{
			BaseURL: cfg.Server.BaseURL,
			APIKey:  a.apiKey(),
			Timeout: cfg.Server.RequestTimeout.Std(),
		}, logging.Component(log, "remote"))
		if err != nil {
			database.Close()
			return nil, err
		}
		a.remote = client

		a.service = sync.NewService(a.stores, a.cache, a.monitor, client,
			cfg.Cache.TTL.Std(), logging.Component(log, "service"))
		a.orchestrator = sync.NewOrchestrator(a.stores, a.monitor, sync.RemoteAppliers(client),
			sync.Options{
				ApplyTimeout:    cfg.Sync.ApplyTimeout.Std(),
				DeferUnresolved: cfg.Sync.DeferUnresolved,
			}, logging.Component(log, "sync"))
		a.scheduler = sync.NewScheduler(a.orchestrator, a.monitor, sync.SchedulerConfig{
			StabilizationDelay: cfg.Sync.StabilizationDelay.Std(),
			SyncInterval:       cfg.Sync.SyncInterval.Std(),
		}, logging.Component(log, "scheduler"))
	}

	return a, nil
}

// requireRemote fails commands that cannot work without a server URL.
func (a *app) requireRemote() error {
	if a.remote == nil {
		return apperrors.New(apperrors.ErrRemoteNotConfigured,
			"set server.base_url in the config file or TABSYNC_SERVER_URL")
	}
	return nil
}

func (a *app) apiKey() string {
	// Taken from the environment only, so the key never sits in the config
	// file next to queue data.
	return os.Getenv("TABSYNC_API_KEY")
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}
