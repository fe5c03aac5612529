// Package app assembles the bridge: config, logging, webhooks, pipeline,
// broker subscription, archive, status digest.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"meshbridge/internal/archive"
	"meshbridge/internal/bridge"
	"meshbridge/internal/config"
	"meshbridge/internal/discord"
	"meshbridge/internal/mesh"
	"meshbridge/internal/transport/mqtt"
	logx "meshbridge/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	primary   *discord.Client
	telemetry *discord.Client

	names    *mesh.Names
	service  *bridge.Service
	reporter *bridge.Reporter
	store    archive.Store
	broker   *mqtt.Client

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}

	mu      sync.Mutex
	lastCfg *config.Config
}

// New loads the config and wires every component. Nothing is connected yet;
// Start does that.
func New(cfgPath string) (*App, error) {
	a := &App{stopped: make(chan struct{})}

	a.cfgMgr = config.NewManager(cfgPath)
	cfg, err := a.cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	timeout, _ := config.ParseDurationOrDefault("discord.timeout", cfg.Discord.Timeout, 10*time.Second)
	a.primary = discord.NewClient(discord.Config{
		URL:        cfg.Discord.WebhookURL,
		RatePerSec: cfg.Discord.RatePerSec,
		RetryMax:   cfg.Discord.RetryMax,
		Timeout:    timeout,
	}, logx.Nop())
	a.telemetry = discord.NewClient(discord.Config{
		URL:        cfg.Discord.TelemetryWebhookURL,
		RatePerSec: cfg.Discord.RatePerSec,
		RetryMax:   cfg.Discord.RetryMax,
		Timeout:    timeout,
	}, logx.Nop())

	// The primary webhook doubles as the log sink target.
	a.logSvc, a.log = logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Discord: logx.DiscordConfig{
			Enabled:    cfg.Logging.Discord.Enabled,
			MinLevel:   cfg.Logging.Discord.MinLevel,
			RatePerSec: cfg.Logging.Discord.RatePerSec,
		},
	}, a.primary)
	a.cfgMgr.SetLogger(a.log.With(logx.String("comp", "config")))

	busy, _ := config.ParseDurationOrDefault("archive.busy_timeout", cfg.Archive.BusyTimeout, 5*time.Second)
	a.store, err = archive.Open(archive.Config{
		Driver:      cfg.Archive.Driver,
		Path:        cfg.Archive.Path,
		BusyTimeout: busy,
	}, a.log.With(logx.String("comp", "archive")))
	if err != nil {
		a.logSvc.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a.names = mesh.NewNames()
	norm := mesh.NewNormalizer(a.names, a.log.With(logx.String("comp", "mesh")))
	seen := mesh.NewSeenIDs(cfg.Bridge.SeenCacheSize)
	router := bridge.NewRouter(a.telemetry.Configured, a.log.With(logx.String("comp", "router")))
	a.service = bridge.NewService(norm, seen, router, a.primary, a.telemetry, a.store,
		a.log.With(logx.String("comp", "bridge")))

	a.reporter = bridge.NewReporter(a.service, a.names, a.primary,
		a.log.With(logx.String("comp", "report")))

	a.broker = mqtt.NewClient(mqtt.Config{
		Broker:   cfg.MQTT.Broker,
		Port:     cfg.MQTT.Port,
		Topic:    cfg.MQTT.Topic,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	}, a.handleMessage, a.log.With(logx.String("comp", "mqtt")))

	a.lastCfg = cfg
	return a, nil
}

func (a *App) handleMessage(topic string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	a.service.Handle(ctx, topic, payload)
}

// Start connects the broker, schedules the digest, and begins watching the
// config file for live reloads.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgMgr.Get()

	if err := a.reporter.Apply(bridge.ReportConfig{
		Schedule: cfg.Report.Schedule,
		Timezone: cfg.Report.Timezone,
	}); err != nil {
		return err
	}

	if err := a.broker.Start(ctx); err != nil {
		a.reporter.Stop()
		return err
	}

	a.cfgMgr.SetValidator(func(_ context.Context, c *config.Config) error {
		return c.Validate()
	})

	a.wg.Add(2)
	go a.watchConfig(ctx)
	go a.reloadLoop(ctx)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("bridge started",
		logx.String("broker", cfg.MQTT.Broker),
		logx.String("topic", cfg.MQTT.Topic),
		logx.Bool("telemetry_webhook", a.telemetry.Configured()),
	)
	return nil
}

func (a *App) watchConfig(ctx context.Context) {
	defer a.wg.Done()
	if err := a.cfgMgr.Watch(ctx); err != nil && ctx.Err() == nil {
		a.log.Warn("config watch stopped", logx.Err(err))
	}
}

// reloadLoop applies the tunable parts of a reloaded config. Broker and
// archive settings need a restart; the loop only logs when those change.
func (a *App) reloadLoop(ctx context.Context) {
	defer a.wg.Done()

	sub := a.cfgMgr.Subscribe(4)
	defer a.cfgMgr.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopped:
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.applyReload(cfg)
		}
	}
}

func (a *App) applyReload(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Discord: logx.DiscordConfig{
			Enabled:    cfg.Logging.Discord.Enabled,
			MinLevel:   cfg.Logging.Discord.MinLevel,
			RatePerSec: cfg.Logging.Discord.RatePerSec,
		},
	})

	timeout, _ := config.ParseDurationOrDefault("discord.timeout", cfg.Discord.Timeout, 10*time.Second)
	a.primary.Apply(discord.Config{
		URL:        cfg.Discord.WebhookURL,
		RatePerSec: cfg.Discord.RatePerSec,
		RetryMax:   cfg.Discord.RetryMax,
		Timeout:    timeout,
	})
	a.telemetry.Apply(discord.Config{
		URL:        cfg.Discord.TelemetryWebhookURL,
		RatePerSec: cfg.Discord.RatePerSec,
		RetryMax:   cfg.Discord.RetryMax,
		Timeout:    timeout,
	})

	if err := a.reporter.Apply(bridge.ReportConfig{
		Schedule: cfg.Report.Schedule,
		Timezone: cfg.Report.Timezone,
	}); err != nil {
		a.log.Warn("status digest reschedule failed", logx.Err(err))
	}

	a.mu.Lock()
	old := a.lastCfg
	a.lastCfg = cfg
	a.mu.Unlock()

	if old != nil {
		if old.MQTT != cfg.MQTT {
			a.log.Warn("mqtt settings changed; restart required to apply")
		}
		if old.Archive != cfg.Archive {
			a.log.Warn("archive settings changed; restart required to apply")
		}
	}

	a.log.Info("configuration reloaded",
		logx.String("level", cfg.Logging.Level),
		logx.Bool("telemetry_webhook", a.telemetry.Configured()),
	)
}

// Stop shuts everything down in reverse start order.
func (a *App) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		close(a.stopped)

		a.broker.Stop()
		a.reporter.Stop()
		a.wg.Wait()

		if a.store != nil {
			if err := a.store.Close(); err != nil {
				a.log.Warn("archive close failed", logx.Err(err))
			}
		}
		a.log.Info("bridge stopped")
		_ = a.logSvc.Close()
	})
	return nil
}
