package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"CFPurge/callback"
	"CFPurge/cfclient"
	"CFPurge/config"
	"CFPurge/internal/app"
	"CFPurge/internal/logger"
	"CFPurge/metrics"
	"CFPurge/notify"
	"CFPurge/purge"
	"CFPurge/site"
	"CFPurge/telegram"
	"CFPurge/zone"
)

func main() {
	path := os.Getenv("CFPURGE_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("Exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	serverName, err := cfg.ServerName()
	if err != nil {
		return err
	}
	lg.Info("Starting cfpurge",
		zap.String("profile", string(cfg.Profile)),
		zap.String("server_name", serverName),
		zap.String("cache_backend", cfg.Cache.Backend))

	var recorder metrics.Recorder = metrics.Noop{}
	var collector *metrics.MetricsCollector
	if cfg.Metrics.Enabled {
		collector = metrics.NewMetricsCollector("cfpurge", lg)
		recorder = collector
	}
	metricsServer, err := metrics.StartServer(cfg.Metrics.Enabled, cfg.Metrics.Listen, cfg.Metrics.Path, collector, lg)
	if err != nil {
		return err
	}

	var sender telegram.Sender = telegram.NoopSender{}
	if cfg.Telegram.BotToken != "" {
		botSender, err := telegram.NewBotSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID, 2, time.Second, 10*time.Second, lg)
		if err != nil {
			lg.Warn("Telegram unavailable, using no-op sender", zap.Error(err))
		} else {
			sender = botSender
		}
	}
	sink := notify.Multi{notify.LogSink{Logger: lg}, telegram.Sink{Sender: sender}}

	credentials := config.CredentialSource{Profile: cfg.Profile}
	transport, err := cfclient.NewTransport(cfclient.TransportConfig{
		Timeout:            cfg.Cloudflare.Timeout.ToDuration(),
		UserAgent:          cfg.Cloudflare.UserAgent,
		InsecureSkipVerify: cfg.Cloudflare.InsecureSkipVerify,
	}, cfclient.CredentialHeaders{Source: credentials}, lg)
	if err != nil {
		return err
	}
	client := cfclient.NewClient(cfg.Cloudflare.BaseURL, transport)

	cache, closeCache, err := newZoneCache(cfg, lg)
	if err != nil {
		return err
	}
	defer closeCache()

	names := site.StaticServerName(serverName)
	resolver, err := zone.NewResolver(zone.ResolverConfig{
		Client:       client,
		Cache:        cache,
		CacheEnabled: cfg.Cloudflare.CacheEnabled,
		ServerName:   names,
		Sink:         sink,
		Metrics:      recorder,
		Logger:       lg,
	})
	if err != nil {
		return err
	}

	expanderCfg := purge.ExpanderConfig{
		ServerName:   names,
		DocumentRoot: cfg.Site.DocumentRoot,
		Variants:     cfg.Purge.Variants,
	}
	if cfg.Site.PagesFile != "" {
		expanderCfg.Pages = site.NewFilePageRepository(cfg.Site.PagesFile)
	}
	if cfg.Site.DocumentRoot != "" {
		lister, err := site.NewFSLister(cfg.Site.DocumentRoot, cfg.Site.Exclude, lg)
		if err != nil {
			return err
		}
		expanderCfg.Files = lister
	}
	expander, err := purge.NewExpander(expanderCfg)
	if err != nil {
		return err
	}

	purger, err := purge.NewPurger(purge.PurgerConfig{
		Client:      client,
		Zones:       resolver,
		Expander:    expander,
		Sink:        sink,
		Metrics:     recorder,
		Logger:      lg,
		BatchSize:   cfg.Purge.BatchSize,
		Concurrency: cfg.Purge.Concurrency,
	})
	if err != nil {
		return err
	}

	commands := telegram.NewCommandHandler(purger, resolver, sender, cfg.Telegram.ChatID, lg)
	callbacks := callback.NewHandler(purger, sender, cfg.Telegram.ChatID, lg)

	application := &app.App{
		Sender:         sender,
		Checker:        &app.ReadinessChecker{Credentials: credentials, Zones: resolver, Logger: lg},
		Notifier:       &app.NotifierService{Sender: sender},
		HandleMessage:  commands.HandleMessage,
		HandleCallback: callbacks.HandleCallback,
		MetricsServer:  metricsServer,
		Logger:         lg,
	}
	return application.Run(ctx)
}

func newZoneCache(cfg *config.Config, lg *zap.Logger) (zone.Cache, func(), error) {
	ttl := cfg.Cache.TTL.ToDuration()
	if cfg.Cache.Backend == config.CacheBackendRedis {
		cache, err := zone.NewRedisCache(cfg.Cache.Redis, ttl, lg)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { _ = cache.Close() }, nil
	}
	return zone.NewMemoryCache(ttl), func() {}, nil
}
