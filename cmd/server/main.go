package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"InvestLogic/internal/admin"
	"InvestLogic/internal/auth"
	"InvestLogic/internal/cache"
	"InvestLogic/internal/collector"
	"InvestLogic/internal/config"
	"InvestLogic/internal/handler"
	"InvestLogic/internal/logger"
	"InvestLogic/internal/notifier"
	"InvestLogic/internal/scheduler"
	"InvestLogic/internal/store"
	"InvestLogic/internal/strategy"
	"InvestLogic/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("InvestLogic starting", zap.String("addr", cfg.Server.Addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	var st store.Store
	if cfg.Database.Driver == "memory" {
		st = store.NewMemoryStore()
		log.Warn("using in-memory store; data is lost on restart")
	} else {
		sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Fatal("init sqlite store", zap.Error(err))
		}
		st = sq
	}
	defer st.Close()

	// Quote cache
	var quoteCache cache.Store = cache.NewMemoryStore()
	var cachePinger handler.Pinger
	if cfg.Cache.Backend == "redis" {
		rs := cache.NewRedisStore(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}, cfg.Cache.Redis.Prefix)
		if err := rs.Ping(ctx); err != nil {
			log.Warn("redis ping failed, continuing", zap.Error(err))
		}
		defer rs.Close()
		quoteCache = rs
		cachePinger = rs
	}

	// Market data
	quotes, series := buildFetchers(cfg)
	log.Info("market data sources", zap.String("quotes", quotes.Name()), zap.String("series", series.Name()))
	col := collector.New(quotes, series, quoteCache, collector.Options{
		MainSymbol:   cfg.DataSource.MainSymbol,
		SeriesSymbol: cfg.DataSource.SeriesSymbol,
		QuoteTTL:     cfg.Cache.QuoteTTL,
		SeriesTTL:    cfg.Cache.SeriesTTL,
	}, log)

	// Strategy templates
	registry, err := strategy.NewRegistry(cfg.Strategy.Templates)
	if err != nil {
		log.Fatal("invalid strategy templates", zap.Error(err))
	}
	for _, status := range registry.Statuses() {
		if sum, ok := strategy.RatioSum(registry.Lookup(status)); !ok {
			log.Warn("strategy ratios do not sum to 100", zap.String("status", status), zap.Float64("sum", sum))
		}
	}

	// Services
	tr := tracker.NewService(st, registry, tracker.Defaults{
		TotalCapital: cfg.Defaults.TotalCapital,
		Allocations:  cfg.DefaultAllocations(),
	}, log)
	authSvc := auth.NewService(st, auth.JWT{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
		Issuer:   cfg.Auth.Issuer,
	}, cfg.Auth.BootstrapAdmin, log)
	adminSvc := admin.NewService(st, registry, log)

	// Notifications and cron
	var n notifier.Notifier = notifier.LogNotifier{Log: log}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = tn
	}
	sched := scheduler.NewScheduler(ctx, col, tr, registry, st, n, log)
	if err := sched.RegisterAll(cfg.Schedule.QuoteCron, cfg.Schedule.AlertCron); err != nil {
		log.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil && cfg.Telegram.Polling {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	// HTTP API
	gin.SetMode(cfg.Server.Mode)
	router := handler.NewRouter(handler.Deps{
		Auth:      authSvc,
		Tracker:   tr,
		Admin:     adminSvc,
		Collector: col,
		Registry:  registry,
		Cache:     cachePinger,
		StocksURL: cfg.Lab.StocksURL,
		Log:       log,
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()
	log.Info("InvestLogic is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received, stopping")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("InvestLogic stopped")
}

func buildFetchers(cfg *config.Config) (collector.QuoteFetcher, collector.SeriesFetcher) {
	ds := cfg.DataSource
	mock := &collector.MockFetcher{Price: ds.MockPrice}
	yahoo := collector.NewYahooFetcher(cfg.Proxy, ds.Timeout)

	var quotes collector.QuoteFetcher = yahoo
	if ds.Quotes == "mock" {
		quotes = mock
	}
	var series collector.SeriesFetcher
	switch ds.Series {
	case "yahoo":
		series = yahoo
	case "mock":
		series = mock
	default:
		series = collector.NewStooqFetcher(cfg.Proxy, ds.Timeout)
	}
	return quotes, series
}
