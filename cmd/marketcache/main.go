package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"MarketCache/internal/config"
	"MarketCache/internal/httpx"
	"MarketCache/internal/planner"
	"MarketCache/internal/recorder"
	"MarketCache/internal/series"
	"MarketCache/internal/source"
	"MarketCache/internal/store"
	"MarketCache/internal/warmer"
)

func main() {
	var (
		cfgPath    = flag.String("config", "configs/config.yaml", "path to config file")
		symbol     = flag.String("symbol", "", "symbol to fetch")
		intervalID = flag.String("interval", "1d", "bar interval (1m..1mo)")
		lookback   = flag.Int("lookback", 30, "lookback days when -start is not given")
		startStr   = flag.String("start", "", "range start (YYYY-MM-DD)")
		endStr     = flag.String("end", "", "range end (YYYY-MM-DD)")
		noCache    = flag.Bool("no-cache", false, "bypass the cache entirely")
		maxAge     = flag.Duration("max-age", 24*time.Hour, "cache freshness window")
		clear      = flag.Bool("clear", false, "clear cached series (scoped by -symbol/-interval if given)")
		daemon     = flag.Bool("daemon", false, "run the cron cache warmer")
		runNow     = flag.Bool("run-now", false, "with -daemon, warm immediately on start")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment")
	}

	if v := os.Getenv("CONFIG_PATH"); v != "" {
		*cfgPath = v
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	cache, cleanup, err := buildCache(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init cache")
	}
	defer cleanup()

	switch {
	case *clear:
		if err := cache.ClearCache(*symbol, clearInterval(*intervalID)); err != nil {
			log.Fatal().Err(err).Msg("clear cache")
		}
		return

	case *daemon:
		runDaemon(cfg, cache, *runNow)

	default:
		if *symbol == "" {
			fmt.Fprintln(os.Stderr, "usage: marketcache -symbol AAPL [-interval 1d] [-lookback 30]")
			flag.PrintDefaults()
			os.Exit(2)
		}
		runFetch(cache, *symbol, *intervalID, *lookback, *startStr, *endStr, *noCache, *maxAge)
	}
}

// clearInterval keeps -clear symmetrical with fetches: clearing with the
// default flag value wipes the symbol across all intervals.
func clearInterval(intervalID string) string {
	if intervalID == "1d" && !flagWasSet("interval") {
		return ""
	}
	return intervalID
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl)
}

func buildCache(cfg *config.Config) (*series.Cache, func(), error) {
	st, err := store.New(store.Config{
		RootDir:   cfg.Cache.RootDir,
		Namespace: cfg.Cache.Namespace,
	})
	if err != nil {
		return nil, nil, err
	}

	client := httpx.New(httpx.Options{
		Timeout:        time.Duration(cfg.Source.TimeoutSeconds) * time.Second,
		RequestsPerSec: cfg.Source.RequestsPerSec,
		ProxyURL:       cfg.Proxy,
	})

	var adapter source.Adapter
	switch cfg.Source.Name {
	case "vstrader":
		adapter = source.NewVsTrader(cfg.Source.BaseURL, cfg.Source.APIKey, client)
	default:
		adapter = source.NewYahoo(client)
	}
	log.Info().Str("source", adapter.Name()).Msg("data source selected")

	var rec recorder.Recorder
	cleanup := func() {}
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			cleanup = func() { sr.Close() }
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	pl := planner.New(planner.Config{
		BufferDays:       cfg.Cache.BufferDays,
		MaxLookbackYears: cfg.Cache.MaxLookbackYears,
	})

	return series.New(st, pl, adapter, rec), cleanup, nil
}

func runFetch(cache *series.Cache, symbol, intervalID string, lookback int, startStr, endStr string, noCache bool, maxAge time.Duration) {
	q := series.DefaultQuery(symbol, intervalID)
	q.LookbackDays = lookback
	q.UseCache = !noCache
	q.MaxCacheAge = maxAge

	for _, p := range []struct {
		value  string
		target *time.Time
	}{{startStr, &q.Start}, {endStr, &q.End}} {
		if p.value == "" {
			continue
		}
		ts, err := time.Parse("2006-01-02", p.value)
		if err != nil {
			log.Fatal().Str("value", p.value).Msg("dates must be YYYY-MM-DD")
		}
		*p.target = ts
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	points, err := cache.GetSeries(ctx, q)
	if err != nil {
		log.Fatal().Err(err).Msg("get series")
	}

	fmt.Printf("%-25s %12s %12s %12s %12s %14s\n", "Date", "Open", "High", "Low", "Close", "Volume")
	for _, p := range points {
		fmt.Printf("%-25s %12.4f %12.4f %12.4f %12.4f %14.0f\n",
			p.Timestamp.Format(time.RFC3339), p.Open, p.High, p.Low, p.Close, p.Volume)
	}
	log.Info().Int("rows", len(points)).Str("symbol", symbol).Str("interval", intervalID).Msg("done")
}

func runDaemon(cfg *config.Config, cache *series.Cache, runNow bool) {
	if len(cfg.Warm.Symbols) == 0 {
		log.Fatal().Msg("daemon mode needs warm.symbols in the config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := warmer.New(ctx, cache, cfg.Warm.Symbols, cfg.Warm.Intervals, cfg.Warm.LookbackDays)
	if err := w.Register(cfg.Warm.Cron); err != nil {
		log.Fatal().Err(err).Msg("register warm task")
	}
	w.Start()
	defer w.Stop()

	if runNow || os.Getenv("RUN_ON_START") == "true" {
		go w.RunNow()
	}

	log.Info().Str("cron", cfg.Warm.Cron).Msg("marketcache daemon running, Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
}
