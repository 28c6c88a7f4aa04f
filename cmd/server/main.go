package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketdata/internal/breaker"
	"marketdata/internal/cache"
	"marketdata/internal/config"
	"marketdata/internal/forecast"
	"marketdata/internal/httpx"
	"marketdata/internal/logger"
	"marketdata/internal/marketdata"
	"marketdata/internal/metrics"
	"marketdata/internal/provider"
	"marketdata/internal/provider/alphavantage"
	"marketdata/internal/provider/exchangerate"
	"marketdata/internal/provider/finnhub"
	"marketdata/internal/provider/yahoo"
	"marketdata/internal/ratelimit"
	"marketdata/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	// Cache: Redis when configured, in-process memory otherwise. A Redis
	// that cannot be reached at boot is a warning, not a fatal.
	var backend cache.Backend
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, falling back to in-process cache only", "err", err)
		} else {
			backend = redisCache
			defer redisCache.Close()
		}
	}

	db, err := store.NewDatabase(cfg.DBPath)
	if err != nil {
		log.Error("open database", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	repo := store.NewRepository(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	met := metrics.New(reg)

	timeout := cfg.RequestTimeout()
	limiter := ratelimit.New(cfg.RateLimits())

	yahooClient := yahoo.New(timeout, limiter, yahoo.WithBaseURL(cfg.YahooBaseURL))

	quotes := []provider.QuoteProvider{yahooClient}
	histories := []provider.HistoryProvider{yahooClient}
	var searchers []provider.SearchProvider
	var news []provider.NewsProvider
	rates := []provider.RateProvider{}

	if cfg.AlphaVantageAPIKey != "" {
		av := alphavantage.New(cfg.AlphaVantageAPIKey, timeout, limiter,
			alphavantage.WithBaseURL(cfg.AlphaVantageBaseURL))
		quotes = append(quotes, av)
		searchers = append(searchers, av)
		news = append(news, av)
	} else {
		log.Warn("ALPHAVANTAGE_API_KEY not set; search and quote fallback disabled")
	}

	if cfg.FinnhubAPIKey != "" {
		fh, err := finnhub.NewClient(cfg.FinnhubAPIKey,
			finnhub.WithBaseURL(cfg.FinnhubBaseURL),
			finnhub.WithHTTPClient(httpx.New(timeout)))
		if err != nil {
			log.Warn("finnhub client", "err", err)
		} else {
			// Finnhub leads the news cascade; the others are fallbacks.
			news = append([]provider.NewsProvider{fh}, news...)
		}
	}
	news = append(news, yahooClient)

	if cfg.ExchangeRateAPIKey != "" {
		rates = append(rates, exchangerate.New(cfg.ExchangeRateAPIKey, timeout, limiter,
			exchangerate.WithBaseURL(cfg.ExchangeRateBaseURL)))
	} else {
		log.Warn("EXCHANGERATE_API_KEY not set; using derived and static FX rates only")
	}
	rates = append(rates, yahooClient)

	svc := marketdata.New(marketdata.Config{
		Cache:      cache.New(backend, log),
		Breakers:   breaker.NewRegistry(nil),
		Quotes:     quotes,
		Histories:  histories,
		Searchers:  searchers,
		News:       news,
		Rates:      rates,
		Forecaster: forecast.Linear(),
		Store:      repo,
		Metrics:    met,
		Logger:     log,
	})

	srv := &server{svc: svc, repo: repo, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /api/stocks/search", srv.handleSearch)
	mux.HandleFunc("GET /api/stocks/{symbol}", srv.handleQuote)
	mux.HandleFunc("GET /api/stocks/{symbol}/history", srv.handleHistory)
	mux.HandleFunc("GET /api/stocks/{symbol}/news", srv.handleNews)
	mux.HandleFunc("GET /api/currency/convert", srv.handleConvert)
	mux.HandleFunc("GET /api/predictions/{symbol}", srv.handlePredict)

	mux.HandleFunc("GET /api/watchlist", srv.handleListWatchlist)
	mux.HandleFunc("POST /api/watchlist", srv.handleAddWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{id}", srv.handleUpdateWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{id}", srv.handleDeleteWatchlist)

	mux.HandleFunc("GET /api/portfolio", srv.handleListPortfolio)
	mux.HandleFunc("POST /api/portfolio", srv.handleAddHolding)
	mux.HandleFunc("PUT /api/portfolio/{id}", srv.handleUpdateHolding)
	mux.HandleFunc("DELETE /api/portfolio/{id}", srv.handleDeleteHolding)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * timeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
