package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-room-booking/internal/config"
	"github.com/pribylovaa/go-room-booking/internal/events"
	"github.com/pribylovaa/go-room-booking/internal/metrics"
	"github.com/pribylovaa/go-room-booking/internal/ratelimit"
	"github.com/pribylovaa/go-room-booking/internal/service"
	"github.com/pribylovaa/go-room-booking/internal/storage/postgres"
	bookinghttp "github.com/pribylovaa/go-room-booking/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting booking-service", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	log.Info("postgres_connected")

	m := metrics.New(prometheus.DefaultRegisterer)

	limiter, rdb := setupLimiter(rootCtx, cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	pub := setupPublisher(cfg.AMQP, log)
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("amqp_close_failed", slog.String("err", err.Error()))
		}
	}()

	srvc := service.New(str, cfg.Auth,
		service.WithPublisher(pub),
		service.WithMetrics(m),
	)
	log.Info("service_initialized")

	created, err := srvc.EnsureSuperuser(rootCtx, cfg.Superuser.Email, cfg.Superuser.Password)
	if err != nil {
		log.Error("superuser_bootstrap_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if created {
		log.Info("superuser_created", slog.String("email", cfg.Superuser.Email))
	}

	// Фоновая очистка просроченных refresh-сессий.
	startSessionJanitor(rootCtx, srvc, log, cfg.Auth.JanitorPeriod)

	apiHandler := bookinghttp.NewRouter(srvc, bookinghttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Request,
		Cookies: cfg.Cookies,
		CORS:    cfg.CORS,
		Limiter: limiter,
		Metrics: m,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := str.Ping(pingCtx); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// setupLimiter подключает Redis для лимитера auth-эндпойнтов.
// Пустой redis_url или недоступный Redis отключают лимит.
func setupLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ratelimit.Limiter, *redis.Client) {
	if cfg.Redis.RedisURL == "" {
		log.Info("ratelimit_disabled")
		return nil, nil
	}

	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := ratelimit.Connect(connCtx, cfg.Redis.RedisURL)
	if err != nil {
		log.Warn("redis_connect_failed", slog.String("err", err.Error()))
		return nil, nil
	}
	log.Info("redis_connected")

	return ratelimit.New(rdb, cfg.RateLimit), rdb
}

// setupPublisher подключает AMQP; без URL события не публикуются.
func setupPublisher(cfg config.AMQPConfig, log *slog.Logger) events.Publisher {
	if cfg.URL == "" {
		return events.Nop{}
	}

	pub, err := events.NewAMQP(cfg.URL, cfg.Queue)
	if err != nil {
		log.Warn("amqp_connect_failed", slog.String("err", err.Error()))
		return events.Nop{}
	}
	log.Info("amqp_connected", slog.String("queue", cfg.Queue))

	return pub
}

// startSessionJanitor периодически удаляет истёкшие refresh-сессии.
func startSessionJanitor(ctx context.Context, svc *service.Service, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := svc.DeleteExpiredSessions(ctx)
				if err != nil {
					log.Error("session_janitor_failed", slog.String("err", err.Error()))
					continue
				}
				log.Debug("session_janitor_done", slog.Int64("deleted", n))
			}
		}
	}()
}
