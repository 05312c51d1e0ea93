// devserver - локальный сервер API планировщика для разработки и ручной проверки клиента.
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

	"github.com/evgeniyfimushkin/event-planner/internal/config"
	"github.com/evgeniyfimushkin/event-planner/internal/devserver"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var (
		configPath string
		cookieOnly bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.BoolVar(&cookieOnly, "cookie-only", false, "issue tokens in cookies only and never rotate the refresh token")
	flag.Parse()

	cfg := config.MustLoadServer(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting devserver", "env", cfg.Env, "cookie_only", cookieOnly)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	srv := devserver.New(devserver.Options{
		Logger:            log,
		Auth:              cfg.Auth,
		RegisterPerMinute: cfg.RateLimit.RegisterPerMinute,
		RegisterBurst:     cfg.RateLimit.Burst,
		Timeout:           cfg.Timeouts.Service,
		CookieOnly:        cookieOnly,
		Registerer:        prometheus.DefaultRegisterer,
	})

	if cfg.Seed {
		if err := srv.Seed(); err != nil {
			log.Error("seed_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		log.Info("seed_loaded", slog.String("username", devserver.DemoUsername))
	}

	var ready int32 // 0 - не готов; 1 - готов

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", srv.Handler())

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
	log.Info("devserver_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	st := srv.Stats()
	log.Info("service_stopped",
		slog.Int64("logins", st.Logins),
		slog.Int64("refreshes", st.Refreshes),
		slog.Int64("refresh_rejected", st.RefreshRejected),
		slog.Int64("unauthorized", st.Unauthorized),
	)
}

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
