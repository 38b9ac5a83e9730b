package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digisapp/digis-app-sub003/internal/core/services"
	"github.com/digisapp/digis-app-sub003/internal/core/store"
	"github.com/digisapp/digis-app-sub003/internal/infrastructure/authapi"
	"github.com/digisapp/digis-app-sub003/internal/infrastructure/monitoring"
	"github.com/digisapp/digis-app-sub003/internal/infrastructure/repositories"
	"github.com/digisapp/digis-app-sub003/internal/infrastructure/transport"
	"github.com/digisapp/digis-app-sub003/pkg/config"
	"github.com/digisapp/digis-app-sub003/pkg/logger"
	"github.com/digisapp/digis-app-sub003/pkg/tracing"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/digis/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	if cfg.Tracing.Enabled {
		tracerCfg := tracing.DefaultConfig()
		tracerCfg.Enabled = true
		tracerCfg.JaegerURL = cfg.Tracing.JaegerURL
		tracerCfg.SampleRate = cfg.Tracing.SampleRate

		tp, err := tracing.Init(tracerCfg)
		if err != nil {
			log.Warnw("failed to initialize tracing, continuing without it", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tp.Shutdown(ctx)
			}()
		}
	}

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	st := store.New(repoFactory.CreateSnapshotRepository(), log)
	st.SetTypingTTL(cfg.Store.TypingTTL)
	st.SetSweepInterval(cfg.Store.SweepInterval)
	defer st.Close()

	unsubscribe := st.Subscribe(func() {
		log.Debugw("state changed",
			"status", st.Session().Status,
			"role", st.Session().Role,
			"unread_notifications", st.UnreadNotifications(),
		)
	})
	defer unsubscribe()

	collector := monitoring.NewPrometheusCollector()

	api := authapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, log)

	bootstrapper := services.NewBootstrapper(api, repoFactory.CreateHintRepository(), st, collector, log)
	bootstrapper.SetRetryDelay(cfg.Bootstrap.RetryDelay)

	socketTransport := transport.NewWebSocketTransport(
		websocketURL(cfg.Backend.BaseURL),
		cfg.Socket.PingInterval,
		cfg.Socket.WriteTimeout,
		log,
	)

	reconciler := services.NewReconciler(socketTransport, st, services.ReconcilerConfig{
		BackoffBase:     cfg.Socket.BackoffBase,
		BackoffMax:      cfg.Socket.BackoffMax,
		MaxAttempts:     cfg.Socket.MaxAttempts,
		TypingPerSecond: cfg.Socket.TypingPerSecond,
		TypingBurst:     cfg.Socket.TypingBurst,
	}, collector, log)

	token := os.Getenv("DIGIS_AUTH_TOKEN")
	reconciler.SetToken(token)
	reconciler.Start()
	defer reconciler.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bootstrapper.Bootstrap(ctx, token); err != nil {
		// Non-fatal: the session lands in ready with a fallback role and a
		// silent retry is already scheduled.
		log.Warnw("session bootstrap degraded", "error", err)
	}

	sess := st.Session()
	log.Infow("session ready",
		"status", sess.Status,
		"role", sess.Role,
		"role_version", sess.RoleVersion,
	)

	var metricsSrv *http.Server
	if cfg.Monitoring.PrometheusEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
			Handler: mux,
		}
		go func() {
			log.Infof("Prometheus metrics listening on %s", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("metrics server failed", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Infow("Received shutdown signal", "signal", sig)

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Errorw("Error during metrics server shutdown", "error", err)
		}
	}

	log.Info("Realtime client stopped")
}

// websocketURL derives the socket endpoint from the backend base URL.
func websocketURL(baseURL string) string {
	url := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url + "/ws"
}
