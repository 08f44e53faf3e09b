// sharedav server
//
// Serves published share codes as a read-only WebDAV namespace:
// - share records in SQLite or PostgreSQL, indexed into an in-memory snapshot
// - OPTIONS/PROPFIND/GET over HTTP Basic auth
// - GET answered with a presigned redirect into the backing object store
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/panshare/sharedav/internal/config"
	"github.com/panshare/sharedav/internal/dav"
	"github.com/panshare/sharedav/internal/logging"
	"github.com/panshare/sharedav/internal/metrics"
	"github.com/panshare/sharedav/internal/store"
	"github.com/panshare/sharedav/internal/store/postgres"
	"github.com/panshare/sharedav/internal/store/sqlite"
	"github.com/panshare/sharedav/internal/upstream"
	"github.com/panshare/sharedav/internal/vfs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("sharedav server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("store", cfg.StoreDriver),
		zap.String("index_mode", cfg.IndexMode))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recordStore, err := openStore(cfg)
	if err != nil {
		logging.Fatal("record store init failed", zap.Error(err))
	}
	defer recordStore.Close()

	resolver := vfs.NewResolver(recordStore, vfs.Mode(cfg.IndexMode))
	if err := resolver.Load(ctx); err != nil {
		logging.Fatal("initial index build failed", zap.Error(err))
	}

	urls, err := upstream.New(ctx, upstream.Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
		URLTTL:    cfg.URLTTL,
	})
	if err != nil {
		logging.Fatal("upstream resolver init failed", zap.Error(err))
	}

	handler := dav.BasicAuth(
		dav.Credentials{
			Username:       cfg.DAVUsername,
			Password:       cfg.DAVPassword,
			PasswordBcrypt: cfg.DAVPasswordBcrypt,
		},
		dav.NewHandler(resolver, urls, cfg.URLResolveTimeout),
	)

	// Metrics mux also carries the admin reload endpoint.
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", metrics.Handler())
	adminMux.HandleFunc("/-/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := resolver.Load(r.Context()); err != nil {
			logging.Error("index reload failed", zap.Error(err))
			http.Error(w, "reload failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: adminMux,
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	davServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: logging.Middleware(metrics.Middleware(handler)),
	}
	go func() {
		logging.Info("WebDAV server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.Int("shares", resolver.ShareCount()))
		if err := davServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logging.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := davServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("server shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("metrics shutdown error", zap.Error(err))
	}
	logging.Info("shutdown complete")
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "postgres" {
		return postgres.New(cfg.DatabaseURL)
	}
	return sqlite.New(cfg.SQLitePath)
}
