package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/shortlink/internal/clock"
	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/SergeiKhy/shortlink/internal/handler"
	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/metrics"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/SergeiKhy/shortlink/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.App.Location()
	if err != nil {
		zl.Fatal("Invalid timezone", zap.Error(err))
	}

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ctx := context.Background()

	// Слот хранилища
	slot, closeSlot, err := openSlot(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to open storage slot", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeSlot()
	zl.Info("Storage slot ready", zap.String("slot", slot.Name()))

	st, err := store.Open(ctx, slot, zl, m)
	if err != nil {
		zl.Fatal("Failed to open store", zap.Error(err))
	}

	httpOpts := handler.Options{
		BaseURL:                cfg.App.BaseURL,
		DefaultValidityMinutes: cfg.App.DefaultValidityMinutes,
		Location:               loc,
		Clock:                  clock.Real{},
		Metrics:                promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}

	// Инициализация сервисов
	deps := service.Deps{
		Store:         st,
		Clock:         httpOpts.Clock,
		Location:      loc,
		Metrics:       m,
		Logger:        zl,
		ReservedCodes: handler.ReservedCodes(httpOpts),
	}
	linkService := service.NewLinkService(deps)
	resolver := service.NewResolver(deps)

	// Настройка роутера
	router := handler.NewRouter(linkService, resolver, httpOpts, zl)

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		zl.Info("Server starting",
			zap.String("port", cfg.App.Port),
			zap.String("base_url", cfg.App.BaseURL),
			zap.Int("links", st.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}

	// Финальная запись на случай, если последняя запись в слот не удалась
	if err := st.Persist(shutdownCtx); err != nil {
		zl.Error("Failed to persist links on shutdown", zap.Error(err))
	}

	zl.Info("Server exited")
}

// openSlot открывает слот выбранного драйвера; закрывающая функция освобождает соединения
func openSlot(ctx context.Context, cfg *config.Config, zl *zap.Logger) (repository.Slot, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverFile:
		slot, err := repository.NewFileSlot(afero.NewOsFs(), cfg.Storage.FileDir, cfg.Storage.Key)
		return slot, func() {}, err

	case config.DriverRedis:
		rdb, err := repository.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		zl.Info("Connected to Redis")
		return repository.NewRedisSlot(rdb, cfg.Storage.Key), func() { rdb.Close() }, nil

	case config.DriverPostgres:
		db, err := repository.NewPostgresDB(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		zl.Info("Connected to PostgreSQL")
		slot, err := repository.NewPostgresSlot(ctx, db, cfg.Storage.Key)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return slot, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
