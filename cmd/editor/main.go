package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-editor/internal/api"
	"github.com/annel0/voxel-editor/internal/cache"
	"github.com/annel0/voxel-editor/internal/config"
	"github.com/annel0/voxel-editor/internal/editor"
	"github.com/annel0/voxel-editor/internal/eventbus"
	"github.com/annel0/voxel-editor/internal/logging"
	"github.com/annel0/voxel-editor/internal/metrics"
	"github.com/annel0/voxel-editor/internal/observability"
	"github.com/annel0/voxel-editor/internal/service"
	"github.com/annel0/voxel-editor/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию EDITOR_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := configureLogging(cfg.Logging); err != nil {
		log.Fatalf("❌ Ошибка настройки логирования: %v", err)
	}
	if err := logging.InitDefaultLogger("editor"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🧱 Запуск редактора типов блоков...")

	ctx := context.Background()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.Service, cfg.Telemetry.Enabled)
	if err != nil {
		logging.Warn("OpenTelemetry недоступен: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === ХРАНИЛИЩЕ ===
	store, err := storage.NewCatalogStorage(storage.Options{
		Path:             cfg.Storage.Path,
		CompressionLevel: cfg.Storage.CompressionLevel,
	})
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища: %v", err)
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		bus, err = eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, time.Duration(cfg.EventBus.Retention)*time.Hour)
		if err != nil {
			logging.Warn("JetStream недоступен (%v), используется in-memory шина", err)
			bus = nil
		}
	}
	if bus == nil {
		bus = eventbus.NewMemoryBus(cfg.EventBus.Buffer)
	}
	busLogger := logging.GetLoggerManager().MustGetLogger("eventbus")
	if _, err := eventbus.StartLoggingListener(ctx, bus, busLogger); err != nil {
		logging.Warn("LoggingListener не запущен: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start()

	// === КЕШ АТЛАСОВ ===
	var sink service.AtlasSink
	var publisher *cache.AtlasPublisher
	if cfg.Redis.Addr != "" {
		publisher, err = cache.NewAtlasPublisher(cache.PublisherConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.TTL) * time.Second,
		})
		if err != nil {
			logging.Warn("Redis недоступен, публикация атласов отключена: %v", err)
		} else {
			sink = publisher
		}
	}

	pngCache, err := cache.NewPNGCache(32 << 20)
	if err != nil {
		log.Fatalf("❌ Ошибка создания PNG кеша: %v", err)
	}

	// === РЕДАКТОР ===
	rebuildMetrics := metrics.NewRebuildMetrics(reg)
	svc, err := service.New(service.Options{
		Storage:    store,
		Bus:        bus,
		Sink:       sink,
		PNG:        pngCache,
		Logger:     logging.GetLoggerManager().MustGetLogger("service"),
		Generators: service.DefaultGenerators(cfg.Editor.Seed),
		Default:    cfg.Editor.TextureGenerator,
		Hooks:      []editor.RebuildHook{rebuildMetrics.Observe},
	})
	if err != nil {
		log.Fatalf("❌ Ошибка создания редактора: %v", err)
	}

	// === HTTP ===
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	rest := api.NewRestServer(api.Config{
		Port:     restPort,
		Service:  svc,
		Registry: reg,
		Logger:   logging.GetLoggerManager().MustGetLogger("api"),
	})
	go func() {
		if err := rest.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ REST API остановлен с ошибкой: %v", err)
		}
	}()

	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()

	logging.Info("✅ Редактор запущен")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logging.Error("❌ Ошибка закрытия Redis: %v", err)
		}
	}
	pngCache.Close()
	if err := bus.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия шины событий: %v", err)
	}
	busMetrics.Stop()
	if err := store.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия хранилища: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки телеметрии: %v", err)
	}

	logging.Info("👋 Редактор остановлен")
}

func configureLogging(c config.LoggingConfig) error {
	console, err := logging.ParseLevel(c.ConsoleLevel)
	if err != nil {
		return err
	}
	file, err := logging.ParseLevel(c.FileLevel)
	if err != nil {
		return err
	}
	logging.Configure(logging.Options{
		Dir:          c.Dir,
		MaxSizeMB:    c.MaxSizeMB,
		MaxBackups:   c.MaxBackups,
		ConsoleLevel: console,
		FileLevel:    file,
	})
	return nil
}
