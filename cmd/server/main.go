// Package main — точка входа движка наград.
// Загружает конфигурацию, инициализирует приложение и запускает HTTP-сервер.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/app"
	"serotonyl.ru/reward-engine/internal/config"
)

func main() {
	// Настраиваем логирование
	setupLogging()

	log.Info("=== Движок наград запускается ===")

	// Веса и шансы отдаём числами, а не строками
	decimal.MarshalJSONWithoutQuotes = true

	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	// Устанавливаем уровень логирования из конфига
	level, err := log.ParseLevel(cfg.AppLogLevel)
	if err == nil {
		log.SetLevel(level)
	}
	if cfg.AppEnv == "production" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
		gin.SetMode(gin.ReleaseMode)
	}

	// Контекст с отменой для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	// Запускаем планировщик задач (cron)
	if application.Scheduler != nil {
		if err := application.Scheduler.Start(ctx); err != nil {
			log.WithError(err).Fatal("Не удалось запустить планировщик")
		}
		defer application.Scheduler.Stop()
	}

	// Обрабатываем сигналы остановки (Ctrl+C, docker stop)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() { serverErr <- application.Server.Start() }()

	log.Info("=== Движок наград готов к работе ===")

	select {
	case sig := <-quit:
		log.Infof("Получен сигнал %s, останавливаемся...", sig)
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP-сервер завершился с ошибкой")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer shutdownCancel()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Не удалось корректно остановить сервер")
	}

	// Отменяем контекст — фоновые задачи начнут завершаться
	cancel()

	log.Info("=== Движок наград остановлен ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
