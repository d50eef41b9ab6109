package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"marble-race/backend/internal/adapter/in/rest"
	"marble-race/backend/internal/adapter/in/ws"
	physicsAdapter "marble-race/backend/internal/adapter/out/physics"
	"marble-race/backend/internal/adapter/out/storage"
	"marble-race/backend/internal/config"
	"marble-race/backend/internal/core/domain/service"
	"marble-race/backend/internal/game"
	"marble-race/backend/internal/logging"
	"marble-race/backend/internal/telemetry"
)

const (
	telemetryBuffer = 600
	metricsInterval = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("error", "console")
		fallback.Fatal().Err(err).Msg("Некорректная конфигурация")
	}

	logger := logging.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Сервер остановлен с ошибкой")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	// 1. Подключаемся к серверу физики
	physics, err := physicsAdapter.NewGRPCPhysicsAdapter(
		cfg.Server.PhysicsAddr,
		cfg.Server.PhysicsTimeout,
		logging.Component(logger, "PhysicsAdapter"),
	)
	if err != nil {
		return err
	}
	defer physics.Close()

	// 2. Хранилище результатов
	db, err := storage.OpenBadger(cfg.Server.DBPath, logging.Component(logger, "Badger"))
	if err != nil {
		return err
	}
	results := storage.NewBadgerResults(db)
	defer results.Close()

	// 3. Сессия заезда
	tm := telemetry.NewTelemetryManager(telemetryBuffer, logging.Component(logger, "Telemetry"))

	race, err := service.NewRaceService(physics, cfg, logging.Component(logger, "RaceService"),
		service.WithResults(results),
		service.WithTelemetry(tm),
	)
	if err != nil {
		return err
	}
	defer race.Close()

	if err := race.Init(ctx); err != nil {
		return err
	}

	// 4. Транспорт к клиентам
	wsAdapter := ws.NewWSAdapter(race, cfg.Server.AllowAnyOrigin, logger)
	defer wsAdapter.Close()

	// 5. Игровой цикл
	ticker := game.NewGameTicker(cfg.Server.TargetTPS, logger)
	ticker.RegisterSystem(game.NewRaceSystem(race))
	ticker.RegisterSystem(game.NewNetworkSyncSystem(race, wsAdapter, cfg.Server.BroadcastInterval, logger))
	ticker.RegisterSystem(game.NewGameMetricsSystem(ticker, tm, metricsInterval, logger))

	if err := ticker.Start(ctx); err != nil {
		return err
	}
	defer ticker.Stop()

	// 6. HTTP сервер
	server := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: rest.NewRouter(rest.Deps{
			Race:      race,
			Results:   race,
			Ticker:    ticker,
			Telemetry: tm,
			WS:        wsAdapter.HandleWS,
			Logger:    logging.Component(logger, "HTTP"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.HTTPAddr).Msg("HTTP сервер запущен")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Получен сигнал остановки")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Остальное закрывается отложенными вызовами в обратном порядке:
	// тикер, клиенты WebSocket, сессия, база, соединение с физикой
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Ошибка остановки HTTP сервера")
	}

	logger.Info().Msg("Сервер остановлен")
	return nil
}
