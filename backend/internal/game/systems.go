package game

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marble-race/backend/internal/core/domain/entity"
	"marble-race/backend/internal/telemetry"
)

// RaceTicker - сессия заезда, продвигаемая на один тик
type RaceTicker interface {
	Tick(ctx context.Context, delta, simTime float64) error
}

// RaceSystem продвигает сессию заезда
type RaceSystem struct {
	name     string
	priority int
	race     RaceTicker
}

// NewRaceSystem создает систему заезда
func NewRaceSystem(race RaceTicker) *RaceSystem {
	return &RaceSystem{
		name:     "RaceSystem",
		priority: 10, // Симуляция идет первой
		race:     race,
	}
}

// Update выполняет тик заезда с шагом и временем симуляции в секундах
func (rs *RaceSystem) Update(ctx context.Context, tick TickInfo) error {
	return rs.race.Tick(ctx, tick.Delta.Seconds(), tick.Elapsed.Seconds())
}

// GetName возвращает имя системы
func (rs *RaceSystem) GetName() string {
	return rs.name
}

// GetPriority возвращает приоритет системы
func (rs *RaceSystem) GetPriority() int {
	return rs.priority
}

// StateBroadcaster рассылает состояние подключенным клиентам
type StateBroadcaster interface {
	BroadcastState() int
	BroadcastCourse() int
	ClientCount() int
}

// SnapshotSource отдает последний опубликованный снимок
type SnapshotSource interface {
	Snapshot() entity.Snapshot
}

// NetworkSyncSystem система синхронизации состояния с клиентами
type NetworkSyncSystem struct {
	name     string
	priority int
	source   SnapshotSource
	clients  StateBroadcaster
	logger   zerolog.Logger

	broadcastInterval time.Duration
	lastBroadcast     time.Time
	lastCourseRev     uint64
	sent              uint64
}

// NewNetworkSyncSystem создает новую систему сетевой синхронизации
func NewNetworkSyncSystem(source SnapshotSource, clients StateBroadcaster, interval time.Duration, logger zerolog.Logger) *NetworkSyncSystem {
	return &NetworkSyncSystem{
		name:              "NetworkSyncSystem",
		priority:          100, // Отправляем в конце тика
		source:            source,
		clients:           clients,
		logger:            logger.With().Str("component", "NetworkSyncSystem").Logger(),
		broadcastInterval: interval,
	}
}

// Update отправляет трассу при ее смене и снимки не чаще интервала
func (nss *NetworkSyncSystem) Update(ctx context.Context, tick TickInfo) error {
	snap := nss.source.Snapshot()
	courseChanged := snap.CourseRev != nss.lastCourseRev
	nss.lastCourseRev = snap.CourseRev

	if nss.clients.ClientCount() == 0 {
		return nil
	}

	if courseChanged {
		nss.logger.Debug().Uint64("revision", snap.CourseRev).Msg("Рассылка новой трассы")
		nss.clients.BroadcastCourse()
	}

	if tick.Time.Sub(nss.lastBroadcast) < nss.broadcastInterval {
		return nil
	}
	nss.lastBroadcast = tick.Time

	nss.sent += uint64(nss.clients.BroadcastState())
	return nil
}

// Sent возвращает число отправленных снимков
func (nss *NetworkSyncSystem) Sent() uint64 {
	return nss.sent
}

// GetName возвращает имя системы
func (nss *NetworkSyncSystem) GetName() string {
	return nss.name
}

// GetPriority возвращает приоритет системы
func (nss *NetworkSyncSystem) GetPriority() int {
	return nss.priority
}

// GameMetricsSystem система сбора игровых метрик
type GameMetricsSystem struct {
	name       string
	priority   int
	gameTicker *GameTicker
	telemetry  *telemetry.TelemetryManager
	logger     zerolog.Logger

	lastMetricsLog  time.Time
	metricsInterval time.Duration
}

// NewGameMetricsSystem создает новую систему сбора метрик
func NewGameMetricsSystem(gameTicker *GameTicker, tm *telemetry.TelemetryManager, interval time.Duration, logger zerolog.Logger) *GameMetricsSystem {
	return &GameMetricsSystem{
		name:            "GameMetricsSystem",
		priority:        200, // Метрики в самом конце
		gameTicker:      gameTicker,
		telemetry:       tm,
		logger:          logger.With().Str("component", "GameMetrics").Logger(),
		metricsInterval: interval,
	}
}

// Update собирает и логирует игровые метрики
func (gms *GameMetricsSystem) Update(ctx context.Context, tick TickInfo) error {
	if tick.Time.Sub(gms.lastMetricsLog) < gms.metricsInterval {
		return nil
	}
	gms.lastMetricsLog = tick.Time

	stats := gms.gameTicker.GetStats()

	gms.logger.Info().
		Float64("tps", stats.ActualTPS).
		Int("target_tps", stats.TargetTPS).
		Uint64("ticks", stats.TickCount).
		Dur("avg_tick", stats.AverageTickTime).
		Float64("sim_seconds", stats.SimSeconds).
		Msg("Метрики игрового цикла")

	if stats.ActualTPS > 0 && stats.ActualTPS < float64(stats.TargetTPS)*0.9 {
		gms.logger.Warn().Float64("tps", stats.ActualTPS).Msg("TPS снижен")
	}

	if gms.telemetry != nil {
		gms.telemetry.PrintSummary()
	}
	return nil
}

// GetName возвращает имя системы
func (gms *GameMetricsSystem) GetName() string {
	return gms.name
}

// GetPriority возвращает приоритет системы
func (gms *GameMetricsSystem) GetPriority() int {
	return gms.priority
}
