package game

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TickInfo описывает текущий тик для систем
type TickInfo struct {
	Number  uint64        // Номер тика, начиная с 1
	Time    time.Time     // Время срабатывания таймера
	Delta   time.Duration // Шаг симуляции
	Elapsed time.Duration // Время симуляции с запуска, без пауз
}

// TickSystem интерфейс для всех игровых систем
type TickSystem interface {
	Update(ctx context.Context, tick TickInfo) error
	GetName() string
	GetPriority() int // Приоритет выполнения (меньше = раньше)
}

// GameTicker основной менеджер игрового цикла.
// Шаг симуляции фиксирован и равен длительности тика.
type GameTicker struct {
	// Конфигурация
	targetTPS    int           // Целевая частота тиков в секунду
	tickDuration time.Duration // Длительность одного тика
	maxTickTime  time.Duration // Максимальное время на один тик

	// Состояние
	mu           sync.RWMutex
	isRunning    bool
	isPaused     bool
	tickCount    uint64
	startTime    time.Time
	lastTickTime time.Time
	simElapsed   time.Duration

	// Системы
	systems      []TickSystem
	systemsMutex sync.RWMutex

	// Мониторинг производительности
	perfMonitor *PerformanceMonitor

	// Управление
	cancel    context.CancelFunc
	pauseChan chan bool
	done      chan struct{}

	// Метрики
	averageTickTime time.Duration
	maxObservedTick time.Duration
	skippedTicks    uint64

	logger           zerolog.Logger
	warningThreshold time.Duration
}

// Stats - статистика игрового цикла
type Stats struct {
	TargetTPS       int           `json:"target_tps"`
	ActualTPS       float64       `json:"actual_tps"`
	TickCount       uint64        `json:"tick_count"`
	UptimeSeconds   float64       `json:"uptime_seconds"`
	SimSeconds      float64       `json:"sim_seconds"`
	AverageTickTime time.Duration `json:"average_tick_time"`
	MaxObservedTick time.Duration `json:"max_observed_tick"`
	SkippedTicks    uint64        `json:"skipped_ticks"`
	IsRunning       bool          `json:"is_running"`
	IsPaused        bool          `json:"is_paused"`
	SystemsCount    int           `json:"systems_count"`
}

// PerformanceMonitor отслеживает производительность каждой системы
type PerformanceMonitor struct {
	systemMetrics map[string]*SystemMetrics
	mutex         sync.RWMutex

	// Настройки мониторинга
	metricsWindow     int           // Количество последних тиков для усреднения
	warningThreshold  time.Duration // Порог предупреждения для системы
	criticalThreshold time.Duration // Критический порог
}

// SystemMetrics метрики производительности системы
type SystemMetrics struct {
	Name              string
	LastExecutionTime time.Duration
	AverageTime       time.Duration
	MaxTime           time.Duration
	TotalExecutions   uint64
	Errors            uint64

	// Скользящее окно для вычисления среднего
	recentTimes  []time.Duration
	recentIndex  int
	windowFilled bool
}

// SystemStats - снимок метрик одной системы
type SystemStats struct {
	LastExecutionTime time.Duration `json:"last_execution_time"`
	AverageTime       time.Duration `json:"average_time"`
	MaxTime           time.Duration `json:"max_time"`
	TotalExecutions   uint64        `json:"total_executions"`
	Errors            uint64        `json:"errors"`
}

// NewGameTicker создает новый игровой тикер
func NewGameTicker(targetTPS int, logger zerolog.Logger) *GameTicker {
	if targetTPS <= 0 {
		targetTPS = 60
	}

	tickDuration := time.Second / time.Duration(targetTPS)

	return &GameTicker{
		targetTPS:        targetTPS,
		tickDuration:     tickDuration,
		maxTickTime:      tickDuration * 2, // Максимум в 2 раза больше целевого времени
		systems:          make([]TickSystem, 0),
		perfMonitor:      NewPerformanceMonitor(50, tickDuration/4), // Предупреждение при 25% от тика
		pauseChan:        make(chan bool, 1),
		logger:           logger.With().Str("component", "GameTicker").Logger(),
		warningThreshold: tickDuration / 2, // Предупреждение при 50% от времени тика
	}
}

// NewPerformanceMonitor создает новый монитор производительности
func NewPerformanceMonitor(windowSize int, warningThreshold time.Duration) *PerformanceMonitor {
	if windowSize <= 0 {
		windowSize = 1
	}
	return &PerformanceMonitor{
		systemMetrics:     make(map[string]*SystemMetrics),
		metricsWindow:     windowSize,
		warningThreshold:  warningThreshold,
		criticalThreshold: warningThreshold * 2,
	}
}

// Start запускает игровой цикл. Цикл останавливается по Stop или отмене ctx.
func (gt *GameTicker) Start(ctx context.Context) error {
	gt.mu.Lock()
	defer gt.mu.Unlock()

	if gt.isRunning {
		return fmt.Errorf("игровой цикл уже запущен")
	}

	ctx, cancel := context.WithCancel(ctx)
	gt.cancel = cancel
	gt.done = make(chan struct{})
	gt.isRunning = true
	gt.startTime = time.Now()
	gt.lastTickTime = gt.startTime

	gt.logger.Info().
		Int("tps", gt.targetTPS).
		Dur("tick", gt.tickDuration).
		Msg("Запуск игрового цикла")

	go gt.gameLoop(ctx, gt.done)

	return nil
}

// Stop останавливает игровой цикл и ждет завершения текущего тика
func (gt *GameTicker) Stop() {
	gt.mu.Lock()
	if !gt.isRunning {
		gt.mu.Unlock()
		return
	}
	cancel, done := gt.cancel, gt.done
	gt.mu.Unlock()

	cancel()
	<-done

	gt.mu.Lock()
	gt.isRunning = false
	gt.isPaused = false
	ticks := gt.tickCount
	gt.mu.Unlock()

	gt.logger.Info().Uint64("ticks", ticks).Msg("Игровой цикл остановлен")
}

// Pause приостанавливает цикл; время симуляции на паузе не идет
func (gt *GameTicker) Pause() {
	gt.setPaused(true)
}

// Resume возобновляет цикл после паузы
func (gt *GameTicker) Resume() {
	gt.setPaused(false)
}

func (gt *GameTicker) setPaused(pause bool) {
	gt.mu.Lock()
	if gt.isPaused == pause {
		gt.mu.Unlock()
		return
	}
	gt.isPaused = pause
	gt.mu.Unlock()

	// Старое необработанное значение заменяем новым
	select {
	case <-gt.pauseChan:
	default:
	}
	gt.pauseChan <- pause

	gt.logger.Info().Bool("paused", pause).Msg("Состояние паузы изменено")
}

// IsPaused сообщает, стоит ли цикл на паузе
func (gt *GameTicker) IsPaused() bool {
	gt.mu.RLock()
	defer gt.mu.RUnlock()
	return gt.isPaused
}

// RegisterSystem добавляет систему в игровой цикл
func (gt *GameTicker) RegisterSystem(system TickSystem) {
	gt.systemsMutex.Lock()
	defer gt.systemsMutex.Unlock()

	gt.systems = append(gt.systems, system)

	// Сортируем по приоритету (меньше = выше приоритет)
	slices.SortStableFunc(gt.systems, func(a, b TickSystem) int {
		return a.GetPriority() - b.GetPriority()
	})

	gt.perfMonitor.initSystemMetrics(system.GetName())

	gt.logger.Info().
		Str("system", system.GetName()).
		Int("priority", system.GetPriority()).
		Msg("Зарегистрирована система")
}

// gameLoop основной игровой цикл
func (gt *GameTicker) gameLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(gt.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case pause := <-gt.pauseChan:
			// Ждем команды возобновления
			for pause {
				select {
				case <-ctx.Done():
					return
				case pause = <-gt.pauseChan:
				}
			}
			// После паузы задержку между тиками не считаем пропуском
			gt.mu.Lock()
			gt.lastTickTime = time.Now()
			gt.mu.Unlock()

		case tickTime := <-ticker.C:
			gt.executeTick(ctx, tickTime)
		}
	}
}

// executeTick выполняет один игровой тик
func (gt *GameTicker) executeTick(ctx context.Context, tickTime time.Time) {
	tickStart := time.Now()

	gt.mu.Lock()
	wallDelta := tickTime.Sub(gt.lastTickTime)
	if !gt.lastTickTime.IsZero() && wallDelta > gt.tickDuration*2 {
		gt.logger.Warn().
			Dur("delay", wallDelta).
			Dur("expected", gt.tickDuration).
			Msg("Большая задержка между тиками")
		gt.skippedTicks++
	}

	gt.tickCount++
	gt.lastTickTime = tickTime
	gt.simElapsed += gt.tickDuration

	tick := TickInfo{
		Number:  gt.tickCount,
		Time:    tickTime,
		Delta:   gt.tickDuration,
		Elapsed: gt.simElapsed,
	}
	gt.mu.Unlock()

	gt.executeAllSystems(ctx, tick)

	totalTickTime := time.Since(tickStart)
	gt.updateTickMetrics(totalTickTime)
	gt.checkPerformance(totalTickTime)
}

// executeAllSystems выполняет все зарегистрированные системы
func (gt *GameTicker) executeAllSystems(ctx context.Context, tick TickInfo) {
	gt.systemsMutex.RLock()
	systems := slices.Clone(gt.systems)
	gt.systemsMutex.RUnlock()

	for _, system := range systems {
		gt.executeSystem(ctx, system, tick)
	}
}

// executeSystem выполняет одну систему с замером времени
func (gt *GameTicker) executeSystem(ctx context.Context, system TickSystem, tick TickInfo) {
	systemStart := time.Now()
	systemName := system.GetName()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Error().
				Str("system", systemName).
				Interface("panic", r).
				Msg("Критическая ошибка в системе")
			gt.perfMonitor.recordError(systemName)
		}
	}()

	err := system.Update(ctx, tick)

	gt.perfMonitor.recordExecution(systemName, time.Since(systemStart))

	if err != nil {
		gt.logger.Error().Err(err).Str("system", systemName).Uint64("tick", tick.Number).Msg("Ошибка в системе")
		gt.perfMonitor.recordError(systemName)
	}
}

// GetStats возвращает статистику игрового цикла
func (gt *GameTicker) GetStats() Stats {
	gt.mu.RLock()
	defer gt.mu.RUnlock()

	gt.systemsMutex.RLock()
	systemsCount := len(gt.systems)
	gt.systemsMutex.RUnlock()

	var uptime time.Duration
	var actualTPS float64
	if !gt.startTime.IsZero() {
		uptime = time.Since(gt.startTime)
		if uptime > 0 {
			actualTPS = float64(gt.tickCount) / uptime.Seconds()
		}
	}

	return Stats{
		TargetTPS:       gt.targetTPS,
		ActualTPS:       actualTPS,
		TickCount:       gt.tickCount,
		UptimeSeconds:   uptime.Seconds(),
		SimSeconds:      gt.simElapsed.Seconds(),
		AverageTickTime: gt.averageTickTime,
		MaxObservedTick: gt.maxObservedTick,
		SkippedTicks:    gt.skippedTicks,
		IsRunning:       gt.isRunning,
		IsPaused:        gt.isPaused,
		SystemsCount:    systemsCount,
	}
}

// GetSystemsStats возвращает метрики систем
func (gt *GameTicker) GetSystemsStats() map[string]SystemStats {
	return gt.perfMonitor.GetSystemsStats()
}

// GetTickCount возвращает текущее количество тиков
func (gt *GameTicker) GetTickCount() uint64 {
	gt.mu.RLock()
	defer gt.mu.RUnlock()
	return gt.tickCount
}

// Вспомогательные методы для мониторинга производительности
func (pm *PerformanceMonitor) initSystemMetrics(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.systemMetrics[systemName] = &SystemMetrics{
		Name:        systemName,
		recentTimes: make([]time.Duration, pm.metricsWindow),
	}
}

func (pm *PerformanceMonitor) recordExecution(systemName string, executionTime time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	metrics, exists := pm.systemMetrics[systemName]
	if !exists {
		return
	}

	metrics.LastExecutionTime = executionTime
	metrics.TotalExecutions++

	if executionTime > metrics.MaxTime {
		metrics.MaxTime = executionTime
	}

	// Добавляем в скользящее окно
	metrics.recentTimes[metrics.recentIndex] = executionTime
	metrics.recentIndex = (metrics.recentIndex + 1) % pm.metricsWindow

	if !metrics.windowFilled && metrics.recentIndex == 0 {
		metrics.windowFilled = true
	}

	pm.recalculateAverage(metrics)
}

func (pm *PerformanceMonitor) recordError(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if metrics, exists := pm.systemMetrics[systemName]; exists {
		metrics.Errors++
	}
}

func (pm *PerformanceMonitor) recalculateAverage(metrics *SystemMetrics) {
	limit := pm.metricsWindow
	if !metrics.windowFilled {
		limit = metrics.recentIndex
	}
	if limit == 0 {
		return
	}

	var total time.Duration
	for i := 0; i < limit; i++ {
		total += metrics.recentTimes[i]
	}
	metrics.AverageTime = total / time.Duration(limit)
}

// GetSystemsStats возвращает снимок метрик по всем системам
func (pm *PerformanceMonitor) GetSystemsStats() map[string]SystemStats {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	systemsStats := make(map[string]SystemStats, len(pm.systemMetrics))
	for name, metrics := range pm.systemMetrics {
		systemsStats[name] = SystemStats{
			LastExecutionTime: metrics.LastExecutionTime,
			AverageTime:       metrics.AverageTime,
			MaxTime:           metrics.MaxTime,
			TotalExecutions:   metrics.TotalExecutions,
			Errors:            metrics.Errors,
		}
	}
	return systemsStats
}

func (gt *GameTicker) updateTickMetrics(tickTime time.Duration) {
	gt.mu.Lock()
	defer gt.mu.Unlock()

	if tickTime > gt.maxObservedTick {
		gt.maxObservedTick = tickTime
	}

	// Простое скользящее среднее
	if gt.averageTickTime == 0 {
		gt.averageTickTime = tickTime
	} else {
		gt.averageTickTime = (gt.averageTickTime*9 + tickTime) / 10
	}
}

func (gt *GameTicker) checkPerformance(tickTime time.Duration) {
	if tickTime > gt.maxTickTime {
		gt.logger.Warn().
			Dur("tick_time", tickTime).
			Dur("max", gt.maxTickTime).
			Dur("target", gt.tickDuration).
			Msg("Тик превысил максимальное время")
	} else if tickTime > gt.warningThreshold {
		gt.logger.Debug().
			Dur("tick_time", tickTime).
			Dur("target", gt.tickDuration).
			Msg("Медленный тик")
	}
}
