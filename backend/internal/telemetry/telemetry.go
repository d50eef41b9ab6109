package telemetry

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// Sample - телеметрия шара игрока за один тик
type Sample struct {
	Timestamp      int64      `json:"timestamp"` // Время в миллисекундах
	Tick           uint64     `json:"tick"`
	Phase          string     `json:"phase"`
	Position       mgl64.Vec3 `json:"position"`
	Velocity       mgl64.Vec3 `json:"velocity"`
	Speed          float64    `json:"speed"` // Модуль скорости
	AppliedImpulse mgl64.Vec3 `json:"applied_impulse"`
	AppliedTorque  mgl64.Vec3 `json:"applied_torque"`
	Jumped         bool       `json:"jumped"`
}

// Summary - сводка для /api/stats
type Summary struct {
	Samples  int            `json:"samples"`
	Counters map[string]int `json:"counters"`
	Last     *Sample        `json:"last,omitempty"`
	MaxSpeed float64        `json:"max_speed"`
}

// TelemetryManager хранит последние сэмплы в кольцевом буфере и считает события
type TelemetryManager struct {
	enabled bool
	data    []Sample
	next    int
	full    bool
	mutex   sync.RWMutex
	logger  zerolog.Logger

	// Счетчики для статистики
	counters      map[string]int
	lastPrint     time.Time
	printInterval time.Duration
}

// NewTelemetryManager создает менеджер с буфером на maxEntries сэмплов
func NewTelemetryManager(maxEntries int, logger zerolog.Logger) *TelemetryManager {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &TelemetryManager{
		enabled:       true,
		data:          make([]Sample, maxEntries),
		logger:        logger,
		counters:      make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 2 * time.Second,
	}
}

// Record записывает сэмпл тика
func (tm *TelemetryManager) Record(sample Sample) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	if sample.Timestamp == 0 {
		sample.Timestamp = time.Now().UnixMilli()
	}
	sample.Speed = sample.Velocity.Len()

	tm.data[tm.next] = sample
	tm.next = (tm.next + 1) % len(tm.data)
	if tm.next == 0 {
		tm.full = true
	}

	tm.counters["samples"]++
	if sample.AppliedImpulse != (mgl64.Vec3{}) {
		tm.counters["impulses"]++
	}
	if sample.Jumped {
		tm.counters["jumps"]++
	}
}

// Count увеличивает именованный счетчик (финиши, рестарты, ошибки тиков)
func (tm *TelemetryManager) Count(name string) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if tm.enabled {
		tm.counters[name]++
	}
}

// Samples возвращает сэмплы от старых к новым
func (tm *TelemetryManager) Samples() []Sample {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	return tm.samplesLocked()
}

func (tm *TelemetryManager) samplesLocked() []Sample {
	if !tm.full {
		out := make([]Sample, tm.next)
		copy(out, tm.data[:tm.next])
		return out
	}

	out := make([]Sample, 0, len(tm.data))
	out = append(out, tm.data[tm.next:]...)
	out = append(out, tm.data[:tm.next]...)
	return out
}

// Summary возвращает сводку по буферу и счетчикам
func (tm *TelemetryManager) Summary() Summary {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	samples := tm.samplesLocked()
	summary := Summary{
		Samples:  len(samples),
		Counters: make(map[string]int, len(tm.counters)),
	}
	for k, v := range tm.counters {
		summary.Counters[k] = v
	}
	for _, s := range samples {
		if s.Speed > summary.MaxSpeed {
			summary.MaxSpeed = s.Speed
		}
	}
	if len(samples) > 0 {
		last := samples[len(samples)-1]
		summary.Last = &last
	}

	return summary
}

// PrintSummary выводит сводку телеметрии не чаще printInterval
func (tm *TelemetryManager) PrintSummary() {
	now := time.Now()

	tm.mutex.Lock()
	if !tm.enabled || now.Sub(tm.lastPrint) < tm.printInterval {
		tm.mutex.Unlock()
		return
	}
	tm.lastPrint = now
	tm.mutex.Unlock()

	summary := tm.Summary()
	event := tm.logger.Info().Int("samples", summary.Samples).Float64("max_speed", summary.MaxSpeed)
	for key, count := range summary.Counters {
		event = event.Int(key, count)
	}
	if summary.Last != nil {
		event = event.
			Str("phase", summary.Last.Phase).
			Floats64("position", summary.Last.Position[:])
	}
	event.Msg("🔬 Телеметрия")
}

// SetEnabled включает/выключает телеметрию
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Info().Bool("enabled", enabled).Msg("🔬 Переключение телеметрии")
}

// Clear очищает все данные телеметрии
func (tm *TelemetryManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = make([]Sample, len(tm.data))
	tm.next = 0
	tm.full = false
	tm.counters = make(map[string]int)
}
