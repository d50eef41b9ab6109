package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ServerConfig содержит настройки процесса: адреса, хранилище, частоту тиков
type ServerConfig struct {
	// HTTPAddr - адрес HTTP/WebSocket сервера
	HTTPAddr string

	// PhysicsAddr - адрес gRPC сервера физики
	PhysicsAddr string

	// PhysicsTimeout - таймаут одного вызова физического движка
	PhysicsTimeout time.Duration

	// DBPath - каталог badger для результатов заездов; пустая строка = хранение в памяти
	DBPath string

	// TargetTPS - целевая частота тиков симуляции
	TargetTPS int

	// BroadcastInterval - интервал рассылки состояния клиентам
	BroadcastInterval time.Duration

	// LogLevel - уровень логирования zerolog (debug, info, warn, error)
	LogLevel string

	// LogFormat - формат логов: console или json
	LogFormat string

	// AllowAnyOrigin - разрешать WebSocket соединения с любого Origin
	AllowAnyOrigin bool
}

// RaceConfig содержит настройки трассы
type RaceConfig struct {
	// NumOfTraps - количество ловушек между стартом и финишем
	NumOfTraps int

	// Palette - набор типов препятствий для случайного выбора
	Palette []string
}

// ControlConfig содержит настройки управления шаром
type ControlConfig struct {
	ImpulseStrength float64 // Импульс движения в секунду
	TorqueStrength  float64 // Крутящий импульс в секунду
	JumpImpulse     float64 // Вертикальный импульс прыжка

	JumpRayOffset  float64 // Смещение начала луча вниз от центра шара
	JumpMaxTOI     float64 // Порог времени удара луча для прыжка
	RayMaxDistance float64 // Максимальная длина луча

	StartLineZ   float64 // Позиция линии старта (выезд назад = рестарт)
	FinishMargin float64 // Запас за последним блоком до линии финиша

	Spawn mgl64.Vec3 // Точка появления шара
}

// CameraConfig содержит настройки следящей камеры
type CameraConfig struct {
	PositionOffset  mgl64.Vec3
	TargetOffset    mgl64.Vec3
	InitialPosition mgl64.Vec3
	SmoothingRate   float64
}

// BodyConfig содержит физические характеристики шара игрока
type BodyConfig struct {
	Radius         float64
	Restitution    float64
	Friction       float64
	LinearDamping  float64
	AngularDamping float64
}

// Config объединяет все конфигурации
type Config struct {
	Server  ServerConfig
	Race    RaceConfig
	Control ControlConfig
	Camera  CameraConfig
	Body    BodyConfig
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:          ":8080",
			PhysicsAddr:       "localhost:50051",
			PhysicsTimeout:    200 * time.Millisecond,
			DBPath:            "./data/results",
			TargetTPS:         60,
			BroadcastInterval: 50 * time.Millisecond, // 20 раз в секунду
			LogLevel:          "info",
			LogFormat:         "console",
			AllowAnyOrigin:    true,
		},
		Race: RaceConfig{
			NumOfTraps: 10,
			Palette:    []string{"spinner", "limbo", "axe"},
		},
		Control: ControlConfig{
			ImpulseStrength: 0.6,
			TorqueStrength:  0.1,
			JumpImpulse:     0.5,
			JumpRayOffset:   0.31, // низ шара радиусом 0.3 плюс зазор
			JumpMaxTOI:      0.15,
			RayMaxDistance:  10,
			StartLineZ:      4,
			FinishMargin:    2,
			Spawn:           mgl64.Vec3{0, 1, 0},
		},
		Camera: CameraConfig{
			PositionOffset:  mgl64.Vec3{0, 0.65, 2.25},
			TargetOffset:    mgl64.Vec3{0, 0.25, 0},
			InitialPosition: mgl64.Vec3{10, 10, 10},
			SmoothingRate:   5,
		},
		Body: BodyConfig{
			Radius:         0.3,
			Restitution:    0.2,
			Friction:       0,
			LinearDamping:  0.5,
			AngularDamping: 0.5,
		},
	}
}

// Load возвращает конфигурацию по умолчанию, переопределенную переменными окружения MARBLE_*
func Load() (Config, error) {
	cfg := Default()

	if v := os.Getenv("MARBLE_HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("MARBLE_PHYSICS_ADDR"); v != "" {
		cfg.Server.PhysicsAddr = v
	}
	if v, ok := os.LookupEnv("MARBLE_DB_PATH"); ok {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("MARBLE_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("MARBLE_LOG_FORMAT"); v != "" {
		cfg.Server.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("MARBLE_ALLOW_ANY_ORIGIN"); v == "false" {
		cfg.Server.AllowAnyOrigin = false
	}

	if v := os.Getenv("MARBLE_TPS"); v != "" {
		tps, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("MARBLE_TPS: %w", err)
		}
		cfg.Server.TargetTPS = tps
	}
	if v := os.Getenv("MARBLE_PHYSICS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("MARBLE_PHYSICS_TIMEOUT: %w", err)
		}
		cfg.Server.PhysicsTimeout = d
	}
	if v := os.Getenv("MARBLE_BROADCAST_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("MARBLE_BROADCAST_INTERVAL: %w", err)
		}
		cfg.Server.BroadcastInterval = d
	}
	if v := os.Getenv("MARBLE_TRAPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("MARBLE_TRAPS: %w", err)
		}
		cfg.Race.NumOfTraps = n
	}
	if v := os.Getenv("MARBLE_PALETTE"); v != "" {
		cfg.Race.Palette = splitList(v)
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность конфигурации
func (c Config) Validate() error {
	var errs []error

	if c.Server.TargetTPS <= 0 {
		errs = append(errs, fmt.Errorf("target TPS должен быть положительным, получено %d", c.Server.TargetTPS))
	}
	if c.Server.PhysicsTimeout <= 0 {
		errs = append(errs, errors.New("physics timeout должен быть положительным"))
	}
	if c.Race.NumOfTraps <= 0 {
		errs = append(errs, fmt.Errorf("количество ловушек должно быть положительным, получено %d", c.Race.NumOfTraps))
	}
	if len(c.Race.Palette) == 0 {
		errs = append(errs, errors.New("палитра препятствий пуста"))
	}
	switch c.Server.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("неизвестный формат логов %q", c.Server.LogFormat))
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
