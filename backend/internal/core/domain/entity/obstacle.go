package entity

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// ObstacleType - тип препятствия на трассе
type ObstacleType string

// Константы типов препятствий
const (
	ObstacleSpinner ObstacleType = "spinner" // Вращающаяся балка
	ObstacleLimbo   ObstacleType = "limbo"   // Балка, качающаяся вверх-вниз
	ObstacleAxe     ObstacleType = "axe"     // Стенка, качающаяся влево-вправо
)

// DefaultPalette - набор препятствий для генерации трассы по умолчанию
var DefaultPalette = []ObstacleType{ObstacleSpinner, ObstacleLimbo, ObstacleAxe}

// ParseObstacleType разбирает имя типа препятствия
func ParseObstacleType(s string) (ObstacleType, error) {
	switch t := ObstacleType(s); t {
	case ObstacleSpinner, ObstacleLimbo, ObstacleAxe:
		return t, nil
	default:
		return "", fmt.Errorf("неизвестный тип препятствия: %q", s)
	}
}

// ParsePalette разбирает список имен в палитру
func ParsePalette(names []string) ([]ObstacleType, error) {
	palette := make([]ObstacleType, 0, len(names))
	for _, name := range names {
		t, err := ParseObstacleType(name)
		if err != nil {
			return nil, err
		}
		palette = append(palette, t)
	}
	return palette, nil
}

// Параметры движения препятствий
const (
	obstacleLift = 0.3 // Высота тела препятствия над полом блока

	spinnerMinSpeed   = 0.2
	limboBaseHeight   = 1.15
	axeHeight         = 0.75
	axeTimeMultiplier = 1.25
)

var axisY = mgl64.Vec3{0, 1, 0}

// Pose - целевая поза кинематического тела на текущий тик
type Pose struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat

	// Какие компоненты позы задаются физическому движку
	DrivesTranslation bool
	DrivesRotation    bool
}

// Obstacle - экземпляр препятствия. Константа Speed (spinner) или
// PhaseOffset (limbo, axe) выбирается один раз при создании.
type Obstacle struct {
	ID          string
	Type        ObstacleType
	Anchor      mgl64.Vec3
	Speed       float64
	PhaseOffset float64
}

// NewObstacle создает препятствие и выбирает его константу движения из rng
func NewObstacle(id string, kind ObstacleType, anchor mgl64.Vec3, rng *rand.Rand) *Obstacle {
	o := &Obstacle{
		ID:     id,
		Type:   kind,
		Anchor: anchor,
	}

	switch kind {
	case ObstacleSpinner:
		speed := rng.Float64() + spinnerMinSpeed
		if rng.Float64() < 0.5 {
			speed = -speed
		}
		o.Speed = speed
	case ObstacleLimbo, ObstacleAxe:
		o.PhaseOffset = rng.Float64() * math.Pi * 2
	}

	return o
}

// BodyPosition возвращает исходную позицию тела препятствия
func (o *Obstacle) BodyPosition() mgl64.Vec3 {
	return o.Anchor.Add(mgl64.Vec3{0, obstacleLift, 0})
}

// PoseAt вычисляет позу препятствия в момент t (секунды с начала симуляции)
func (o *Obstacle) PoseAt(t float64) Pose {
	switch o.Type {
	case ObstacleSpinner:
		return Pose{
			Translation:    o.BodyPosition(),
			Rotation:       mgl64.QuatRotate(SpinnerAngle(t, o.Speed), axisY),
			DrivesRotation: true,
		}
	case ObstacleLimbo:
		return Pose{
			Translation:       mgl64.Vec3{o.Anchor.X(), o.Anchor.Y() + LimboHeight(t, o.PhaseOffset), o.Anchor.Z()},
			Rotation:          mgl64.QuatIdent(),
			DrivesTranslation: true,
		}
	case ObstacleAxe:
		return Pose{
			Translation:       mgl64.Vec3{o.Anchor.X() + AxeSwing(t, o.PhaseOffset), o.Anchor.Y() + axeHeight, o.Anchor.Z()},
			Rotation:          mgl64.QuatIdent(),
			DrivesTranslation: true,
		}
	default:
		return Pose{Translation: o.BodyPosition(), Rotation: mgl64.QuatIdent()}
	}
}

// SpinnerAngle - угол поворота вокруг вертикальной оси
func SpinnerAngle(t, speed float64) float64 {
	return t * speed
}

// LimboHeight - смещение балки по высоте
func LimboHeight(t, phaseOffset float64) float64 {
	return math.Sin(t+phaseOffset) + limboBaseHeight
}

// AxeSwing - поперечное смещение стенки
func AxeSwing(t, phaseOffset float64) float64 {
	return math.Sin(axeTimeMultiplier*t + phaseOffset)
}
