package entity

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// BlockDistance - длина одного блока трассы вдоль оси Z
const BlockDistance = 4.0

// BodyKind - способ управления телом в физическом движке
type BodyKind string

// Константы видов тел
const (
	BodyFixed     BodyKind = "fixed"
	BodyKinematic BodyKind = "kinematic_position"
	BodyDynamic   BodyKind = "dynamic"
)

// ShapeType - форма коллайдера
type ShapeType string

// Константы форм коллайдеров
const (
	ShapeBox  ShapeType = "box"
	ShapeBall ShapeType = "ball"
	ShapeHull ShapeType = "hull" // Выпуклая оболочка модели, строится движком
)

// Идентификаторы статичных тел трассы
const (
	PlayerBodyID     = "player"
	FinishBodyID     = "finish"
	FloorBodyID      = "bounds-floor"
	WallLeftBodyID   = "bounds-wall-left"
	WallRightBodyID  = "bounds-wall-right"
	WallBackBodyID   = "bounds-wall-back"
	finishModel      = "hamburger"
	finishModelScale = 0.2
)

// Общие материалы тел трассы
const (
	courseRestitution = 0.2
	courseFriction    = 0.0
)

// BodyDesc описывает тело для создания в физическом движке
type BodyDesc struct {
	ID       string     `json:"id"`
	Kind     BodyKind   `json:"kind"`
	Shape    ShapeType  `json:"shape"`
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Quat `json:"-"`

	Size   mgl64.Vec3 `json:"size,omitempty"`   // Полные размеры для box
	Radius float64    `json:"radius,omitempty"` // Для ball
	Model  string     `json:"model,omitempty"`  // Для hull
	Scale  float64    `json:"scale,omitempty"`  // Для hull

	Restitution    float64 `json:"restitution"`
	Friction       float64 `json:"friction"`
	LinearDamping  float64 `json:"linear_damping,omitempty"`
	AngularDamping float64 `json:"angular_damping,omitempty"`
	CanSleep       bool    `json:"can_sleep"`
}

// BlockKind - вид блока трассы (для клиента)
type BlockKind string

// Константы видов блоков
const (
	BlockStart BlockKind = "start"
	BlockTrap  BlockKind = "trap"
	BlockEnd   BlockKind = "end"
)

// Block - блок трассы: стартовый, с ловушкой или финишный
type Block struct {
	Kind     BlockKind    `json:"kind"`
	Trap     ObstacleType `json:"trap,omitempty"`
	Position mgl64.Vec3   `json:"position"`
}

// Level - сгенерированная трасса
type Level struct {
	Traps    []ObstacleType
	Distance float64
	Seed     float64
}

// NewLevel создает трассу со стандартной длиной блока
func NewLevel(traps []ObstacleType, seed float64) *Level {
	return &Level{
		Traps:    traps,
		Distance: BlockDistance,
		Seed:     seed,
	}
}

// NumOfTraps возвращает количество ловушек
func (l *Level) NumOfTraps() int {
	return len(l.Traps)
}

// SlotOffset возвращает координату Z ловушки с индексом i
func (l *Level) SlotOffset(i int) float64 {
	return -l.Distance * float64(i+1)
}

// EndOffset возвращает координату Z финишного блока
func (l *Level) EndOffset() float64 {
	return -l.Distance * float64(len(l.Traps)+1)
}

// BoundsLength возвращает длину ограждения в блоках: ловушки плюс старт и финиш
func (l *Level) BoundsLength() int {
	return len(l.Traps) + 2
}

// CourseLength возвращает полную длину трассы
func (l *Level) CourseLength() float64 {
	return l.Distance * float64(l.BoundsLength())
}

// FinishLine возвращает Z линии финиша: за последней ловушкой плюс margin
func FinishLine(numOfTraps int, margin float64) float64 {
	return -(float64(numOfTraps)*BlockDistance + margin)
}

// Blocks возвращает блоки трассы по порядку от старта
func (l *Level) Blocks() []Block {
	blocks := make([]Block, 0, len(l.Traps)+2)
	blocks = append(blocks, Block{Kind: BlockStart, Position: mgl64.Vec3{0, 0, 0}})

	for i, trap := range l.Traps {
		blocks = append(blocks, Block{
			Kind:     BlockTrap,
			Trap:     trap,
			Position: mgl64.Vec3{0, 0, l.SlotOffset(i)},
		})
	}

	blocks = append(blocks, Block{Kind: BlockEnd, Position: mgl64.Vec3{0, 0, l.EndOffset()}})
	return blocks
}

// Obstacles создает экземпляры препятствий для ловушек трассы
func (l *Level) Obstacles(rng *rand.Rand) []*Obstacle {
	obstacles := make([]*Obstacle, 0, len(l.Traps))
	for i, trap := range l.Traps {
		anchor := mgl64.Vec3{0, 0, l.SlotOffset(i)}
		obstacles = append(obstacles, NewObstacle(TrapBodyID(i), trap, anchor, rng))
	}
	return obstacles
}

// TrapBodyID возвращает идентификатор тела препятствия в слоте i
func TrapBodyID(i int) string {
	return fmt.Sprintf("trap-%d", i)
}

// StaticBodies возвращает неподвижные тела: пол, стены и финишную модель
func (l *Level) StaticBodies() []BodyDesc {
	length := float64(l.BoundsLength())
	half := l.Distance / 2
	centerZ := -length*half + half

	box := func(id string, pos, size mgl64.Vec3) BodyDesc {
		return BodyDesc{
			ID:          id,
			Kind:        BodyFixed,
			Shape:       ShapeBox,
			Position:    pos,
			Rotation:    mgl64.QuatIdent(),
			Size:        size,
			Restitution: courseRestitution,
			Friction:    courseFriction,
		}
	}

	return []BodyDesc{
		box(FloorBodyID, mgl64.Vec3{0, -0.1, centerZ}, mgl64.Vec3{l.Distance, 0.2, l.Distance * length}),
		box(WallRightBodyID, mgl64.Vec3{2.15, 0.75, centerZ}, mgl64.Vec3{0.3, 1.5, l.Distance * length}),
		box(WallLeftBodyID, mgl64.Vec3{-2.15, 0.75, centerZ}, mgl64.Vec3{0.3, 1.5, l.Distance * length}),
		box(WallBackBodyID, mgl64.Vec3{0, 0.75, -length*l.Distance + half}, mgl64.Vec3{l.Distance, 1.5, 0.3}),
		{
			ID:          FinishBodyID,
			Kind:        BodyFixed,
			Shape:       ShapeHull,
			Position:    mgl64.Vec3{0, 0.25, l.EndOffset()},
			Rotation:    mgl64.QuatIdent(),
			Model:       finishModel,
			Scale:       finishModelScale,
			Restitution: courseRestitution,
			Friction:    courseFriction,
		},
	}
}

// ObstacleBody возвращает описание кинематического тела препятствия
func ObstacleBody(o *Obstacle) BodyDesc {
	size := mgl64.Vec3{3.5, 0.3, 0.3}
	if o.Type == ObstacleAxe {
		size = mgl64.Vec3{1.5, 1.3, 0.3}
	}

	return BodyDesc{
		ID:          o.ID,
		Kind:        BodyKinematic,
		Shape:       ShapeBox,
		Position:    o.BodyPosition(),
		Rotation:    mgl64.QuatIdent(),
		Size:        size,
		Restitution: courseRestitution,
		Friction:    courseFriction,
	}
}

// PlayerBody возвращает описание шара игрока
func PlayerBody(spawn mgl64.Vec3, radius, restitution, friction, linearDamping, angularDamping float64) BodyDesc {
	return BodyDesc{
		ID:             PlayerBodyID,
		Kind:           BodyDynamic,
		Shape:          ShapeBall,
		Position:       spawn,
		Rotation:       mgl64.QuatIdent(),
		Radius:         radius,
		Restitution:    restitution,
		Friction:       friction,
		LinearDamping:  linearDamping,
		AngularDamping: angularDamping,
		CanSleep:       false,
	}
}
