package physics

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"marble-race/backend/internal/core/domain/entity"
)

// ErrBodyNotFound возвращается, когда движок не знает тело с таким ID
var ErrBodyNotFound = errors.New("тело не найдено")

// PhysicsPort определяет интерфейс для взаимодействия с физическим движком
type PhysicsPort interface {
	// CreateBody создает тело с коллайдером в симуляции
	CreateBody(ctx context.Context, desc entity.BodyDesc) error

	// RemoveBody удаляет тело из симуляции
	RemoveBody(ctx context.Context, id string) error

	// ApplyImpulse применяет импульс к центру масс тела
	ApplyImpulse(ctx context.Context, id string, impulse mgl64.Vec3) error

	// ApplyTorqueImpulse применяет вращательный импульс
	ApplyTorqueImpulse(ctx context.Context, id string, torque mgl64.Vec3) error

	// Translation возвращает текущую позицию тела
	Translation(ctx context.Context, id string) (mgl64.Vec3, error)

	// BodyState возвращает позицию, поворот и скорости тела
	BodyState(ctx context.Context, id string) (*BodyState, error)

	// SetTranslation телепортирует тело
	SetTranslation(ctx context.Context, id string, position mgl64.Vec3) error

	// SetLinvel задает линейную скорость
	SetLinvel(ctx context.Context, id string, velocity mgl64.Vec3) error

	// SetAngvel задает угловую скорость
	SetAngvel(ctx context.Context, id string, velocity mgl64.Vec3) error

	// SetNextKinematicTranslation задает позицию кинематического тела на следующий шаг
	SetNextKinematicTranslation(ctx context.Context, id string, position mgl64.Vec3) error

	// SetNextKinematicRotation задает поворот кинематического тела на следующий шаг
	SetNextKinematicRotation(ctx context.Context, id string, rotation mgl64.Quat) error

	// CastRay пускает луч. Промах - не ошибка: hit == nil.
	CastRay(ctx context.Context, ray Ray) (*RayHit, error)

	// Step продвигает симуляцию на delta секунд
	Step(ctx context.Context, delta float64) error

	// Close закрывает соединение с физическим движком
	Close() error
}

// Ray описывает запрос на пересечение луча с коллайдерами
type Ray struct {
	Origin      mgl64.Vec3
	Direction   mgl64.Vec3
	MaxDistance float64
	Solid       bool // Луч, начатый внутри коллайдера, попадает с toi = 0
}

// RayHit - результат попадания луча
type RayHit struct {
	BodyID       string
	TimeOfImpact float64
}

// BodyState представляет состояние тела в симуляции
type BodyState struct {
	ID              string
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
}
