package physics

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"marble-race/backend/internal/core/domain/entity"
	portPhysics "marble-race/backend/internal/core/port/out/physics"
	"marble-race/backend/internal/physics"
)

// GRPCPhysicsAdapter адаптер для взаимодействия с физическим сервером через gRPC
type GRPCPhysicsAdapter struct {
	client  *physics.PhysicsClient
	conn    *grpc.ClientConn
	timeout time.Duration
	logger  zerolog.Logger
}

var _ portPhysics.PhysicsPort = (*GRPCPhysicsAdapter)(nil)

// NewGRPCPhysicsAdapter создает адаптер. Соединение устанавливается лениво,
// при первом вызове. timeout ограничивает каждый вызов (0 - без ограничения).
func NewGRPCPhysicsAdapter(address string, timeout time.Duration, logger zerolog.Logger, opts ...grpc.DialOption) (*GRPCPhysicsAdapter, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к серверу физики: %w", err)
	}

	logger.Info().Str("address", address).Msg("Клиент сервера физики создан")

	return &GRPCPhysicsAdapter{
		client:  physics.NewPhysicsClient(conn),
		conn:    conn,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (a *GRPCPhysicsAdapter) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

// wrapError переводит статус NotFound в ErrBodyNotFound
func wrapError(op, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %s: %w", op, id, portPhysics.ErrBodyNotFound)
	}
	return fmt.Errorf("ошибка %s через gRPC (%s): %w", op, id, err)
}

// CreateBody создает тело в физической симуляции
func (a *GRPCPhysicsAdapter) CreateBody(ctx context.Context, desc entity.BodyDesc) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if _, err := a.client.CreateBody(ctx, &physics.CreateBodyRequest{Body: toWireBody(desc)}); err != nil {
		return wrapError("создания тела", desc.ID, err)
	}
	return nil
}

// RemoveBody удаляет тело из симуляции
func (a *GRPCPhysicsAdapter) RemoveBody(ctx context.Context, id string) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if _, err := a.client.RemoveBody(ctx, &physics.BodyRequest{ID: id}); err != nil {
		return wrapError("удаления тела", id, err)
	}
	return nil
}

// ApplyImpulse применяет импульс к объекту
func (a *GRPCPhysicsAdapter) ApplyImpulse(ctx context.Context, id string, impulse mgl64.Vec3) error {
	return a.sendVector(ctx, a.client.ApplyImpulse, "применения импульса", id, impulse)
}

// ApplyTorqueImpulse применяет крутящий импульс к объекту
func (a *GRPCPhysicsAdapter) ApplyTorqueImpulse(ctx context.Context, id string, torque mgl64.Vec3) error {
	return a.sendVector(ctx, a.client.ApplyTorqueImpulse, "применения крутящего импульса", id, torque)
}

// SetTranslation телепортирует тело
func (a *GRPCPhysicsAdapter) SetTranslation(ctx context.Context, id string, position mgl64.Vec3) error {
	return a.sendVector(ctx, a.client.SetTranslation, "установки позиции", id, position)
}

// SetLinvel задает линейную скорость
func (a *GRPCPhysicsAdapter) SetLinvel(ctx context.Context, id string, velocity mgl64.Vec3) error {
	return a.sendVector(ctx, a.client.SetLinvel, "установки скорости", id, velocity)
}

// SetAngvel задает угловую скорость
func (a *GRPCPhysicsAdapter) SetAngvel(ctx context.Context, id string, velocity mgl64.Vec3) error {
	return a.sendVector(ctx, a.client.SetAngvel, "установки угловой скорости", id, velocity)
}

// SetNextKinematicTranslation задает позицию кинематического тела
func (a *GRPCPhysicsAdapter) SetNextKinematicTranslation(ctx context.Context, id string, position mgl64.Vec3) error {
	return a.sendVector(ctx, a.client.SetNextKinematicTranslation, "движения кинематического тела", id, position)
}

type vectorCall func(context.Context, *physics.VectorRequest) (*physics.StatusResponse, error)

func (a *GRPCPhysicsAdapter) sendVector(ctx context.Context, call vectorCall, op, id string, v mgl64.Vec3) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if _, err := call(ctx, &physics.VectorRequest{ID: id, Vector: toWireVec(v)}); err != nil {
		return wrapError(op, id, err)
	}
	return nil
}

// SetNextKinematicRotation задает поворот кинематического тела
func (a *GRPCPhysicsAdapter) SetNextKinematicRotation(ctx context.Context, id string, rotation mgl64.Quat) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	req := &physics.RotationRequest{ID: id, Rotation: toWireQuat(rotation)}
	if _, err := a.client.SetNextKinematicRotation(ctx, req); err != nil {
		return wrapError("вращения кинематического тела", id, err)
	}
	return nil
}

// Translation получает позицию тела
func (a *GRPCPhysicsAdapter) Translation(ctx context.Context, id string) (mgl64.Vec3, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	resp, err := a.client.Translation(ctx, &physics.BodyRequest{ID: id})
	if err != nil {
		return mgl64.Vec3{}, wrapError("получения позиции", id, err)
	}
	return fromWireVec(resp.Position), nil
}

// BodyState получает состояние тела
func (a *GRPCPhysicsAdapter) BodyState(ctx context.Context, id string) (*portPhysics.BodyState, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	resp, err := a.client.BodyState(ctx, &physics.BodyRequest{ID: id})
	if err != nil {
		return nil, wrapError("получения состояния", id, err)
	}

	return &portPhysics.BodyState{
		ID:              id,
		Position:        fromWireVec(resp.Position),
		Rotation:        fromWireQuat(resp.Rotation),
		LinearVelocity:  fromWireVec(resp.LinearVelocity),
		AngularVelocity: fromWireVec(resp.AngularVelocity),
	}, nil
}

// CastRay пускает луч; промах возвращается как nil без ошибки
func (a *GRPCPhysicsAdapter) CastRay(ctx context.Context, ray portPhysics.Ray) (*portPhysics.RayHit, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	resp, err := a.client.CastRay(ctx, &physics.CastRayRequest{
		Origin:      toWireVec(ray.Origin),
		Direction:   toWireVec(ray.Direction),
		MaxDistance: ray.MaxDistance,
		Solid:       ray.Solid,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка луча через gRPC: %w", err)
	}

	if !resp.Hit {
		return nil, nil
	}
	return &portPhysics.RayHit{BodyID: resp.BodyID, TimeOfImpact: resp.TimeOfImpact}, nil
}

// Step продвигает симуляцию
func (a *GRPCPhysicsAdapter) Step(ctx context.Context, delta float64) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if _, err := a.client.Step(ctx, &physics.StepRequest{Delta: delta}); err != nil {
		return fmt.Errorf("ошибка шага симуляции через gRPC: %w", err)
	}
	return nil
}

// Close закрывает соединение с физическим сервером
func (a *GRPCPhysicsAdapter) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}

func toWireVec(v mgl64.Vec3) physics.Vec3 {
	return physics.Vec3(v)
}

func fromWireVec(v physics.Vec3) mgl64.Vec3 {
	return mgl64.Vec3(v)
}

func toWireQuat(q mgl64.Quat) physics.Quat {
	return physics.Quat{q.X(), q.Y(), q.Z(), q.W}
}

func fromWireQuat(q physics.Quat) mgl64.Quat {
	// Нулевой кватернион от сервера без поворота считаем единичным
	if q == (physics.Quat{}) {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: q[3], V: mgl64.Vec3{q[0], q[1], q[2]}}
}

// toWireBody переводит описание тела в сообщение. Движок принимает
// полуразмеры коробок, а домен хранит полные размеры.
func toWireBody(desc entity.BodyDesc) physics.Body {
	rotation := desc.Rotation
	if rotation == (mgl64.Quat{}) {
		rotation = mgl64.QuatIdent()
	}

	return physics.Body{
		ID:             desc.ID,
		Kind:           string(desc.Kind),
		Shape:          string(desc.Shape),
		Position:       toWireVec(desc.Position),
		Rotation:       toWireQuat(rotation),
		HalfExtents:    toWireVec(desc.Size.Mul(0.5)),
		Radius:         desc.Radius,
		Model:          desc.Model,
		Scale:          desc.Scale,
		Restitution:    desc.Restitution,
		Friction:       desc.Friction,
		LinearDamping:  desc.LinearDamping,
		AngularDamping: desc.AngularDamping,
		CanSleep:       desc.CanSleep,
	}
}
