package physics

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"marble-race/backend/internal/core/domain/entity"
	portPhysics "marble-race/backend/internal/core/port/out/physics"
	"marble-race/backend/internal/physics"
)

// fakeEngine - сервер физики в памяти: хранит тела и их состояния
type fakeEngine struct {
	mu      sync.Mutex
	bodies  map[string]*physics.BodyStateResponse
	created map[string]physics.Body
	impulse physics.Vec3
	kinRot  physics.Quat
	steps   []float64
	rayHit  *physics.CastRayResponse
	lastRay *physics.CastRayRequest
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		bodies:  make(map[string]*physics.BodyStateResponse),
		created: make(map[string]physics.Body),
	}
}

func (e *fakeEngine) get(id string) (*physics.BodyStateResponse, error) {
	b, ok := e.bodies[id]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "тело %s не найдено", id)
	}
	return b, nil
}

var statusOK = &physics.StatusResponse{Status: physics.StatusOK}

func (e *fakeEngine) CreateBody(ctx context.Context, req *physics.CreateBodyRequest) (*physics.StatusResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created[req.Body.ID] = req.Body
	e.bodies[req.Body.ID] = &physics.BodyStateResponse{ID: req.Body.ID, Position: req.Body.Position, Rotation: req.Body.Rotation}
	return statusOK, nil
}

func (e *fakeEngine) RemoveBody(ctx context.Context, req *physics.BodyRequest) (*physics.StatusResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.get(req.ID); err != nil {
		return nil, err
	}
	delete(e.bodies, req.ID)
	return statusOK, nil
}

func (e *fakeEngine) ApplyImpulse(ctx context.Context, req *physics.VectorRequest) (*physics.StatusResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.get(req.ID)
	if err != nil {
		return nil, err
	}
	e.impulse = req.Vector
	for i := range b.LinearVelocity {
		b.LinearVelocity[i] += req.Vector[i]
	}
	return statusOK, nil
}

func (e *fakeEngine) ApplyTorqueImpulse(ctx context.Context, req *physics.VectorRequest) (*physics.StatusResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.get(req.ID); err != nil {
		return nil, err
	}
	return statusOK, nil
}

func (e *fakeEngine) Translation(ctx context.Context, req *physics.BodyRequest) (*physics.TranslationResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.get(req.ID)
	if err != nil {
		return nil, err
	}
	return &physics.TranslationResponse{Position: b.Position}, nil
}

func (e *fakeEngine) BodyState(ctx context.Context, req *physics.BodyRequest) (*physics.BodyStateResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.get(req.ID)
	if err != nil {
		return nil, err
	}
	state := *b
	return &state, nil
}

func (e *fakeEngine) setVector(req *physics.VectorRequest, apply func(*physics.BodyStateResponse)) (*physics.StatusResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.get(req.ID)
	if err != nil {
		return nil, err
	}
	apply(b)
	return statusOK, nil
}

func (e *fakeEngine) SetTranslation(ctx context.Context, req *physics.VectorRequest) (*physics.StatusResponse, error) {
	return e.setVector(req, func(b *physics.BodyStateResponse) { b.Position = req.Vector })
}

func (e *fakeEngine) SetLinvel(ctx context.Context, req *physics.VectorRequest) (*physics.StatusResponse, error) {
	return e.setVector(req, func(b *physics.BodyStateResponse) { b.LinearVelocity = req.Vector })
}

func (e *fakeEngine) SetAngvel(ctx context.Context, req *physics.VectorRequest) (*physics.StatusResponse, error) {
	return e.setVector(req, func(b *physics.BodyStateResponse) { b.AngularVelocity = req.Vector })
}

func (e *fakeEngine) SetNextKinematicTranslation(ctx context.Context, req *physics.VectorRequest) (*physics.StatusResponse, error) {
	return e.setVector(req, func(b *physics.BodyStateResponse) { b.Position = req.Vector })
}

func (e *fakeEngine) SetNextKinematicRotation(ctx context.Context, req *physics.RotationRequest) (*physics.StatusResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.get(req.ID)
	if err != nil {
		return nil, err
	}
	b.Rotation = req.Rotation
	e.kinRot = req.Rotation
	return statusOK, nil
}

func (e *fakeEngine) CastRay(ctx context.Context, req *physics.CastRayRequest) (*physics.CastRayResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRay = req
	if e.rayHit == nil {
		return &physics.CastRayResponse{}, nil
	}
	return e.rayHit, nil
}

func (e *fakeEngine) Step(ctx context.Context, req *physics.StepRequest) (*physics.StatusResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if req.Delta <= 0 {
		return nil, status.Error(codes.InvalidArgument, "delta должна быть положительной")
	}
	e.steps = append(e.steps, req.Delta)
	return statusOK, nil
}

func newTestAdapter(t *testing.T) (*GRPCPhysicsAdapter, *fakeEngine) {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ForceServerCodec(physics.Codec{}))
	engine := newFakeEngine()
	physics.RegisterPhysicsServer(server, engine)

	go server.Serve(listener)
	t.Cleanup(server.Stop)

	adapter, err := NewGRPCPhysicsAdapter("passthrough:///bufnet", time.Second, zerolog.New(io.Discard),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("Не удалось создать адаптер: %v", err)
	}
	t.Cleanup(func() { adapter.Close() })

	return adapter, engine
}

func TestGRPCPhysicsAdapter_BodyLifecycle(t *testing.T) {
	adapter, engine := newTestAdapter(t)
	ctx := context.Background()

	desc := entity.PlayerBody(mgl64.Vec3{0, 1, 0}, 0.3, 0.2, 0, 0.5, 0.5)
	if err := adapter.CreateBody(ctx, desc); err != nil {
		t.Fatalf("Ошибка создания тела: %v", err)
	}

	wire := engine.created[entity.PlayerBodyID]
	if wire.Shape != "ball" || wire.Kind != "dynamic" || wire.Radius != 0.3 || wire.CanSleep {
		t.Errorf("Неверное тело на сервере: %+v", wire)
	}
	if wire.Rotation != (physics.Quat{0, 0, 0, 1}) {
		t.Errorf("Ожидали единичный кватернион, получили %v", wire.Rotation)
	}

	pos, err := adapter.Translation(ctx, entity.PlayerBodyID)
	if err != nil || pos != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("Неверная позиция: %v, %v", pos, err)
	}

	if err := adapter.ApplyImpulse(ctx, entity.PlayerBodyID, mgl64.Vec3{0, 0, -0.01}); err != nil {
		t.Fatalf("Ошибка импульса: %v", err)
	}
	if err := adapter.SetAngvel(ctx, entity.PlayerBodyID, mgl64.Vec3{1, 2, 3}); err != nil {
		t.Fatalf("Ошибка угловой скорости: %v", err)
	}

	state, err := adapter.BodyState(ctx, entity.PlayerBodyID)
	if err != nil {
		t.Fatalf("Ошибка состояния: %v", err)
	}
	if state.LinearVelocity != (mgl64.Vec3{0, 0, -0.01}) || state.AngularVelocity != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("Неверные скорости: %+v", state)
	}
	if state.Rotation != mgl64.QuatIdent() {
		t.Errorf("Неверный поворот: %v", state.Rotation)
	}

	if err := adapter.RemoveBody(ctx, entity.PlayerBodyID); err != nil {
		t.Fatalf("Ошибка удаления: %v", err)
	}
	if _, err := adapter.Translation(ctx, entity.PlayerBodyID); !errors.Is(err, portPhysics.ErrBodyNotFound) {
		t.Errorf("Ожидали ErrBodyNotFound, получили %v", err)
	}
}

func TestGRPCPhysicsAdapter_BoxHalfExtents(t *testing.T) {
	adapter, engine := newTestAdapter(t)

	level := entity.NewLevel([]entity.ObstacleType{entity.ObstacleAxe}, 0)
	obstacle := &entity.Obstacle{ID: "trap-0", Type: entity.ObstacleAxe, Anchor: mgl64.Vec3{0, 0, level.SlotOffset(0)}}

	if err := adapter.CreateBody(context.Background(), entity.ObstacleBody(obstacle)); err != nil {
		t.Fatalf("Ошибка создания препятствия: %v", err)
	}
	if got := engine.created["trap-0"].HalfExtents; got != (physics.Vec3{0.75, 0.65, 0.15}) {
		t.Errorf("Ожидали полуразмеры (0.75, 0.65, 0.15), получили %v", got)
	}
}

func TestGRPCPhysicsAdapter_Kinematics(t *testing.T) {
	adapter, engine := newTestAdapter(t)
	ctx := context.Background()

	spinner := &entity.Obstacle{ID: "trap-0", Type: entity.ObstacleSpinner, Speed: 0.5}
	adapter.CreateBody(ctx, entity.ObstacleBody(spinner))

	rotation := spinner.PoseAt(2).Rotation
	if err := adapter.SetNextKinematicRotation(ctx, "trap-0", rotation); err != nil {
		t.Fatalf("Ошибка вращения: %v", err)
	}
	want := physics.Quat{rotation.X(), rotation.Y(), rotation.Z(), rotation.W}
	if engine.kinRot != want {
		t.Errorf("Ожидали %v, получили %v", want, engine.kinRot)
	}

	state, _ := adapter.BodyState(ctx, "trap-0")
	if !state.Rotation.ApproxEqual(rotation) {
		t.Errorf("Поворот не прошел туда и обратно: %v", state.Rotation)
	}

	if err := adapter.SetNextKinematicTranslation(ctx, "missing", mgl64.Vec3{}); !errors.Is(err, portPhysics.ErrBodyNotFound) {
		t.Errorf("Ожидали ErrBodyNotFound, получили %v", err)
	}
}

func TestGRPCPhysicsAdapter_CastRay(t *testing.T) {
	adapter, engine := newTestAdapter(t)
	ctx := context.Background()

	ray := portPhysics.Ray{Origin: mgl64.Vec3{0, 0.69, 0}, Direction: mgl64.Vec3{0, -1, 0}, MaxDistance: 10, Solid: true}

	hit, err := adapter.CastRay(ctx, ray)
	if err != nil || hit != nil {
		t.Errorf("Промах должен вернуть nil без ошибки: %v, %v", hit, err)
	}
	if engine.lastRay == nil || !engine.lastRay.Solid || engine.lastRay.MaxDistance != 10 {
		t.Errorf("Неверный луч на сервере: %+v", engine.lastRay)
	}

	engine.rayHit = &physics.CastRayResponse{Hit: true, BodyID: entity.FloorBodyID, TimeOfImpact: 0.1}
	hit, err = adapter.CastRay(ctx, ray)
	if err != nil || hit == nil || hit.BodyID != entity.FloorBodyID || hit.TimeOfImpact != 0.1 {
		t.Errorf("Неверное попадание: %+v, %v", hit, err)
	}
}

func TestGRPCPhysicsAdapter_Step(t *testing.T) {
	adapter, engine := newTestAdapter(t)
	ctx := context.Background()

	if err := adapter.Step(ctx, 1.0/60); err != nil {
		t.Fatalf("Ошибка шага: %v", err)
	}
	if len(engine.steps) != 1 || engine.steps[0] != 1.0/60 {
		t.Errorf("Неверные шаги на сервере: %v", engine.steps)
	}

	err := adapter.Step(ctx, 0)
	if status.Code(errors.Unwrap(err)) != codes.InvalidArgument {
		t.Errorf("Ожидали InvalidArgument, получили %v", err)
	}
}
