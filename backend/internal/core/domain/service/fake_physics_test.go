package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"marble-race/backend/internal/core/domain/entity"
	"marble-race/backend/internal/core/port/out/physics"
)

// MockPhysics - физический движок в памяти: хранит тела и записывает вызовы.
// Step ничего не симулирует, позицию шара задает тест.
type MockPhysics struct {
	mu sync.Mutex

	Bodies   map[string]*physics.BodyState
	Descs    map[string]entity.BodyDesc
	Impulses []mgl64.Vec3
	Torques  []mgl64.Vec3
	Rays     []physics.Ray
	Steps    []float64
	Removed  []string

	KinematicTranslations map[string]mgl64.Vec3
	KinematicRotations    map[string]mgl64.Quat

	// RayHit возвращается из CastRay (nil = промах)
	RayHit *physics.RayHit
	// FailStep заставляет Step вернуть ошибку
	FailStep error
}

func NewMockPhysics() *MockPhysics {
	return &MockPhysics{
		Bodies:                make(map[string]*physics.BodyState),
		Descs:                 make(map[string]entity.BodyDesc),
		KinematicTranslations: make(map[string]mgl64.Vec3),
		KinematicRotations:    make(map[string]mgl64.Quat),
	}
}

func (m *MockPhysics) body(id string) (*physics.BodyState, error) {
	b, ok := m.Bodies[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, physics.ErrBodyNotFound)
	}
	return b, nil
}

func (m *MockPhysics) CreateBody(ctx context.Context, desc entity.BodyDesc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bodies[desc.ID] = &physics.BodyState{ID: desc.ID, Position: desc.Position, Rotation: desc.Rotation}
	m.Descs[desc.ID] = desc
	return nil
}

func (m *MockPhysics) RemoveBody(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.body(id); err != nil {
		return err
	}
	delete(m.Bodies, id)
	delete(m.Descs, id)
	m.Removed = append(m.Removed, id)
	return nil
}

func (m *MockPhysics) ApplyImpulse(ctx context.Context, id string, impulse mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Impulses = append(m.Impulses, impulse)
	return nil
}

func (m *MockPhysics) ApplyTorqueImpulse(ctx context.Context, id string, torque mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Torques = append(m.Torques, torque)
	return nil
}

func (m *MockPhysics) Translation(ctx context.Context, id string) (mgl64.Vec3, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.body(id)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return b.Position, nil
}

func (m *MockPhysics) BodyState(ctx context.Context, id string) (*physics.BodyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.body(id)
	if err != nil {
		return nil, err
	}
	state := *b
	return &state, nil
}

func (m *MockPhysics) SetTranslation(ctx context.Context, id string, position mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.body(id)
	if err != nil {
		return err
	}
	b.Position = position
	return nil
}

func (m *MockPhysics) SetLinvel(ctx context.Context, id string, velocity mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.body(id)
	if err != nil {
		return err
	}
	b.LinearVelocity = velocity
	return nil
}

func (m *MockPhysics) SetAngvel(ctx context.Context, id string, velocity mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.body(id)
	if err != nil {
		return err
	}
	b.AngularVelocity = velocity
	return nil
}

func (m *MockPhysics) SetNextKinematicTranslation(ctx context.Context, id string, position mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.KinematicTranslations[id] = position
	return nil
}

func (m *MockPhysics) SetNextKinematicRotation(ctx context.Context, id string, rotation mgl64.Quat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.KinematicRotations[id] = rotation
	return nil
}

func (m *MockPhysics) CastRay(ctx context.Context, ray physics.Ray) (*physics.RayHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rays = append(m.Rays, ray)
	if m.RayHit == nil {
		return nil, nil
	}
	hit := *m.RayHit
	return &hit, nil
}

func (m *MockPhysics) Step(ctx context.Context, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStep != nil {
		return m.FailStep
	}
	m.Steps = append(m.Steps, delta)
	// Кинематические тела переезжают в заданные позы
	for id, pos := range m.KinematicTranslations {
		if b, ok := m.Bodies[id]; ok {
			b.Position = pos
		}
	}
	for id, rot := range m.KinematicRotations {
		if b, ok := m.Bodies[id]; ok {
			b.Rotation = rot
		}
	}
	return nil
}

func (m *MockPhysics) Close() error {
	return nil
}

// MovePlayer ставит шар в позицию, как будто его туда принесла симуляция
func (m *MockPhysics) MovePlayer(z float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.Bodies[entity.PlayerBodyID]; ok {
		b.Position = mgl64.Vec3{0, 0.3, z}
	}
}

func (m *MockPhysics) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Impulses = nil
	m.Torques = nil
	m.Rays = nil
}
