package service

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"marble-race/backend/internal/config"
	"marble-race/backend/internal/core/domain/entity"
	"marble-race/backend/internal/core/port/out/physics"
)

var (
	down = mgl64.Vec3{0, -1, 0}
	zero = mgl64.Vec3{}
)

// Forces - импульсы, приложенные к шару за тик
type Forces struct {
	Impulse mgl64.Vec3
	Torque  mgl64.Vec3
	Jumped  bool
}

// PlayerController переводит ввод в импульсы шара, следит за линиями
// старта и финиша и возвращает шар на старт при входе в ready.
//
// Вызывается только из горутины игрового цикла.
type PlayerController struct {
	physics physics.PhysicsPort
	race    *entity.RaceState
	camera  *CameraRig
	cfg     config.ControlConfig
	logger  zerolog.Logger

	prevInput    entity.InputState
	pendingReset bool
	position     mgl64.Vec3
	rotation     mgl64.Quat
	velocity     mgl64.Vec3
	lastForces   Forces
	unsubscribe  func()
}

// NewPlayerController создает контроллер и подписывает его на смену стадий заезда
func NewPlayerController(
	physicsPort physics.PhysicsPort,
	race *entity.RaceState,
	camera *CameraRig,
	cfg config.ControlConfig,
	logger zerolog.Logger,
) *PlayerController {
	c := &PlayerController{
		physics:  physicsPort,
		race:     race,
		camera:   camera,
		cfg:      cfg,
		logger:   logger,
		position: cfg.Spawn,
		rotation: mgl64.QuatIdent(),
	}

	c.unsubscribe = race.Subscribe(func(prev, next entity.Phase) {
		if next == entity.PhaseReady {
			c.pendingReset = true
		}
	})

	return c
}

// ComputeForces возвращает импульс и крутящий импульс для нажатых клавиш
func ComputeForces(input entity.InputState, cfg config.ControlConfig, delta float64) (impulse, torque mgl64.Vec3) {
	impulseStrength := cfg.ImpulseStrength * delta
	torqueStrength := cfg.TorqueStrength * delta

	if input.Forward {
		impulse[2] -= impulseStrength
		torque[0] -= torqueStrength
	}
	if input.Rightward {
		impulse[0] += impulseStrength
		torque[2] -= torqueStrength
	}
	if input.Backward {
		impulse[2] += impulseStrength
		torque[0] += torqueStrength
	}
	if input.Leftward {
		impulse[0] -= impulseStrength
		torque[2] += torqueStrength
	}

	return impulse, torque
}

// ApplyInput обрабатывает ввод тика: любая смена клавиш запускает заезд,
// нажатие прыжка пускает луч вниз, нажатые направления дают импульсы.
func (c *PlayerController) ApplyInput(ctx context.Context, input entity.InputState, delta float64) error {
	return c.ApplyInputWithEdges(ctx, input, entity.InputEdges{}, delta)
}

// ApplyInputWithEdges как ApplyInput, но добавляет события, накопленные
// между тиками: нажатие и отпускание внутри одного тика не теряются.
func (c *PlayerController) ApplyInputWithEdges(ctx context.Context, input entity.InputState, pending entity.InputEdges, delta float64) error {
	edges := entity.DetectEdges(c.prevInput, input).Merge(pending)
	c.prevInput = input
	c.lastForces = Forces{}

	if edges.Changed && c.race.Start() {
		c.logger.Info().Msg("Заезд начат")
	}

	if edges.JumpPressed {
		jumped, err := c.jump(ctx)
		if err != nil {
			return err
		}
		c.lastForces.Jumped = jumped
	}

	impulse, torque := ComputeForces(input, c.cfg, delta)
	c.lastForces.Impulse = impulse
	c.lastForces.Torque = torque

	if impulse != zero {
		if err := c.physics.ApplyImpulse(ctx, entity.PlayerBodyID, impulse); err != nil {
			return fmt.Errorf("ошибка при применении импульса: %w", err)
		}
	}
	if torque != zero {
		if err := c.physics.ApplyTorqueImpulse(ctx, entity.PlayerBodyID, torque); err != nil {
			return fmt.Errorf("ошибка при применении крутящего импульса: %w", err)
		}
	}

	return nil
}

// jump прыгает, только если под шаром есть опора
func (c *PlayerController) jump(ctx context.Context) (bool, error) {
	position, err := c.physics.Translation(ctx, entity.PlayerBodyID)
	if err != nil {
		return false, fmt.Errorf("ошибка при чтении позиции для прыжка: %w", err)
	}

	hit, err := c.physics.CastRay(ctx, physics.Ray{
		Origin:      position.Sub(mgl64.Vec3{0, c.cfg.JumpRayOffset, 0}),
		Direction:   down,
		MaxDistance: c.cfg.RayMaxDistance,
		Solid:       true,
	})
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке опоры: %w", err)
	}

	if hit == nil || hit.TimeOfImpact >= c.cfg.JumpMaxTOI {
		return false, nil
	}

	if err := c.physics.ApplyImpulse(ctx, entity.PlayerBodyID, mgl64.Vec3{0, c.cfg.JumpImpulse, 0}); err != nil {
		return false, fmt.Errorf("ошибка при прыжке: %w", err)
	}

	c.logger.Debug().Str("support", hit.BodyID).Float64("toi", hit.TimeOfImpact).Msg("Прыжок")
	return true, nil
}

// Follow читает состояние шара после шага физики и проверяет линии трассы:
// дальше финиша - конец заезда, назад за старт - рестарт.
func (c *PlayerController) Follow(ctx context.Context) (mgl64.Vec3, error) {
	state, err := c.physics.BodyState(ctx, entity.PlayerBodyID)
	if err != nil {
		return c.position, fmt.Errorf("ошибка при чтении позиции шара: %w", err)
	}
	c.position = state.Position
	c.rotation = state.Rotation
	c.velocity = state.LinearVelocity

	finishLine := entity.FinishLine(c.race.NumOfTraps(), c.cfg.FinishMargin)

	if c.position.Z() < finishLine && c.race.End() {
		c.logger.Info().
			Str("elapsed", entity.FormatElapsed(c.race.Elapsed())).
			Msg("Финиш")
	}

	if c.position.Z() > c.cfg.StartLineZ && c.race.Restart() {
		c.logger.Info().Msg("Шар выехал за старт, рестарт")
	}

	return c.position, nil
}

// FollowCamera подтягивает камеру к последней известной позиции шара
func (c *PlayerController) FollowCamera(delta float64) entity.CameraState {
	return c.camera.Follow(c.position, delta)
}

// ResetIfPending возвращает шар на старт, если с прошлого сброса был вход в ready
func (c *PlayerController) ResetIfPending(ctx context.Context) (bool, error) {
	if !c.pendingReset {
		return false, nil
	}

	if err := c.physics.SetTranslation(ctx, entity.PlayerBodyID, c.cfg.Spawn); err != nil {
		return false, fmt.Errorf("ошибка при возврате шара на старт: %w", err)
	}
	if err := c.physics.SetLinvel(ctx, entity.PlayerBodyID, zero); err != nil {
		return false, fmt.Errorf("ошибка при сбросе скорости: %w", err)
	}
	if err := c.physics.SetAngvel(ctx, entity.PlayerBodyID, zero); err != nil {
		return false, fmt.Errorf("ошибка при сбросе вращения: %w", err)
	}

	c.pendingReset = false
	c.position = c.cfg.Spawn
	c.rotation = mgl64.QuatIdent()
	c.velocity = zero
	return true, nil
}

// Position возвращает позицию шара, прочитанную в последнем Follow
func (c *PlayerController) Position() mgl64.Vec3 {
	return c.position
}

// Pose возвращает позу шара для снимка состояния
func (c *PlayerController) Pose() entity.BodyPose {
	return entity.NewBodyPose(entity.PlayerBodyID, c.position, c.rotation)
}

// Velocity возвращает линейную скорость шара из последнего Follow
func (c *PlayerController) Velocity() mgl64.Vec3 {
	return c.velocity
}

// LastForces возвращает импульсы последнего тика
func (c *PlayerController) LastForces() Forces {
	return c.lastForces
}

// Input возвращает ввод последнего тика
func (c *PlayerController) Input() entity.InputState {
	return c.prevInput
}

// Close отменяет подписку на смену стадий
func (c *PlayerController) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}
