package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"marble-race/backend/internal/config"
	"marble-race/backend/internal/core/domain/entity"
	"marble-race/backend/internal/core/port/out/physics"
	"marble-race/backend/internal/core/port/out/results"
	"marble-race/backend/internal/telemetry"
)

// RaceService - сессия заезда: связывает автомат, генератор трассы,
// препятствия и контроллер шара и продвигает их на один тик за вызов Tick.
//
// Tick вызывается только горутиной игрового цикла. SetInput, RequestRestart,
// Snapshot и Course безопасны для вызова из сетевых горутин.
type RaceService struct {
	physicsPort physics.PhysicsPort
	results     results.ResultsRepository
	telemetry   *telemetry.TelemetryManager
	cfg         config.Config
	palette     []entity.ObstacleType
	logger      zerolog.Logger

	race       *entity.RaceState
	generator  *LevelGenerator
	controller *PlayerController
	level      *entity.Level
	obstacles  []*entity.Obstacle
	tick       uint64
	simTime    float64

	regenerate    bool
	pendingResult *entity.RaceResult
	unsubscribe   func()

	mu        sync.Mutex
	input     entity.InputState
	edges     entity.InputEdges
	restart   bool
	snapshot  entity.Snapshot
	course    entity.CourseView
	courseRev uint64
}

// RaceServiceOption настраивает RaceService при создании
type RaceServiceOption func(*raceServiceOptions)

type raceServiceOptions struct {
	raceOpts  []entity.RaceOption
	generator *LevelGenerator
	results   results.ResultsRepository
	telemetry *telemetry.TelemetryManager
}

// WithRaceOptions передает опции автомату заезда (часы, источник сидов)
func WithRaceOptions(opts ...entity.RaceOption) RaceServiceOption {
	return func(o *raceServiceOptions) {
		o.raceOpts = append(o.raceOpts, opts...)
	}
}

// WithGenerator подменяет генератор трассы
func WithGenerator(generator *LevelGenerator) RaceServiceOption {
	return func(o *raceServiceOptions) {
		o.generator = generator
	}
}

// WithResults включает сохранение результатов
func WithResults(repo results.ResultsRepository) RaceServiceOption {
	return func(o *raceServiceOptions) {
		o.results = repo
	}
}

// WithTelemetry включает запись телеметрии шара
func WithTelemetry(tm *telemetry.TelemetryManager) RaceServiceOption {
	return func(o *raceServiceOptions) {
		o.telemetry = tm
	}
}

// NewRaceService создает сессию. Тела в движке создаются в Init.
func NewRaceService(physicsPort physics.PhysicsPort, cfg config.Config, logger zerolog.Logger, opts ...RaceServiceOption) (*RaceService, error) {
	palette, err := entity.ParsePalette(cfg.Race.Palette)
	if err != nil {
		return nil, fmt.Errorf("ошибка в палитре препятствий: %w", err)
	}

	var o raceServiceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.generator == nil {
		o.generator = NewLevelGenerator(nil)
	}

	race := entity.NewRaceState(cfg.Race.NumOfTraps, o.raceOpts...)

	s := &RaceService{
		physicsPort: physicsPort,
		results:     o.results,
		telemetry:   o.telemetry,
		cfg:         cfg,
		palette:     palette,
		logger:      logger,
		race:        race,
		generator:   o.generator,
	}

	s.controller = NewPlayerController(physicsPort, race, NewCameraRig(cfg.Camera), cfg.Control, logger)
	s.unsubscribe = race.Subscribe(s.onPhaseChange)

	return s, nil
}

// onPhaseChange откладывает побочные эффекты переходов до конца тика
func (s *RaceService) onPhaseChange(prev, next entity.Phase) {
	s.logger.Debug().Str("from", string(prev)).Str("to", string(next)).Msg("Смена стадии")

	switch next {
	case entity.PhaseReady:
		s.regenerate = true
		s.count("restarts")
	case entity.PhaseEnded:
		s.pendingResult = entity.NewRaceResult(s.race, s.level)
		s.count("finishes")
	case entity.PhasePlaying:
		s.count("starts")
	}
}

// Init генерирует первую трассу и создает все тела в физическом движке
func (s *RaceService) Init(ctx context.Context) error {
	level, err := s.generator.Generate(s.race.NumOfTraps(), s.palette, s.race.BlocksSeed())
	if err != nil {
		return fmt.Errorf("ошибка при генерации трассы: %w", err)
	}
	s.level = level

	for _, desc := range level.StaticBodies() {
		if err := s.physicsPort.CreateBody(ctx, desc); err != nil {
			return fmt.Errorf("ошибка при создании тела %s: %w", desc.ID, err)
		}
	}

	body := s.cfg.Body
	player := entity.PlayerBody(s.cfg.Control.Spawn, body.Radius, body.Restitution, body.Friction, body.LinearDamping, body.AngularDamping)
	if err := s.physicsPort.CreateBody(ctx, player); err != nil {
		return fmt.Errorf("ошибка при создании шара: %w", err)
	}

	if err := s.spawnObstacles(ctx); err != nil {
		return err
	}

	s.publishCourse()
	s.publishSnapshot(s.controller.FollowCamera(0))

	s.logger.Info().
		Int("traps", level.NumOfTraps()).
		Interface("sequence", level.Traps).
		Msg("Трасса создана")
	return nil
}

// spawnObstacles создает препятствия текущей трассы
func (s *RaceService) spawnObstacles(ctx context.Context) error {
	obstacles := s.level.Obstacles(s.generator.Rand())
	for _, o := range obstacles {
		if err := s.physicsPort.CreateBody(ctx, entity.ObstacleBody(o)); err != nil {
			return fmt.Errorf("ошибка при создании препятствия %s: %w", o.ID, err)
		}
	}
	s.obstacles = obstacles
	return nil
}

// Tick продвигает сессию на delta секунд. simTime - время симуляции
// в секундах, от него зависят позы препятствий.
func (s *RaceService) Tick(ctx context.Context, delta, simTime float64) error {
	s.tick++
	s.simTime = simTime

	input, edges, restart := s.drainCommands()
	if restart && s.race.Restart() {
		s.logger.Info().Msg("Рестарт по запросу клиента")
	}

	// Шар возвращается на старт до ввода и проверки линий
	if err := s.applyTransitions(ctx); err != nil {
		return err
	}

	if err := s.driveObstacles(ctx, simTime); err != nil {
		return err
	}

	if err := s.controller.ApplyInputWithEdges(ctx, input, edges, delta); err != nil {
		return err
	}

	if err := s.physicsPort.Step(ctx, delta); err != nil {
		return fmt.Errorf("ошибка шага физики: %w", err)
	}

	if _, err := s.controller.Follow(ctx); err != nil {
		return err
	}

	if err := s.applyTransitions(ctx); err != nil {
		return err
	}

	camera := s.controller.FollowCamera(delta)
	s.record()
	s.publishSnapshot(camera)
	return nil
}

func (s *RaceService) drainCommands() (entity.InputState, entity.InputEdges, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	edges, restart := s.edges, s.restart
	s.edges = entity.InputEdges{}
	s.restart = false
	return s.input, edges, restart
}

// driveObstacles задает кинематическим телам позы на следующий шаг
func (s *RaceService) driveObstacles(ctx context.Context, simTime float64) error {
	for _, o := range s.obstacles {
		pose := o.PoseAt(simTime)
		if pose.DrivesTranslation {
			if err := s.physicsPort.SetNextKinematicTranslation(ctx, o.ID, pose.Translation); err != nil {
				return fmt.Errorf("ошибка при движении препятствия %s: %w", o.ID, err)
			}
		}
		if pose.DrivesRotation {
			if err := s.physicsPort.SetNextKinematicRotation(ctx, o.ID, pose.Rotation); err != nil {
				return fmt.Errorf("ошибка при вращении препятствия %s: %w", o.ID, err)
			}
		}
	}
	return nil
}

// applyTransitions выполняет отложенные эффекты переходов этого тика
func (s *RaceService) applyTransitions(ctx context.Context) error {
	if s.pendingResult != nil {
		result := s.pendingResult
		s.pendingResult = nil
		s.saveResult(ctx, result)
	}

	if _, err := s.controller.ResetIfPending(ctx); err != nil {
		return err
	}

	if s.regenerate {
		s.regenerate = false
		if err := s.regenerateLevel(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (s *RaceService) saveResult(ctx context.Context, result *entity.RaceResult) {
	s.logger.Info().
		Str("time", entity.FormatElapsed(result.Duration)).
		Int("traps", result.NumOfTraps).
		Msg("🏁 Заезд завершен")

	if s.results == nil {
		return
	}

	// Результат не влияет на симуляцию: ошибку только логируем
	if err := s.results.Save(ctx, result); err != nil {
		s.logger.Error().Err(err).Msg("Не удалось сохранить результат")
		s.count("result_errors")
		return
	}
	s.logger.Debug().Str("id", result.ID).Msg("Результат сохранен")
}

// regenerateLevel пересоздает препятствия, если трасса изменилась
func (s *RaceService) regenerateLevel(ctx context.Context) error {
	level, err := s.generator.Generate(s.race.NumOfTraps(), s.palette, s.race.BlocksSeed())
	if err != nil {
		return fmt.Errorf("ошибка при генерации трассы: %w", err)
	}
	if level == s.level {
		return nil
	}

	for _, o := range s.obstacles {
		if err := s.physicsPort.RemoveBody(ctx, o.ID); err != nil && !errors.Is(err, physics.ErrBodyNotFound) {
			return fmt.Errorf("ошибка при удалении препятствия %s: %w", o.ID, err)
		}
	}
	s.obstacles = nil
	s.level = level

	if err := s.spawnObstacles(ctx); err != nil {
		return err
	}

	s.publishCourse()
	s.logger.Info().Interface("sequence", level.Traps).Msg("Новая трасса")
	return nil
}

func (s *RaceService) record() {
	if s.telemetry == nil {
		return
	}

	forces := s.controller.LastForces()
	s.telemetry.Record(telemetry.Sample{
		Tick:           s.tick,
		Phase:          string(s.race.Phase()),
		Position:       s.controller.Position(),
		Velocity:       s.controller.Velocity(),
		AppliedImpulse: forces.Impulse,
		AppliedTorque:  forces.Torque,
		Jumped:         forces.Jumped,
	})
}

func (s *RaceService) count(name string) {
	if s.telemetry != nil {
		s.telemetry.Count(name)
	}
}

func (s *RaceService) publishCourse() {
	view := entity.CourseView{
		NumOfTraps: s.level.NumOfTraps(),
		Distance:   s.level.Distance,
		Length:     s.level.CourseLength(),
		Seed:       s.level.Seed,
		Blocks:     s.level.Blocks(),
		Bodies:     s.level.StaticBodies(),
	}
	for _, o := range s.obstacles {
		view.Bodies = append(view.Bodies, entity.ObstacleBody(o))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.courseRev++
	view.Revision = s.courseRev
	s.course = view
}

func (s *RaceService) publishSnapshot(camera entity.CameraState) {
	obstacles := make([]entity.BodyPose, 0, len(s.obstacles))
	for _, o := range s.obstacles {
		pose := o.PoseAt(s.simTime)
		obstacles = append(obstacles, entity.NewBodyPose(o.ID, pose.Translation, pose.Rotation))
	}

	snapshot := entity.Snapshot{
		Tick:      s.tick,
		HUD:       entity.NewHUD(s.race.Phase(), s.race.Elapsed(), s.controller.Input()),
		Player:    s.controller.Pose(),
		Obstacles: obstacles,
		Camera:    camera,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.CourseRev = s.courseRev
	s.snapshot = snapshot
}

// SetInput сохраняет состояние клавиш. Тик видит последнее состояние,
// а смены и нажатия прыжка между тиками копятся до него.
func (s *RaceService) SetInput(input entity.InputState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = s.edges.Merge(entity.DetectEdges(s.input, input))
	s.input = input
}

// RequestRestart просит перезапустить заезд в начале следующего тика
func (s *RaceService) RequestRestart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restart = true
}

// Snapshot возвращает последнее опубликованное состояние
func (s *RaceService) Snapshot() entity.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Course возвращает описание текущей трассы
func (s *RaceService) Course() entity.CourseView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.course
}

// BestResults возвращает лучшие результаты для текущего числа ловушек
func (s *RaceService) BestResults(ctx context.Context, limit int) ([]*entity.RaceResult, error) {
	if s.results == nil {
		return nil, nil
	}
	return s.results.Best(ctx, s.race.NumOfTraps(), limit)
}

// RecentResults возвращает последние результаты
func (s *RaceService) RecentResults(ctx context.Context, limit int) ([]*entity.RaceResult, error) {
	if s.results == nil {
		return nil, nil
	}
	return s.results.Recent(ctx, limit)
}

// Race возвращает автомат заезда (только для горутины игрового цикла и тестов)
func (s *RaceService) Race() *entity.RaceState {
	return s.race
}

// Level возвращает текущую трассу (только для горутины игрового цикла и тестов)
func (s *RaceService) Level() *entity.Level {
	return s.level
}

// Close отменяет подписки сессии
func (s *RaceService) Close() {
	s.controller.Close()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}
