package entity

import (
	"math/rand/v2"
	"time"
)

// Phase представляет стадию заезда
type Phase string

// Константы стадий заезда
const (
	PhaseReady   Phase = "ready"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// DefaultNumOfTraps - количество ловушек на трассе по умолчанию
const DefaultNumOfTraps = 10

// Clock - источник монотонного времени
type Clock interface {
	Now() time.Time
}

// SystemClock использует time.Now (с монотонной составляющей)
type SystemClock struct{}

// Now возвращает текущее время
func (SystemClock) Now() time.Time {
	return time.Now()
}

// PhaseObserver вызывается синхронно после каждого состоявшегося перехода
type PhaseObserver func(prev, next Phase)

// RaceState - конечный автомат заезда: ready -> playing -> ended -> ready.
//
// Не потокобезопасен: владеет им единственная горутина игрового цикла.
// Недопустимые переходы молча игнорируются.
type RaceState struct {
	phase      Phase
	startTime  time.Time
	endTime    time.Time
	numOfTraps int
	blocksSeed float64

	clock Clock
	seeds func() float64

	observers      map[int]PhaseObserver
	observerOrder  []int
	nextObserverID int
}

// RaceOption настраивает RaceState при создании
type RaceOption func(*RaceState)

// WithClock подменяет источник времени
func WithClock(clock Clock) RaceOption {
	return func(r *RaceState) {
		r.clock = clock
	}
}

// WithSeedSource подменяет генератор сидов трассы
func WithSeedSource(seeds func() float64) RaceOption {
	return func(r *RaceState) {
		r.seeds = seeds
	}
}

// NewRaceState создает автомат в стадии ready.
// numOfTraps <= 0 заменяется значением по умолчанию.
func NewRaceState(numOfTraps int, opts ...RaceOption) *RaceState {
	if numOfTraps <= 0 {
		numOfTraps = DefaultNumOfTraps
	}

	r := &RaceState{
		phase:      PhaseReady,
		numOfTraps: numOfTraps,
		clock:      SystemClock{},
		seeds:      rand.Float64,
		observers:  make(map[int]PhaseObserver),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start переводит ready -> playing и запускает таймер
func (r *RaceState) Start() bool {
	if r.phase != PhaseReady {
		return false
	}

	r.startTime = r.clock.Now()
	r.endTime = time.Time{}
	r.transition(PhasePlaying)
	return true
}

// End переводит playing -> ended и фиксирует время финиша
func (r *RaceState) End() bool {
	if r.phase != PhasePlaying {
		return false
	}

	r.endTime = r.clock.Now()
	r.transition(PhaseEnded)
	return true
}

// Restart переводит playing/ended -> ready, сбрасывает таймер и перевыбирает сид трассы
func (r *RaceState) Restart() bool {
	if r.phase != PhasePlaying && r.phase != PhaseEnded {
		return false
	}

	r.startTime = time.Time{}
	r.endTime = time.Time{}
	r.blocksSeed = r.seeds()
	r.transition(PhaseReady)
	return true
}

// Elapsed возвращает время заезда. Пересчитывается при каждом вызове.
func (r *RaceState) Elapsed() time.Duration {
	switch r.phase {
	case PhaseEnded:
		return r.endTime.Sub(r.startTime)
	case PhasePlaying:
		return r.clock.Now().Sub(r.startTime)
	default:
		return 0
	}
}

// Phase возвращает текущую стадию
func (r *RaceState) Phase() Phase {
	return r.phase
}

// StartTime возвращает момент старта (нулевой в стадии ready)
func (r *RaceState) StartTime() time.Time {
	return r.startTime
}

// EndTime возвращает момент финиша (нулевой вне стадии ended)
func (r *RaceState) EndTime() time.Time {
	return r.endTime
}

// NumOfTraps возвращает количество ловушек
func (r *RaceState) NumOfTraps() int {
	return r.numOfTraps
}

// BlocksSeed возвращает текущий сид трассы
func (r *RaceState) BlocksSeed() float64 {
	return r.blocksSeed
}

// Subscribe регистрирует наблюдателя смены стадии.
// Возвращаемая функция отменяет подписку; повторный вызов безопасен.
func (r *RaceState) Subscribe(fn PhaseObserver) (unsubscribe func()) {
	id := r.nextObserverID
	r.nextObserverID++

	r.observers[id] = fn
	r.observerOrder = append(r.observerOrder, id)

	return func() {
		if _, ok := r.observers[id]; !ok {
			return
		}
		delete(r.observers, id)
		for i, oid := range r.observerOrder {
			if oid == id {
				r.observerOrder = append(r.observerOrder[:i], r.observerOrder[i+1:]...)
				break
			}
		}
	}
}

func (r *RaceState) transition(next Phase) {
	prev := r.phase
	r.phase = next

	// Копия порядка: наблюдатель может отписаться прямо из колбэка
	order := make([]int, len(r.observerOrder))
	copy(order, r.observerOrder)

	for _, id := range order {
		if fn, ok := r.observers[id]; ok {
			fn(prev, next)
		}
	}
}
