package entity

import (
	"testing"
	"time"
)

// fakeClock - управляемые тестом часы
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// sequenceSeeds возвращает сиды по порядку: 1, 2, 3...
func sequenceSeeds() func() float64 {
	next := 0.0
	return func() float64 {
		next++
		return next
	}
}

func newTestRace(clock Clock) *RaceState {
	return NewRaceState(3, WithClock(clock), WithSeedSource(sequenceSeeds()))
}

func TestRaceState_Lifecycle(t *testing.T) {
	clock := newFakeClock()
	race := newTestRace(clock)

	if race.Phase() != PhaseReady {
		t.Fatalf("Начальная стадия должна быть ready, получили %s", race.Phase())
	}
	if race.BlocksSeed() != 0 {
		t.Errorf("Начальный сид должен быть 0, получили %f", race.BlocksSeed())
	}

	if !race.Start() {
		t.Fatal("Start из ready должен сработать")
	}
	if race.Phase() != PhasePlaying {
		t.Errorf("Ожидали playing, получили %s", race.Phase())
	}
	if !race.StartTime().Equal(clock.Now()) {
		t.Errorf("startTime не совпадает с часами: %v", race.StartTime())
	}
	if !race.EndTime().IsZero() {
		t.Errorf("endTime должен быть нулевым в playing")
	}

	clock.Advance(1500 * time.Millisecond)
	if !race.End() {
		t.Fatal("End из playing должен сработать")
	}
	if race.Phase() != PhaseEnded {
		t.Errorf("Ожидали ended, получили %s", race.Phase())
	}
	if got := race.Elapsed(); got != 1500*time.Millisecond {
		t.Errorf("Ожидали 1.5s, получили %v", got)
	}

	if !race.Restart() {
		t.Fatal("Restart из ended должен сработать")
	}
	if race.Phase() != PhaseReady {
		t.Errorf("Ожидали ready, получили %s", race.Phase())
	}
	if !race.StartTime().IsZero() || !race.EndTime().IsZero() {
		t.Errorf("Таймер должен быть сброшен после restart")
	}
	if race.BlocksSeed() != 1 {
		t.Errorf("Ожидали новый сид 1, получили %f", race.BlocksSeed())
	}
}

func TestRaceState_GuardedTransitions(t *testing.T) {
	clock := newFakeClock()
	race := newTestRace(clock)

	// Из ready допустим только Start
	if race.End() {
		t.Error("End из ready не должен срабатывать")
	}
	if race.Restart() {
		t.Error("Restart из ready не должен срабатывать")
	}
	if race.Phase() != PhaseReady || race.BlocksSeed() != 0 {
		t.Errorf("Состояние изменилось после запрещенных переходов: %s, %f", race.Phase(), race.BlocksSeed())
	}

	race.Start()
	startedAt := race.StartTime()
	clock.Advance(time.Second)

	// Повторный Start не перезапускает таймер
	if race.Start() {
		t.Error("Start из playing не должен срабатывать")
	}
	if !race.StartTime().Equal(startedAt) {
		t.Error("Повторный Start изменил startTime")
	}

	race.End()
	endedAt := race.EndTime()
	clock.Advance(time.Second)

	if race.End() {
		t.Error("End из ended не должен срабатывать")
	}
	if race.Start() {
		t.Error("Start из ended не должен срабатывать")
	}
	if !race.EndTime().Equal(endedAt) {
		t.Error("Повторный End изменил endTime")
	}
}

func TestRaceState_RestartFromPlaying(t *testing.T) {
	race := newTestRace(newFakeClock())

	race.Start()
	if !race.Restart() {
		t.Fatal("Restart из playing должен сработать")
	}
	if race.Phase() != PhaseReady {
		t.Errorf("Ожидали ready, получили %s", race.Phase())
	}
	if race.Elapsed() != 0 {
		t.Errorf("В ready время должно быть 0, получили %v", race.Elapsed())
	}
}

func TestRaceState_Elapsed(t *testing.T) {
	clock := newFakeClock()
	race := newTestRace(clock)

	clock.Advance(time.Minute)
	if race.Elapsed() != 0 {
		t.Errorf("В ready время должно быть 0, получили %v", race.Elapsed())
	}

	race.Start()

	// Время в playing не убывает и пересчитывается при каждом вызове
	var prev time.Duration
	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		got := race.Elapsed()
		if got < prev {
			t.Fatalf("Время убывает: %v < %v", got, prev)
		}
		prev = got
	}
	if prev != 500*time.Millisecond {
		t.Errorf("Ожидали 500ms, получили %v", prev)
	}

	race.End()
	frozen := race.Elapsed()
	clock.Advance(10 * time.Second)
	if race.Elapsed() != frozen {
		t.Errorf("В ended время должно быть заморожено: %v != %v", race.Elapsed(), frozen)
	}
}

func TestRaceState_Observers(t *testing.T) {
	race := newTestRace(newFakeClock())

	type change struct{ prev, next Phase }
	var first, second []change

	unsubscribe := race.Subscribe(func(prev, next Phase) {
		first = append(first, change{prev, next})
	})
	race.Subscribe(func(prev, next Phase) {
		second = append(second, change{prev, next})
	})

	race.Start()
	race.Start() // Запрещенный переход не уведомляет
	race.End()

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("Ожидали по 2 уведомления, получили %d и %d", len(first), len(second))
	}
	if first[0] != (change{PhaseReady, PhasePlaying}) {
		t.Errorf("Неверное первое уведомление: %+v", first[0])
	}
	if first[1] != (change{PhasePlaying, PhaseEnded}) {
		t.Errorf("Неверное второе уведомление: %+v", first[1])
	}

	unsubscribe()
	unsubscribe() // Повторная отписка безопасна

	race.Restart()
	if len(first) != 2 {
		t.Errorf("Отписанный наблюдатель получил уведомление")
	}
	if len(second) != 3 || second[2] != (change{PhaseEnded, PhaseReady}) {
		t.Errorf("Второй наблюдатель не получил переход в ready: %+v", second)
	}
}

func TestRaceState_UnsubscribeInsideCallback(t *testing.T) {
	race := newTestRace(newFakeClock())

	calls := 0
	var unsubscribe func()
	unsubscribe = race.Subscribe(func(prev, next Phase) {
		calls++
		unsubscribe()
	})

	otherCalls := 0
	race.Subscribe(func(prev, next Phase) {
		otherCalls++
	})

	race.Start()
	race.End()

	if calls != 1 {
		t.Errorf("Ожидали 1 вызов, получили %d", calls)
	}
	if otherCalls != 2 {
		t.Errorf("Ожидали 2 вызова второго наблюдателя, получили %d", otherCalls)
	}
}

func TestNewRaceState_DefaultTraps(t *testing.T) {
	race := NewRaceState(0)
	if race.NumOfTraps() != DefaultNumOfTraps {
		t.Errorf("Ожидали %d ловушек, получили %d", DefaultNumOfTraps, race.NumOfTraps())
	}
}
