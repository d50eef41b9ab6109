package entity

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestLevel_Layout(t *testing.T) {
	level := NewLevel([]ObstacleType{ObstacleSpinner, ObstacleLimbo, ObstacleAxe}, 0.5)

	if level.NumOfTraps() != 3 {
		t.Fatalf("Ожидали 3 ловушки, получили %d", level.NumOfTraps())
	}
	for i, want := range []float64{-4, -8, -12} {
		if got := level.SlotOffset(i); got != want {
			t.Errorf("Слот %d: ожидали z=%f, получили %f", i, want, got)
		}
	}
	if level.EndOffset() != -16 {
		t.Errorf("Ожидали финишный блок в z=-16, получили %f", level.EndOffset())
	}
	if level.BoundsLength() != 5 {
		t.Errorf("Ожидали ограждение на 5 блоков, получили %d", level.BoundsLength())
	}
	if level.CourseLength() != 20 {
		t.Errorf("Ожидали длину трассы 20, получили %f", level.CourseLength())
	}
	if FinishLine(level.NumOfTraps(), 2) != -14 {
		t.Errorf("Ожидали линию финиша в z=-14, получили %f", FinishLine(level.NumOfTraps(), 2))
	}
}

func TestLevel_Blocks(t *testing.T) {
	level := NewLevel([]ObstacleType{ObstacleAxe, ObstacleAxe}, 0)
	blocks := level.Blocks()

	if len(blocks) != 4 {
		t.Fatalf("Ожидали 4 блока, получили %d", len(blocks))
	}
	if blocks[0].Kind != BlockStart || blocks[0].Position.Z() != 0 {
		t.Errorf("Первый блок должен быть стартом в z=0: %+v", blocks[0])
	}
	if blocks[1].Kind != BlockTrap || blocks[1].Trap != ObstacleAxe || blocks[1].Position.Z() != -4 {
		t.Errorf("Неверный блок ловушки: %+v", blocks[1])
	}
	if blocks[3].Kind != BlockEnd || blocks[3].Position.Z() != -12 {
		t.Errorf("Последний блок должен быть финишем в z=-12: %+v", blocks[3])
	}
}

func TestLevel_Obstacles(t *testing.T) {
	level := NewLevel([]ObstacleType{ObstacleSpinner, ObstacleLimbo}, 0)
	obstacles := level.Obstacles(rand.New(rand.NewPCG(1, 1)))

	if len(obstacles) != 2 {
		t.Fatalf("Ожидали 2 препятствия, получили %d", len(obstacles))
	}
	if obstacles[0].ID != "trap-0" || obstacles[1].ID != "trap-1" {
		t.Errorf("Неверные идентификаторы: %s, %s", obstacles[0].ID, obstacles[1].ID)
	}
	if !obstacles[1].Anchor.ApproxEqual(mgl64.Vec3{0, 0, -8}) {
		t.Errorf("Неверный якорь второго препятствия: %v", obstacles[1].Anchor)
	}

	body := ObstacleBody(obstacles[0])
	if body.Kind != BodyKinematic || body.Size != (mgl64.Vec3{3.5, 0.3, 0.3}) {
		t.Errorf("Неверное тело spinner: %+v", body)
	}

	axe := &Obstacle{ID: "trap-9", Type: ObstacleAxe}
	if ObstacleBody(axe).Size != (mgl64.Vec3{1.5, 1.3, 0.3}) {
		t.Errorf("Неверный размер тела axe: %v", ObstacleBody(axe).Size)
	}
}

func TestLevel_StaticBodies(t *testing.T) {
	level := NewLevel(make([]ObstacleType, 10), 0)
	bodies := level.StaticBodies()

	byID := make(map[string]BodyDesc, len(bodies))
	for _, b := range bodies {
		if b.Kind != BodyFixed {
			t.Errorf("Статичное тело %s имеет вид %s", b.ID, b.Kind)
		}
		byID[b.ID] = b
	}

	floor, ok := byID[FloorBodyID]
	if !ok {
		t.Fatal("Нет тела пола")
	}
	// 12 блоков по 4 единицы
	if floor.Size.Z() != 48 || floor.Position.Z() != -22 {
		t.Errorf("Неверный пол: размер %v, позиция %v", floor.Size, floor.Position)
	}

	back := byID[WallBackBodyID]
	if back.Position.Z() != -46 {
		t.Errorf("Ожидали заднюю стену в z=-46, получили %f", back.Position.Z())
	}

	finish := byID[FinishBodyID]
	if finish.Shape != ShapeHull || finish.Position.Z() != -44 || finish.Position.Y() != 0.25 {
		t.Errorf("Неверное тело финиша: %+v", finish)
	}

	if byID[WallLeftBodyID].Position.X() != -2.15 || byID[WallRightBodyID].Position.X() != 2.15 {
		t.Errorf("Неверные боковые стены")
	}
}

func TestDetectEdges(t *testing.T) {
	idle := InputState{}
	forward := InputState{Forward: true}
	jump := InputState{Forward: true, Jump: true}

	if e := DetectEdges(idle, idle); e.Changed || e.JumpPressed {
		t.Errorf("Без изменений не должно быть событий: %+v", e)
	}
	if e := DetectEdges(idle, forward); !e.Changed || e.JumpPressed {
		t.Errorf("Ожидали только изменение: %+v", e)
	}
	if e := DetectEdges(forward, jump); !e.Changed || !e.JumpPressed {
		t.Errorf("Ожидали нажатие прыжка: %+v", e)
	}
	if e := DetectEdges(jump, jump); e.Changed || e.JumpPressed {
		t.Errorf("Удержание прыжка не должно давать событий: %+v", e)
	}
	if e := DetectEdges(jump, forward); !e.Changed || e.JumpPressed {
		t.Errorf("Отпускание прыжка не является нажатием: %+v", e)
	}

	// Нажатие и отпускание между тиками сохраняют нажатие прыжка
	merged := DetectEdges(idle, InputState{Jump: true}).Merge(DetectEdges(InputState{Jump: true}, idle))
	if !merged.Changed || !merged.JumpPressed {
		t.Errorf("Объединение должно сохранить оба события: %+v", merged)
	}
}

func TestNewHUD(t *testing.T) {
	hud := NewHUD(PhaseEnded, 12345678900, InputState{Leftward: true})
	if hud.ElapsedText != "12.35" {
		t.Errorf("Ожидали 12.35, получили %s", hud.ElapsedText)
	}
	if !hud.ShowRestart {
		t.Error("Кнопка рестарта должна быть видна в ended")
	}
	if NewHUD(PhasePlaying, 0, InputState{}).ShowRestart {
		t.Error("Кнопка рестарта не должна быть видна в playing")
	}
}
