package entity

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// HUD - то, что интерфейс показывает игроку каждый кадр
type HUD struct {
	Phase       Phase      `json:"phase"`
	Elapsed     float64    `json:"elapsed"`      // Секунды
	ElapsedText string     `json:"elapsed_text"` // Секунды с двумя знаками
	ShowRestart bool       `json:"show_restart"`
	Keys        InputState `json:"keys"`
}

// NewHUD собирает HUD из стадии, времени заезда и клавиш
func NewHUD(phase Phase, elapsed time.Duration, keys InputState) HUD {
	seconds := elapsed.Seconds()
	return HUD{
		Phase:       phase,
		Elapsed:     seconds,
		ElapsedText: FormatElapsed(elapsed),
		ShowRestart: phase == PhaseEnded,
		Keys:        keys,
	}
}

// FormatElapsed форматирует время заезда как "12.34"
func FormatElapsed(elapsed time.Duration) string {
	return fmt.Sprintf("%.2f", elapsed.Seconds())
}

// BodyPose - поза тела для отправки клиенту
type BodyPose struct {
	ID       string     `json:"id"`
	Position mgl64.Vec3 `json:"position"`
	Rotation [4]float64 `json:"rotation"` // x, y, z, w
}

// NewBodyPose собирает позу из позиции и кватерниона
func NewBodyPose(id string, position mgl64.Vec3, rotation mgl64.Quat) BodyPose {
	return BodyPose{
		ID:       id,
		Position: position,
		Rotation: [4]float64{rotation.X(), rotation.Y(), rotation.Z(), rotation.W},
	}
}

// CameraState - сглаженная позиция и цель камеры
type CameraState struct {
	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
}

// Snapshot - состояние сессии после тика
type Snapshot struct {
	Tick      uint64      `json:"tick"`
	HUD       HUD         `json:"hud"`
	Player    BodyPose    `json:"player"`
	Obstacles []BodyPose  `json:"obstacles"`
	Camera    CameraState `json:"camera"`
	CourseRev uint64      `json:"course_rev"`
}

// CourseView - описание трассы для клиента
type CourseView struct {
	Revision   uint64     `json:"revision"`
	NumOfTraps int        `json:"num_of_traps"`
	Distance   float64    `json:"distance"`
	Length     float64    `json:"length"`
	Seed       float64    `json:"seed"`
	Blocks     []Block    `json:"blocks"`
	Bodies     []BodyDesc `json:"bodies"`
}
