package service

import (
	"github.com/go-gl/mathgl/mgl64"

	"marble-race/backend/internal/config"
	"marble-race/backend/internal/core/domain/entity"
)

// CameraRig - камера, плавно следующая за шаром.
// Позиция и цель догоняют желаемые значения с коэффициентом rate*delta.
type CameraRig struct {
	cfg      config.CameraConfig
	position mgl64.Vec3
	target   mgl64.Vec3
}

// NewCameraRig создает камеру в начальной позиции, смотрящую в начало координат
func NewCameraRig(cfg config.CameraConfig) *CameraRig {
	return &CameraRig{
		cfg:      cfg,
		position: cfg.InitialPosition,
	}
}

// Follow сдвигает камеру к телу на величину, пропорциональную delta
func (c *CameraRig) Follow(body mgl64.Vec3, delta float64) entity.CameraState {
	alpha := c.cfg.SmoothingRate * delta
	if alpha > 1 {
		alpha = 1
	}

	c.position = lerp(c.position, body.Add(c.cfg.PositionOffset), alpha)
	c.target = lerp(c.target, body.Add(c.cfg.TargetOffset), alpha)

	return c.State()
}

// State возвращает текущее состояние камеры
func (c *CameraRig) State() entity.CameraState {
	return entity.CameraState{Position: c.position, Target: c.target}
}

func lerp(from, to mgl64.Vec3, alpha float64) mgl64.Vec3 {
	return from.Add(to.Sub(from).Mul(alpha))
}
