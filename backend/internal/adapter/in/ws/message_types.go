package ws

import (
	"time"

	"marble-race/backend/internal/core/domain/entity"
)

// Константы для WebSocket сообщений
const (
	// От клиента
	MessageTypeInput   = "input"   // Состояние клавиш
	MessageTypeRestart = "restart" // Кнопка рестарта
	MessageTypePing    = "ping"    // Пинг для измерения задержки

	// От сервера
	MessageTypeInfo   = "info"   // Информационное сообщение
	MessageTypeState  = "state"  // Снимок заезда (HUD, позы, камера)
	MessageTypeCourse = "course" // Описание трассы
	MessageTypePong   = "pong"   // Ответ на пинг
	MessageTypeError  = "error"  // Ошибка обработки сообщения
)

// ClientMessage - входящее сообщение. Поля клавиш заполняются только для input.
type ClientMessage struct {
	Type       string  `json:"type"`
	ClientTime float64 `json:"client_time,omitempty"`
	entity.InputState
}

// InfoMessage приветствие и служебные уведомления
type InfoMessage struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	ClientID   string `json:"client_id,omitempty"`
	ServerTime int64  `json:"server_time"`
}

// StateMessage несет снимок заезда
type StateMessage struct {
	Type       string          `json:"type"`
	ServerTime int64           `json:"server_time"`
	State      entity.Snapshot `json:"state"`
}

// CourseMessage несет описание трассы
type CourseMessage struct {
	Type   string            `json:"type"`
	Course entity.CourseView `json:"course"`
}

// PongMessage ответ на пинг
type PongMessage struct {
	Type       string  `json:"type"`
	ClientTime float64 `json:"client_time"`
	ServerTime int64   `json:"server_time"`
}

// ErrorMessage сообщает клиенту об ошибке его сообщения
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

// NewPongMessage создает новое сообщение-ответ на пинг
func NewPongMessage(clientTime float64) PongMessage {
	return PongMessage{
		Type:       MessageTypePong,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewInfoMessage создает новое информационное сообщение
func NewInfoMessage(message, clientID string) InfoMessage {
	return InfoMessage{
		Type:       MessageTypeInfo,
		Message:    message,
		ClientID:   clientID,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewStateMessage создает сообщение со снимком заезда
func NewStateMessage(snapshot entity.Snapshot) StateMessage {
	return StateMessage{
		Type:       MessageTypeState,
		ServerTime: GetCurrentServerTime(),
		State:      snapshot,
	}
}

// NewCourseMessage создает сообщение с трассой
func NewCourseMessage(course entity.CourseView) CourseMessage {
	return CourseMessage{Type: MessageTypeCourse, Course: course}
}

// NewErrorMessage создает сообщение об ошибке
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: MessageTypeError, Message: message}
}
