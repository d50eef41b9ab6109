package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	racePort "marble-race/backend/internal/core/port/in/race"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1024
)

type handlerFunc func(*SafeWriter, ClientMessage) error

// WSAdapter адаптер для WebSocket соединений
type WSAdapter struct {
	upgrader  websocket.Upgrader
	handlers  map[string]handlerFunc
	race      racePort.RacePort
	clients   map[*SafeWriter]struct{} // Для хранения активных клиентов
	clientsMu sync.Mutex
	pongWait  time.Duration // Без сообщений и pong дольше этого клиент отключается
	logger    zerolog.Logger
}

// NewWSAdapter создает новый экземпляр WSAdapter.
// allowAnyOrigin отключает проверку Origin (для разработки).
func NewWSAdapter(race racePort.RacePort, allowAnyOrigin bool, logger zerolog.Logger) *WSAdapter {
	a := &WSAdapter{
		race:     race,
		handlers: make(map[string]handlerFunc),
		clients:  make(map[*SafeWriter]struct{}),
		pongWait: pongWait,
		logger:   logger.With().Str("component", "WSAdapter").Logger(),
	}
	if allowAnyOrigin {
		a.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	a.registerHandlers()
	return a
}

// SafeWriter обеспечивает потокобезопасную запись в WebSocket
type SafeWriter struct {
	id    string
	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewSafeWriter создает новый экземпляр SafeWriter
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{
		id:   ksuid.New().String(),
		conn: conn,
	}
}

// ID возвращает идентификатор клиента
func (w *SafeWriter) ID() string {
	return w.id
}

// WriteJSON потокобезопасно отправляет JSON данные через WebSocket
func (w *SafeWriter) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации сообщения: %w", err)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping отправляет управляющий ping; клиент отвечает pong при чтении
func (w *SafeWriter) Ping() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close закрывает соединение WebSocket
func (w *SafeWriter) Close() error {
	w.mutex.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
		time.Now().Add(writeWait))
	w.mutex.Unlock()
	return w.conn.Close()
}

// registerHandlers регистрирует обработчики сообщений
func (a *WSAdapter) registerHandlers() {
	a.handlers[MessageTypeInput] = func(conn *SafeWriter, message ClientMessage) error {
		a.race.SetInput(message.InputState)
		return nil
	}

	a.handlers[MessageTypeRestart] = func(conn *SafeWriter, message ClientMessage) error {
		a.logger.Info().Str("client", conn.ID()).Msg("Запрошен рестарт заезда")
		a.race.RequestRestart()
		return nil
	}

	a.handlers[MessageTypePing] = func(conn *SafeWriter, message ClientMessage) error {
		clientTime := message.ClientTime
		if clientTime == 0 {
			clientTime = float64(GetCurrentServerTime())
		}
		return conn.WriteJSON(NewPongMessage(clientTime))
	}
}

// HandleWS обрабатывает WebSocket соединения
func (a *WSAdapter) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Ошибка при установке WebSocket соединения")
		return
	}

	client := NewSafeWriter(conn)
	logger := a.logger.With().Str("client", client.ID()).Logger()

	a.clientsMu.Lock()
	a.clients[client] = struct{}{}
	a.clientsMu.Unlock()

	defer func() {
		a.removeClient(client)
		logger.Info().Msg("Клиент отключился")
	}()

	logger.Info().Str("remote", r.RemoteAddr).Msg("Клиент подключился")

	// Приветствие, трасса и текущее состояние сразу после подключения
	for _, msg := range []interface{}{
		NewInfoMessage("Добро пожаловать в гонку", client.ID()),
		NewCourseMessage(a.race.Course()),
		NewStateMessage(a.race.Snapshot()),
	} {
		if err := client.WriteJSON(msg); err != nil {
			logger.Warn().Err(err).Msg("Ошибка отправки начальных данных")
			return
		}
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(a.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(a.pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go a.pingLoop(client, done, logger)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("Ошибка при чтении сообщения")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(a.pongWait))

		var message ClientMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Debug().Err(err).Msg("Некорректное сообщение")
			_ = client.WriteJSON(NewErrorMessage("некорректный JSON"))
			continue
		}

		handler, ok := a.handlers[message.Type]
		if !ok {
			logger.Debug().Str("type", message.Type).Msg("Нет обработчика для типа сообщения")
			_ = client.WriteJSON(NewErrorMessage("неизвестный тип сообщения: " + message.Type))
			continue
		}

		if err := handler(client, message); err != nil {
			logger.Warn().Err(err).Str("type", message.Type).Msg("Ошибка обработки сообщения")
		}
	}
}

// pingLoop пингует клиента, пока не закрыт done. Ответные pong продлевают
// дедлайн чтения, молчащий клиент отключается по таймауту.
func (a *WSAdapter) pingLoop(client *SafeWriter, done <-chan struct{}, logger zerolog.Logger) {
	ticker := time.NewTicker(a.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				logger.Debug().Err(err).Msg("Ошибка отправки ping")
				return
			}
		}
	}
}

func (a *WSAdapter) removeClient(client *SafeWriter) {
	a.clientsMu.Lock()
	_, ok := a.clients[client]
	delete(a.clients, client)
	a.clientsMu.Unlock()

	if ok {
		_ = client.conn.Close()
	}
}

// snapshotClients копирует список клиентов, чтобы не держать мьютекс во время записи
func (a *WSAdapter) snapshotClients() []*SafeWriter {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()

	list := make([]*SafeWriter, 0, len(a.clients))
	for client := range a.clients {
		list = append(list, client)
	}
	return list
}

func (a *WSAdapter) broadcast(msg interface{}) int {
	sent := 0
	for _, client := range a.snapshotClients() {
		if err := client.WriteJSON(msg); err != nil {
			a.logger.Warn().Err(err).Str("client", client.ID()).Msg("Ошибка при отправке, клиент отключен")
			a.removeClient(client)
			continue
		}
		sent++
	}
	return sent
}

// BroadcastState отправляет снимок заезда всем подключенным клиентам
func (a *WSAdapter) BroadcastState() int {
	return a.broadcast(NewStateMessage(a.race.Snapshot()))
}

// BroadcastCourse отправляет описание трассы всем подключенным клиентам
func (a *WSAdapter) BroadcastCourse() int {
	return a.broadcast(NewCourseMessage(a.race.Course()))
}

// ClientCount возвращает число подключенных клиентов
func (a *WSAdapter) ClientCount() int {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	return len(a.clients)
}

// Close отключает всех клиентов
func (a *WSAdapter) Close() {
	a.clientsMu.Lock()
	clients := a.clients
	a.clients = make(map[*SafeWriter]struct{})
	a.clientsMu.Unlock()

	for client := range clients {
		_ = client.Close()
	}
	a.logger.Info().Int("clients", len(clients)).Msg("WebSocket клиенты отключены")
}
