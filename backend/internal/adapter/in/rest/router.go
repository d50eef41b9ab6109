package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"marble-race/backend/internal/core/domain/entity"
	racePort "marble-race/backend/internal/core/port/in/race"
	"marble-race/backend/internal/game"
	"marble-race/backend/internal/telemetry"
)

const (
	defaultResultsLimit = 10
	maxResultsLimit     = 100
)

// TickerStats - статистика игрового цикла
type TickerStats interface {
	GetStats() game.Stats
	GetSystemsStats() map[string]game.SystemStats
}

// Deps - зависимости HTTP слоя
type Deps struct {
	Race      racePort.RacePort
	Results   racePort.ResultsQuery
	Ticker    TickerStats
	Telemetry *telemetry.TelemetryManager
	WS        http.HandlerFunc
	Logger    zerolog.Logger
}

type handler struct {
	Deps
}

// NewRouter собирает маршруты сервера
func NewRouter(deps Deps) http.Handler {
	h := &handler{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Get("/race", h.race)
		r.Get("/course", h.course)
		r.Post("/race/restart", h.restart)
		r.Get("/results", h.bestResults)
		r.Get("/results/recent", h.recentResults)
	})

	if deps.WS != nil {
		r.Get("/ws", deps.WS)
	}

	return r
}

// requestLogger пишет запросы в zerolog вместо стандартного логгера chi
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP запрос")
		})
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Warn().Err(err).Msg("Ошибка записи ответа")
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	snap := h.Race.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"phase":  snap.HUD.Phase,
		"tick":   snap.Tick,
	})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	if h.Ticker != nil {
		resp["ticker"] = h.Ticker.GetStats()
		resp["systems"] = h.Ticker.GetSystemsStats()
	}
	if h.Telemetry != nil {
		resp["telemetry"] = h.Telemetry.Summary()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) race(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Race.Snapshot())
}

func (h *handler) course(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Race.Course())
}

func (h *handler) restart(w http.ResponseWriter, r *http.Request) {
	h.Race.RequestRestart()
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

// parseLimit читает ?limit=, по умолчанию defaultResultsLimit
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultResultsLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	return min(limit, maxResultsLimit), true
}

func (h *handler) bestResults(w http.ResponseWriter, r *http.Request) {
	h.listResults(w, r, false)
}

func (h *handler) recentResults(w http.ResponseWriter, r *http.Request) {
	h.listResults(w, r, true)
}

func (h *handler) listResults(w http.ResponseWriter, r *http.Request, recent bool) {
	if h.Results == nil {
		h.writeError(w, http.StatusServiceUnavailable, "хранилище результатов не настроено")
		return
	}

	limit, ok := parseLimit(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "limit должен быть положительным числом")
		return
	}

	var (
		list []*entity.RaceResult
		err  error
	)
	if recent {
		list, err = h.Results.RecentResults(r.Context(), limit)
	} else {
		list, err = h.Results.BestResults(r.Context(), limit)
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("Ошибка чтения результатов")
		h.writeError(w, http.StatusInternalServerError, "не удалось прочитать результаты")
		return
	}
	if list == nil {
		list = []*entity.RaceResult{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"results": list})
}
