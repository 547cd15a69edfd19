// Файл events.go — SSE endpoint изменений ростера.
// Каждый SSE-клиент обслуживается отдельной горутиной и получает
// событие "roster" после каждого применённого изменения Store.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/staffroster/internal/store"
)

// eventBuffer — ёмкость очереди событий одного клиента.
const eventBuffer = 16

// defaultKeepAlive — интервал keep-alive, если не задан.
const defaultKeepAlive = 15 * time.Second

// EventsHandler — обработчик SSE endpoint.
type EventsHandler struct {
	store     *store.Store
	keepAlive time.Duration
	logger    *slog.Logger
}

// NewEventsHandler создаёт новый EventsHandler.
// keepAlive — интервал комментариев keep-alive (SR_SSE_KEEPALIVE).
func NewEventsHandler(st *store.Store, keepAlive time.Duration, logger *slog.Logger) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &EventsHandler{
		store:     st,
		keepAlive: keepAlive,
		logger:    logger.With(slog.String("component", "ui.events")),
	}
}

// rosterEvent — SSE-событие изменения ростера.
type rosterEvent struct {
	Kind  store.EventKind `json:"kind"`
	ID    string          `json:"id,omitempty"`
	Total int             `json:"total"`
}

// HandleRosterEvents обрабатывает GET /roster/events — SSE endpoint.
// Формат: event: roster\ndata: {json}\n\n.
// При переполнении очереди клиента событие пропускается.
func (h *EventsHandler) HandleRosterEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events := make(chan store.Event, eventBuffer)
	unsubscribe := h.store.Subscribe(func(ev store.Event) {
		select {
		case events <- ev:
		default:
			h.logger.Debug("Очередь SSE клиента переполнена, событие пропущено")
		}
	})
	defer unsubscribe()

	// ResponseController находит http.Flusher через Unwrap() middleware-обёрток.
	// Подписка оформляется до отправки заголовков: клиент, получивший ответ,
	// уже не пропустит изменения.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE клиент подключён", slog.String("remote_addr", r.RemoteAddr))

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE клиент отключён", slog.String("remote_addr", r.RemoteAddr))
			return
		case ev := <-events:
			data, err := json.Marshal(rosterEvent{Kind: ev.Kind, ID: ev.ID, Total: len(ev.Records)})
			if err != nil {
				h.logger.Error("Ошибка сериализации события", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: roster\ndata: %s\n\n", data)
			_ = rc.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			_ = rc.Flush()
		}
	}
}
