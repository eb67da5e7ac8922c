package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/engine"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/api"
)

const inspectTimeout = 2 * time.Second

// DebugHandler предоставляет доступ к внутреннему состоянию движка
type DebugHandler struct {
	Engine *engine.Engine
}

func NewDebugHandler(e *engine.Engine) *DebugHandler {
	return &DebugHandler{Engine: e}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/groups", h.handleGroups)
	mux.HandleFunc("/debug/clients", h.handleClients)
	mux.HandleFunc("/debug/lights", h.handleLights)
	mux.HandleFunc("/debug/tasks", h.handleTasks)
	mux.HandleFunc("/debug/trigger", h.handleTrigger)
}

// inspect снимает диагностику через тик движка; состояние напрямую не читается.
func (h *DebugHandler) inspect(w http.ResponseWriter, r *http.Request) (engine.Diagnostics, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
	defer cancel()
	d, err := h.Engine.Inspect(ctx)
	if err != nil {
		http.Error(w, "engine is not responding", http.StatusServiceUnavailable)
		return d, false
	}
	return d, true
}

// /debug/groups - группы интереса: объекты, подписчики, статистика отправки
func (h *DebugHandler) handleGroups(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.inspect(w, r); ok {
		writeJSON(w, d.Groups)
	}
}

// /debug/clients - клиенты и их текущие комнаты
func (h *DebugHandler) handleClients(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.inspect(w, r); ok {
		writeJSON(w, d.Clients)
	}
}

// /debug/lights - метки и состояния путевых огней
func (h *DebugHandler) handleLights(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.inspect(w, r); ok {
		writeJSON(w, d.Lights)
	}
}

// /debug/tasks - очереди планировщиков
func (h *DebugHandler) handleTasks(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.inspect(w, r); ok {
		writeJSON(w, d.Tasks)
	}
}

// POST /debug/trigger {"kind":"WARHEAD_STARTING"} - ручной запуск события раунда
func (h *DebugHandler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var p api.TriggerPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t := domain.Trigger{Kind: domain.ParseTrigger(p.Kind), Phase: p.Phase, Allowed: true}
	if t.Kind == domain.TriggerUnknown {
		http.Error(w, "unknown trigger kind", http.StatusBadRequest)
		return
	}
	if p.Allowed != nil {
		t.Allowed = *p.Allowed
	}

	ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
	defer cancel()
	if err := h.Engine.Trigger(ctx, t); err != nil {
		http.Error(w, "engine is not responding", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, t)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	// Разрешаем запросы с любого источника (нужно для локального debug-клиента)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")

	// Если data == nil (например, пустая очередь), возвращаем пустой массив [], а не null
	if data == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}

	_ = json.NewEncoder(w).Encode(data)
}
