package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sdr-enthusiasts/acarshub-server/internal/config"
	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/internal/storage/sqlite"
	"github.com/sdr-enthusiasts/acarshub-server/internal/websocket"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	engine   *datalink.MessageHandler
	settings *datalink.SettingsStore
	storage  *sqlite.MessageStorage
	config   *config.Config
	logger   *logger.Logger
	wsServer *websocket.Server
}

// NewHandler creates a new API handler
func NewHandler(engine *datalink.MessageHandler, settings *datalink.SettingsStore, storage *sqlite.MessageStorage, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		engine:   engine,
		settings: settings,
		storage:  storage,
		config:   cfg,
		logger:   log.Named("api-handler"),
		wsServer: wsServer,
	}
}

// GetPlanes returns the current plane registry, display filters applied.
// ?include_hidden=true returns the full registry instead.
func (h *Handler) GetPlanes(w http.ResponseWriter, r *http.Request) {
	var planes []datalink.PlaneView
	if r.URL.Query().Get("include_hidden") == "true" {
		planes = h.engine.GetAllPlanes()
	} else {
		planes = h.engine.GetAllMessages()
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"planes": planes,
		"count":  len(planes),
	})
}

// GetPlaneByUID returns one plane by its UID
func (h *Handler) GetPlaneByUID(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		http.Error(w, "Missing plane UID", http.StatusBadRequest)
		return
	}

	plane, found := h.engine.GetPlane(uid)
	if !found {
		http.Error(w, "Plane not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, plane)
}

// NavigateTab moves a plane's selected message tab left or right
func (h *Handler) NavigateTab(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		http.Error(w, "Missing plane UID", http.StatusBadRequest)
		return
	}

	var dir datalink.TabDirection
	switch chi.URLParam(r, "direction") {
	case "left":
		dir = datalink.TabLeft
	case "right":
		dir = datalink.TabRight
	default:
		http.Error(w, "Direction must be left or right", http.StatusBadRequest)
		return
	}

	selected, ok := h.engine.NavigateTab(uid, dir)
	if !ok {
		http.Error(w, "Plane not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"plane":        uid,
		"selected_tab": selected,
	})
}

// GetRecentMessages returns the newest archived messages
func (h *Handler) GetRecentMessages(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		http.Error(w, "Message archive not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > 1000 {
			http.Error(w, "Limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages, err := h.storage.RecentMessages(limit)
	if err != nil {
		h.logger.Error("Failed to query recent messages", logger.Error(err))
		http.Error(w, "Failed to query messages", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}

// SearchMessages queries the archive by flight, tail, label, message
// text, protocol, and time range
func (h *Handler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		http.Error(w, "Message archive not available", http.StatusServiceUnavailable)
		return
	}

	params := r.URL.Query()
	query := sqlite.SearchQuery{
		Flight:   params.Get("flight"),
		Tail:     params.Get("tail"),
		Label:    params.Get("label"),
		Text:     params.Get("text"),
		Protocol: params.Get("protocol"),
		Limit:    50,
	}

	for name, dst := range map[string]*float64{
		"start_time": &query.StartTime,
		"end_time":   &query.EndTime,
	} {
		if s := params.Get(name); s != "" {
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil || parsed < 0 {
				http.Error(w, name+" must be a unix timestamp", http.StatusBadRequest)
				return
			}
			*dst = parsed
		}
	}

	if s := params.Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > 1000 {
			http.Error(w, "Limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		query.Limit = parsed
	}

	messages, err := h.storage.SearchMessages(query)
	if err != nil {
		h.logger.Error("Failed to search messages", logger.Error(err))
		http.Error(w, "Failed to search messages", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}

// settingsResponse is the wire shape of the display settings
type settingsResponse struct {
	ExcludeEmptyMessages bool     `json:"exclude_empty_messages"`
	ExcludedLabels       []string `json:"excluded_labels"`
	MaxPlanes            int      `json:"max_planes"`
}

// GetSettings returns the current display settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, settingsResponse{
		ExcludeEmptyMessages: h.settings.ExcludeEmptyMessages(),
		ExcludedLabels:       h.settings.ExcludedLabels(),
		MaxPlanes:            h.settings.MaxPlanes(),
	})
}

// UpdateSettings replaces the display settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse settings request", logger.Error(err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.MaxPlanes < 1 {
		http.Error(w, "max_planes must be at least 1", http.StatusBadRequest)
		return
	}

	h.settings.Update(req.ExcludeEmptyMessages, req.ExcludedLabels, req.MaxPlanes)
	h.logger.Info("Display settings updated",
		logger.Bool("exclude_empty", req.ExcludeEmptyMessages),
		logger.Int("excluded_labels", len(req.ExcludedLabels)),
		logger.Int("max_planes", req.MaxPlanes))

	h.GetSettings(w, r)
}

// GetStatus returns engine and archive counters
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Status()

	resp := map[string]interface{}{
		"engine":  status,
		"clients": h.wsServer.ClientCount(),
	}

	if h.storage != nil {
		total, err := h.storage.Count()
		if err != nil {
			h.logger.Error("Failed to count archived messages", logger.Error(err))
		} else {
			byProtocol, err := h.storage.CountByProtocol()
			if err != nil {
				h.logger.Error("Failed to count messages by protocol", logger.Error(err))
			}
			resp["archive"] = map[string]interface{}{
				"total":       total,
				"by_protocol": byProtocol,
			}
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// HandleWebSocket upgrades the connection and hands it to the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
