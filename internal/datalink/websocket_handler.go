package datalink

import (
	"github.com/sdr-enthusiasts/acarshub-server/internal/websocket"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// WebSocketHandler handles incoming WebSocket messages from dashboard
// clients and answers them from the engine.
type WebSocketHandler struct {
	handler *MessageHandler
	logger  *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket message handler
func NewWebSocketHandler(handler *MessageHandler, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		handler: handler,
		logger:  log.Named("engine-ws-handler"),
	}
}

// HandleMessage handles incoming WebSocket messages
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case websocket.MessageTypePlanesReq:
		return h.handlePlanesRequest(client, data)
	case websocket.MessageTypeTabNav:
		return h.handleTabNav(client, data)
	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return nil
	}
}

// handlePlanesRequest answers with the current visible plane list.
func (h *WebSocketHandler) handlePlanesRequest(client *websocket.Client, data map[string]any) error {
	visibleOnly := true
	if v, ok := data["include_hidden"].(bool); ok && v {
		visibleOnly = false
	}

	var planes []PlaneView
	if visibleOnly {
		planes = h.handler.GetAllMessages()
	} else {
		planes = h.handler.GetAllPlanes()
	}

	message := &websocket.Message{
		Type: websocket.MessageTypePlanesResp,
		Data: map[string]any{
			"planes": planes,
			"count":  len(planes),
		},
	}

	if !client.SendMessage(message) {
		h.logger.Warn("Client send channel full, dropping planes response")
	}
	return nil
}

// handleTabNav navigates a plane's selected message tab and echoes the
// new selection back to the requesting client.
func (h *WebSocketHandler) handleTabNav(client *websocket.Client, data map[string]any) error {
	planeUID, _ := data["plane"].(string)
	direction, _ := data["direction"].(string)

	dir := TabRight
	if direction == "left" {
		dir = TabLeft
	}

	selected, ok := h.handler.NavigateTab(planeUID, dir)
	if !ok {
		h.logger.Debug("Tab navigation for unknown plane", logger.String("plane", planeUID))
		return nil
	}

	message := &websocket.Message{
		Type: websocket.MessageTypeTabNav,
		Data: map[string]any{
			"plane":        planeUID,
			"selected_tab": selected,
		},
	}

	if !client.SendMessage(message) {
		h.logger.Warn("Client send channel full, dropping tab response")
	}
	return nil
}
