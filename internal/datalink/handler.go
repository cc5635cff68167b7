package datalink

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sdr-enthusiasts/acarshub-server/internal/config"
	"github.com/sdr-enthusiasts/acarshub-server/internal/websocket"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// WebSocketServer defines the interface for a WebSocket server
type WebSocketServer interface {
	Broadcast(message *websocket.Message)
}

// AlertMatcher reports the alert terms a message matches, if any. The
// engine attaches the result but does not do the matching itself.
type AlertMatcher interface {
	Match(m *Message) []string
}

// Archive persists inbound messages. Archival happens before
// deduplication: the archive keeps every transmission, the live view
// collapses them.
type Archive interface {
	SaveMessage(m *Message) error
}

// Publisher mirrors processed messages to an external sink (MQTT).
type Publisher interface {
	Publish(m *Message)
}

// MessageResult summarizes one processed message for the caller, which
// uses it to decide whether to re-render immediately.
type MessageResult struct {
	UID           string `json:"uid"`
	HasAlerts     bool   `json:"has_alerts"`
	ShouldDisplay bool   `json:"should_display"`
}

// EngineStatus is the snapshot returned by the status API.
type EngineStatus struct {
	Planes         int    `json:"planes"`
	PlanesWithPos  int    `json:"planes_with_position"`
	Messages       int    `json:"messages"`
	MessagesSeen   uint64 `json:"messages_seen"`
	DuplicatesSeen uint64 `json:"duplicates_seen"`
}

// PlaneView is a copy of one plane's state safe to hand to the API and
// WebSocket layers while the engine keeps mutating the originals.
type PlaneView struct {
	UID              string           `json:"uid"`
	Callsign         string           `json:"callsign,omitempty"`
	Hex              string           `json:"hex,omitempty"`
	Tail             string           `json:"tail,omitempty"`
	SelectedTab      string           `json:"selected_tab,omitempty"`
	ManuallySelected bool             `json:"manually_selected,omitempty"`
	Position         *PositionTarget  `json:"position,omitempty"`
	PositionUpdated  float64          `json:"position_updated,omitempty"`
	History          []PositionSample `json:"history,omitempty"`
	Messages         []Message        `json:"messages"`
}

// MessageHandler owns the plane registry and runs every engine
// operation. All mutation happens under one mutex: the ingest listeners
// and the API read paths serialize here, so no two registry mutations
// can interleave (the ordering guarantees depend on that).
type MessageHandler struct {
	mu         sync.Mutex
	registry   *Registry
	correlator *Correlator
	merger     *PositionMerger
	filter     *DisplayFilter
	settings   Settings
	alerts     AlertMatcher
	archive    Archive
	wsServer   WebSocketServer
	publisher  Publisher
	logger     *logger.Logger

	messagesSeen   uint64
	duplicatesSeen uint64
}

// NewMessageHandler creates the engine. archive, wsServer, and
// publisher may be nil; the corresponding step is skipped.
func NewMessageHandler(
	engineCfg config.EngineConfig,
	settings Settings,
	alerts AlertMatcher,
	archive Archive,
	wsServer WebSocketServer,
	publisher Publisher,
	log *logger.Logger,
) *MessageHandler {
	policy := DefaultPolicy()
	if engineCfg.MultipartWindowSecs > 0 {
		policy.MultipartWindowSecs = engineCfg.MultipartWindowSecs
	}

	return &MessageHandler{
		registry:   NewRegistry(engineCfg.MaxPlanes),
		correlator: NewCorrelator(policy),
		merger:     NewPositionMerger(engineCfg.MaxPositionHistory, engineCfg.DeriveMagneticHeading),
		filter:     NewDisplayFilter(settings),
		settings:   settings,
		alerts:     alerts,
		archive:    archive,
		wsServer:   wsServer,
		publisher:  publisher,
		logger:     log.Named("engine"),
	}
}

// OnMessage processes one inbound datalink message: alert matching,
// archival, identity derivation, registry lookup, correlation or plane
// creation, and promotion. The loading flag marks backlog replay; the
// engine processes those identically but does not broadcast them.
func (h *MessageHandler) OnMessage(msg *Message, loading bool) MessageResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messagesSeen++
	if msg.UID == "" {
		msg.UID = uuid.NewString()
	}

	if h.alerts != nil {
		if terms := h.alerts.Match(msg); len(terms) > 0 {
			msg.Matched = true
			msg.MatchedText = terms
		}
	}

	if h.archive != nil {
		if err := h.archive.SaveMessage(msg); err != nil {
			h.logger.Error("Failed to archive message",
				logger.Error(err),
				logger.String("uid", msg.UID))
		}
	}

	id := MessageIdentity(msg)

	// stored is the message that survives in the registry: msg itself
	// on a new conversation turn, or the existing entry msg was folded
	// into. Broadcasts and results refer to stored, never to a consumed
	// inbound copy.
	var stored *Message

	if idx, ok := h.registry.Find(id); ok {
		plane := h.registry.At(idx)
		merged := h.correlator.Correlate(plane, msg)
		if merged {
			h.duplicatesSeen++
		}
		plane.backfillIdentity(id)
		plane.updateSelectedTab()
		h.registry.Promote(idx)
		stored = plane.Messages[0]

		if msg.Matched && !stored.Matched {
			stored.Matched = true
			stored.MatchedText = msg.MatchedText
		}

		h.logger.Debug("Message correlated",
			logger.String("plane", plane.UID),
			logger.String("callsign", plane.Callsign),
			logger.Bool("merged", merged))
	} else {
		plane := NewPlane(msg, id)
		h.registry.InsertFront(plane)
		stored = msg

		h.logger.Debug("New plane created",
			logger.String("plane", plane.UID),
			logger.String("callsign", plane.Callsign),
			logger.Int("registry_size", h.registry.Len()))
	}

	result := MessageResult{
		UID:           stored.UID,
		HasAlerts:     stored.Matched,
		ShouldDisplay: h.filter.ShouldDisplay(stored),
	}

	if !loading {
		if h.wsServer != nil {
			h.wsServer.Broadcast(&websocket.Message{
				Type: websocket.MessageTypeACARSMsg,
				Data: map[string]any{
					"message":        stored,
					"uid":            result.UID,
					"has_alerts":     result.HasAlerts,
					"should_display": result.ShouldDisplay,
				},
			})
		}
		if h.publisher != nil {
			h.publisher.Publish(msg)
		}
	}

	return result
}

// OnPositions processes one batch of ADS-B position updates, then
// sweeps the registry for planes whose position has dropped out of the
// feed.
func (h *MessageHandler) OnPositions(batch *PositionBatch) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range batch.Aircraft {
		target := &batch.Aircraft[i]
		id := PositionIdentity(target)
		if id.None() {
			continue
		}

		if idx, ok := h.registry.Find(id); ok {
			plane := h.registry.At(idx)
			h.merger.Merge(plane, target, batch.Now)
			h.registry.Promote(idx)
		} else {
			plane := NewPlaneFromPosition(target, id, batch.Now)
			h.registry.InsertFront(plane)
		}
	}

	h.merger.Sweep(h.registry.Planes(), batch.Now)
	if removed := h.registry.DropEmpty(); removed > 0 {
		h.logger.Debug("Removed planes with no remaining state",
			logger.Int("removed", removed))
	}

	if h.wsServer != nil {
		h.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeADSBUpdate,
			Data: map[string]any{
				"aircraft_count": len(batch.Aircraft),
				"now":            batch.Now,
			},
		})
	}

	h.logger.Debug("Position batch processed",
		logger.Int("aircraft", len(batch.Aircraft)),
		logger.Int("registry_size", h.registry.Len()))
}

// NavigateTab moves a plane's selected message tab left or right with
// wraparound. It returns the newly selected message UID.
func (h *MessageHandler) NavigateTab(planeUID string, dir TabDirection) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, ok := h.registry.Find(Identity{UID: planeUID})
	if !ok {
		return "", false
	}
	return h.registry.At(idx).NavigateTab(dir), true
}

// GetAllPlanes returns a snapshot of every plane in registry order,
// limited to the configured display bound, with all messages included.
func (h *MessageHandler) GetAllPlanes() []PlaneView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot(false)
}

// GetAllMessages returns a snapshot of the planes with only the
// messages that pass the display filter. Planes left with no visible
// messages and no live position are omitted.
func (h *MessageHandler) GetAllMessages() []PlaneView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot(true)
}

// GetPlane returns a snapshot of a single plane by UID.
func (h *MessageHandler) GetPlane(uid string) (PlaneView, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, ok := h.registry.Find(Identity{UID: uid})
	if !ok {
		return PlaneView{}, false
	}
	return h.viewOf(h.registry.At(idx), false), true
}

// Status returns engine counters for the status API.
func (h *MessageHandler) Status() EngineStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := EngineStatus{
		Planes:         h.registry.Len(),
		MessagesSeen:   h.messagesSeen,
		DuplicatesSeen: h.duplicatesSeen,
	}
	for _, p := range h.registry.Planes() {
		status.Messages += len(p.Messages)
		if p.Position != nil {
			status.PlanesWithPos++
		}
	}
	return status
}

func (h *MessageHandler) snapshot(visibleOnly bool) []PlaneView {
	maxPlanes := h.settings.MaxPlanes()

	views := make([]PlaneView, 0, h.registry.Len())
	for _, p := range h.registry.Planes() {
		if maxPlanes > 0 && len(views) >= maxPlanes {
			break
		}
		view := h.viewOf(p, visibleOnly)
		if visibleOnly && len(view.Messages) == 0 && view.Position == nil {
			continue
		}
		views = append(views, view)
	}
	return views
}

func (h *MessageHandler) viewOf(p *Plane, visibleOnly bool) PlaneView {
	view := PlaneView{
		UID:              p.UID,
		Callsign:         p.Callsign,
		Hex:              p.Hex,
		Tail:             p.Tail,
		SelectedTab:      p.SelectedTab,
		ManuallySelected: p.ManuallySelected,
		PositionUpdated:  p.PositionUpdated,
		Messages:         make([]Message, 0, len(p.Messages)),
	}
	if p.Position != nil {
		fix := *p.Position
		view.Position = &fix
	}
	if len(p.History) > 0 {
		view.History = append([]PositionSample(nil), p.History...)
	}
	for _, m := range p.Messages {
		if visibleOnly && !h.filter.ShouldDisplay(m) {
			continue
		}
		view.Messages = append(view.Messages, *m)
	}
	return view
}
