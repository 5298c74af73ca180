package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Dosada05/bracket-engine/events"
	"github.com/Dosada05/bracket-engine/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	errorHelpers
	hub            *events.Hub
	bracketService services.BracketService
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler accepts spectators from allowedOrigins; "*" allows any
// origin.
func NewWebSocketHandler(hub *events.Hub, bracketService services.BracketService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		errorHelpers:   errorHelpers{logger: logger},
		hub:            hub,
		bracketService: bracketService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// ServeWs joins the caller to the tournament's room and sends it the current
// bracket before any live update.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := parseTournamentID(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.GetBracketView(r.Context(), tournamentID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
		return
	}

	room := events.RoomFor(tournamentID)
	client := &events.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: room,
	}

	snapshot, err := json.Marshal(events.WebSocketMessage{Type: events.TypeBracketSnapshot, Payload: view, RoomID: room})
	if err == nil {
		client.Send <- snapshot
	}
	if !client.Hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.DebugContext(r.Context(), "spectator joined", slog.String("room", room))
}
