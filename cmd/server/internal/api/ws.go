package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/livemeet/livemeet/cmd/server/internal/auth"
	"github.com/livemeet/livemeet/cmd/server/internal/broadcast"
	"github.com/livemeet/livemeet/cmd/server/internal/events"
	"github.com/livemeet/livemeet/cmd/server/internal/pipeline"
	"github.com/livemeet/livemeet/cmd/server/internal/room"
)

const (
	// readLimit bounds one inbound frame: a few seconds of encoded audio plus
	// envelope overhead.
	readLimit = 2 * 1024 * 1024
	pongWait  = 60 * time.Second

	liveViewLines = 20
)

// Server holds the collaborators behind the HTTP and websocket surface.
type Server struct {
	registry *room.Registry
	manager  *room.Manager
	hub      *broadcast.Hub
	pipeline *pipeline.Pipeline
	auth     auth.Authorizer
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer wires the API surface. allowedOrigins gates websocket upgrades in
// addition to the CORS middleware on REST routes.
func NewServer(registry *room.Registry, manager *room.Manager, hub *broadcast.Hub,
	pl *pipeline.Pipeline, authorizer auth.Authorizer, allowedOrigins []string, logger *slog.Logger) *Server {

	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Server{
		registry: registry,
		manager:  manager,
		hub:      hub,
		pipeline: pl,
		auth:     authorizer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser client
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// signal is one inbound client frame. Fields beyond Type apply per signal.
type signal struct {
	Type       string    `json:"type"`
	RoomID     string    `json:"room_id,omitempty"`
	Token      string    `json:"token,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Audio      string    `json:"audio,omitempty"` // base64
	MimeType   string    `json:"mime_type,omitempty"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

// HandleWS upgrades the connection and runs the signal loop until the client
// disconnects. A dropped connection leaves its room automatically.
func (s *Server) HandleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "client_ip", c.ClientIP())
		return
	}

	connID := uuid.NewString()
	s.hub.Register(connID, conn)
	s.logger.Debug("client connected", "conn_id", connID)

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	defer func() {
		if roomID, ok := s.registry.RoomOf(connID); ok {
			s.registry.Leave(roomID, connID)
		}
		s.hub.Unregister(connID)
		s.logger.Debug("client disconnected", "conn_id", connID)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var sig signal
		if err := json.Unmarshal(msg, &sig); err != nil {
			s.logger.Debug("unparseable signal dropped", "conn_id", connID, "error", err)
			continue
		}

		switch sig.Type {
		case "join-meeting":
			s.handleJoin(c.Request.Context(), connID, sig)
		case "leave-meeting":
			s.handleLeave(connID, sig)
		case "audio-chunk":
			s.handleAudioChunk(connID, sig)
		default:
			s.logger.Debug("unknown signal ignored", "conn_id", connID, "signal", sig.Type)
		}
	}
}

func (s *Server) handleJoin(ctx context.Context, connID string, sig signal) {
	claims, err := s.auth.Authorize(ctx, sig.Token, sig.RoomID)
	if err != nil {
		s.sendError(connID, sig.RoomID, "NOT_AUTHORIZED", "join rejected: "+err.Error())
		return
	}

	p := room.Participant{ID: connID, UserID: sig.UserID, Name: sig.Name}
	if claims != nil {
		p.UserID = claims.UserID
		if claims.Name != "" {
			p.Name = claims.Name
		}
	}
	if p.Name == "" {
		p.Name = "guest"
	}

	r, err := s.registry.Join(sig.RoomID, p)
	if err != nil {
		if errors.Is(err, room.ErrRoomClosed) {
			s.sendError(connID, sig.RoomID, "ROOM_CLOSED", "meeting has ended")
		} else {
			s.sendError(connID, sig.RoomID, "ROOM_NOT_FOUND", err.Error())
		}
		return
	}

	// One-shot snapshot instead of a backlog replay.
	state := r.LiveState(liveViewLines)
	s.hub.SendTo(connID, events.Event{
		Type:      events.TypeLiveState,
		RoomID:    sig.RoomID,
		Timestamp: time.Now(),
		LiveState: &state,
	})
}

func (s *Server) handleLeave(connID string, sig signal) {
	roomID := sig.RoomID
	if roomID == "" {
		if id, ok := s.registry.RoomOf(connID); ok {
			roomID = id
		}
	}
	if roomID == "" {
		return
	}
	s.registry.Leave(roomID, connID)
}

func (s *Server) handleAudioChunk(connID string, sig signal) {
	if !s.registry.IsMember(sig.RoomID, connID) {
		s.sendError(connID, sig.RoomID, string(pipeline.NOT_IN_ROOM), "join the meeting before sending audio")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(sig.Audio)
	if err != nil {
		s.logger.Debug("undecodable audio chunk dropped", "conn_id", connID, "room_id", sig.RoomID, "error", err)
		return
	}

	capturedAt := sig.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	s.hub.SendTo(connID, events.Event{
		Type:      events.TypeProcessing,
		RoomID:    sig.RoomID,
		Timestamp: time.Now(),
	})

	go func() {
		_, err := s.pipeline.SubmitChunk(context.Background(), sig.RoomID, connID, audio, sig.MimeType, capturedAt)
		if err != nil {
			// Failed chunks are dropped without a client-visible error; the
			// next chunk proceeds independently.
			s.logger.Warn("audio chunk dropped", "conn_id", connID, "room_id", sig.RoomID, "error", err)
		}
	}()
}

func (s *Server) sendError(connID, roomID, code, message string) {
	s.hub.SendTo(connID, events.Event{
		Type:      events.TypeError,
		RoomID:    roomID,
		Timestamp: time.Now(),
		Code:      code,
		Message:   message,
	})
}
