package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/draughts"
	"github.com/damasarena/damas-backend/internal/entity"
	"github.com/damasarena/damas-backend/internal/service"
)

type gameUseCase interface {
	CreateLobby(ctx context.Context, userID string, bet int64, visibility string) (*entity.Lobby, error)
	CancelLobby(ctx context.Context, lobbyID, userID string) (*entity.Lobby, error)
	AcceptChallenge(ctx context.Context, userID, lobbyID, code string) (*entity.Match, error)

	JoinMatch(ctx context.Context, matchID, userID string) (*entity.Match, error)
	StartMatch(ctx context.Context, matchID string) (*entity.Match, error)
	MakeMove(ctx context.Context, matchID, userID string, move draughts.Move) (*service.MoveOutcome, error)
	Resign(ctx context.Context, matchID, userID string) (*entity.Match, error)
	AbandonMatch(ctx context.Context, matchID string) (*entity.Match, error)

	GetUser(ctx context.Context, userID string) (*entity.User, error)
}

type tokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Server - the realtime session router. One goroutine per connection; the
// shared presence maps are guarded here, the match state itself by the
// service layer's per-match locks.
type Server struct {
	logger *slog.Logger
	game   gameUseCase
	tokens tokenVerifier

	abandonTimeout time.Duration

	upgrader websocket.Upgrader

	mu          sync.RWMutex
	connections map[string]*client
	rooms       map[string]map[string]*client

	timersMu      sync.Mutex
	abandonTimers map[string]*time.Timer

	handlers map[string]func(ctx context.Context, c *client, payload json.RawMessage) error
}

func New(logger *slog.Logger, game gameUseCase, tokens tokenVerifier, abandonTimeout time.Duration) *Server {
	server := &Server{
		logger:         logger,
		game:           game,
		tokens:         tokens,
		abandonTimeout: abandonTimeout,

		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		connections:   make(map[string]*client),
		rooms:         make(map[string]map[string]*client),
		abandonTimers: make(map[string]*time.Timer),

		handlers: make(map[string]func(context.Context, *client, json.RawMessage) error),
	}

	server.handlers[actionLobbyCreate] = server.handleLobbyCreate
	server.handlers[actionLobbyCancel] = server.handleLobbyCancel
	server.handlers[actionLobbyAccept] = server.handleLobbyAccept
	server.handlers[actionGameJoin] = server.handleGameJoin
	server.handlers[actionGameMove] = server.handleGameMove
	server.handlers[actionGameResign] = server.handleGameResign

	return server
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveWS(ctx, w, r)
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS - authenticates the request and upgrades it. A bad token is
// rejected before the upgrade completes.
func (that *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS")

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := that.tokens.VerifyToken(token)
	if err != nil {
		log.Error("failed to verify token", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := that.game.GetUser(ctx, userID)
	if err != nil {
		log.Error("failed to get user", "userID", userID, "error", err)
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(user.ID, user.Username, conn)
	that.register(c)

	log.Info("connection established", "userID", c.userID, "username", c.username)

	go c.writePump()
	that.readLoop(ctx, c)
}

// bearerToken - token from the query string or the Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}

	return ""
}

// readLoop - dispatches inbound messages until the connection dies.
func (that *Server) readLoop(ctx context.Context, c *client) {
	log := that.logger.With("method", "readLoop", "userID", c.userID)

	defer that.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("connection dropped", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			c.enqueue(mustMessage(eventGameError, gameErrorPayload{Message: "malformed message"}))
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			c.enqueue(mustMessage(eventGameError, gameErrorPayload{Message: "unknown action: " + message.Action}))
			continue
		}

		if err = handler(ctx, c, message.Payload); err != nil {
			log.Error("action failed", "action", message.Action, "error", err)
			c.enqueue(mustMessage(eventGameError, gameErrorPayload{Message: clientMessage(err)}))
		}
	}
}

// register - registers the connection for a user. A newer connection
// supersedes the older one, which gets closed.
func (that *Server) register(c *client) {
	that.mu.Lock()
	old := that.connections[c.userID]
	that.connections[c.userID] = c
	that.mu.Unlock()

	if old != nil {
		_ = old.conn.Close()
	}

	that.cancelAbandonTimer(c.userID)
}

// disconnect - removes presence and starts the reconnect window for every
// ongoing match the user was sitting in.
func (that *Server) disconnect(c *client) {
	log := that.logger.With("method", "disconnect", "userID", c.userID)

	_ = c.conn.Close()

	that.mu.Lock()
	if that.connections[c.userID] == c {
		delete(that.connections, c.userID)
	}

	var left []string
	for matchID, members := range that.rooms {
		if members[c.userID] != c {
			continue
		}

		delete(members, c.userID)
		if len(members) == 0 {
			delete(that.rooms, matchID)
		}
		left = append(left, matchID)
	}
	that.mu.Unlock()

	for _, matchID := range left {
		that.roomLeft(matchID, c)
	}

	log.Info("connection closed")
}

// roomLeft - presence update after a disconnect from one match room.
func (that *Server) roomLeft(matchID string, c *client) {
	log := that.logger.With("method", "roomLeft", "matchID", matchID, "userID", c.userID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	match, err := that.game.JoinMatch(ctx, matchID, c.userID)
	if err != nil {
		log.Error("failed to load match", "error", err)
		return
	}

	that.broadcastRoom(matchID, mustMessage(eventRoomStatus, that.roomStatus(match)))

	if match.IsOngoing() {
		that.startAbandonTimer(matchID, c.userID)
		log.Info("reconnect window started", "timeout", that.abandonTimeout)
	}
}

func (that *Server) startAbandonTimer(matchID, userID string) {
	that.timersMu.Lock()
	defer that.timersMu.Unlock()

	if timer, ok := that.abandonTimers[userID]; ok {
		timer.Stop()
	}

	that.abandonTimers[userID] = time.AfterFunc(that.abandonTimeout, func() {
		that.abandonExpired(matchID, userID)
	})
}

func (that *Server) cancelAbandonTimer(userID string) {
	that.timersMu.Lock()
	defer that.timersMu.Unlock()

	if timer, ok := that.abandonTimers[userID]; ok {
		timer.Stop()
		delete(that.abandonTimers, userID)
	}
}

// abandonExpired - the disconnected player never came back; the match is
// cancelled and both stakes go home.
func (that *Server) abandonExpired(matchID, userID string) {
	log := that.logger.With("method", "abandonExpired", "matchID", matchID, "userID", userID)

	that.timersMu.Lock()
	delete(that.abandonTimers, userID)
	that.timersMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	match, err := that.game.AbandonMatch(ctx, matchID)
	if err != nil {
		log.Error("failed to cancel match", "error", err)
		return
	}

	if !match.IsCancelled() {
		return
	}

	log.Info("match cancelled, reconnect window expired")
	that.MatchCancelled(match)
}

// LobbyRemoved - lets the janitor announce a lobby it expired.
func (that *Server) LobbyRemoved(lobbyID string) {
	that.broadcastAll(mustMessage(eventLobbyRoomRemoved, lobbyRemovedPayload{LobbyID: lobbyID}))
}

// MatchCancelled - announces a refunded match to its room and dissolves
// the room.
func (that *Server) MatchCancelled(match *entity.Match) {
	that.broadcastRoom(match.ID, mustMessage(eventGameCancelled, gameCancelledPayload{Reason: match.EndReason}))

	that.mu.Lock()
	delete(that.rooms, match.ID)
	that.mu.Unlock()
}

// joinRoom - adds the client to a match room, reports room size.
func (that *Server) joinRoom(matchID string, c *client) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	room := that.rooms[matchID]
	if room == nil {
		room = make(map[string]*client)
		that.rooms[matchID] = room
	}
	room[c.userID] = c

	return len(room)
}

// roomStatus - who is present in the match room right now.
func (that *Server) roomStatus(match *entity.Match) roomStatusPayload {
	that.mu.RLock()
	defer that.mu.RUnlock()

	players := make([]string, 0, 2)
	for _, member := range that.rooms[match.ID] {
		players = append(players, member.username)
	}
	sort.Strings(players)

	return roomStatusPayload{MatchID: match.ID, Players: players, Status: match.Status}
}

func (that *Server) broadcastAll(msg []byte) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, c := range that.connections {
		c.enqueue(msg)
	}
}

func (that *Server) broadcastRoom(matchID string, msg []byte) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, c := range that.rooms[matchID] {
		c.enqueue(msg)
	}
}

func (that *Server) sendToUser(userID string, msg []byte) {
	that.mu.RLock()
	c, ok := that.connections[userID]
	that.mu.RUnlock()

	if ok {
		c.enqueue(msg)
	}
}

// clientMessage - the message a client may see. Domain errors pass
// through, everything else collapses to a generic one.
func clientMessage(err error) string {
	for _, sentinel := range []error{
		apperror.ErrValidation,
		apperror.ErrNotFound,
		apperror.ErrInsufficientFunds,
		apperror.ErrAmountOutOfBounds,
		apperror.ErrLobbyUnavailable,
		apperror.ErrBetTooHigh,
		apperror.ErrOwnLobby,
		apperror.ErrMatchNotOngoing,
		apperror.ErrMatchFinished,
		apperror.ErrNotYourTurn,
		apperror.ErrNotParticipant,
		apperror.ErrIllegalMove,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	return "internal error"
}
