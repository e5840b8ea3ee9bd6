package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/damasarena/damas-backend/internal/apperror"
	"github.com/damasarena/damas-backend/internal/draughts"
	"github.com/damasarena/damas-backend/internal/entity"
	"github.com/damasarena/damas-backend/internal/service"
)

func (that *Server) handleLobbyCreate(ctx context.Context, c *client, payload json.RawMessage) error {
	log := that.logger.With("method", "handleLobbyCreate", "userID", c.userID)

	var req createLobbyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	lobby, err := that.game.CreateLobby(ctx, c.userID, req.BetAmount, req.Visibility)
	if err != nil {
		return err
	}

	c.enqueue(mustMessage(actionLobbyCreate, lobby))

	if !lobby.IsPrivate() {
		that.broadcastAll(mustMessage(eventNewLobbyRoom, lobby))
	}

	log.Info("lobby created", "lobbyID", lobby.ID, "bet", lobby.BetAmount, "visibility", lobby.Visibility)

	return nil
}

func (that *Server) handleLobbyCancel(ctx context.Context, c *client, payload json.RawMessage) error {
	log := that.logger.With("method", "handleLobbyCancel", "userID", c.userID)

	var req cancelLobbyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if req.LobbyID == "" {
		return fmt.Errorf("%w: lobby_id is required", apperror.ErrValidation)
	}

	lobby, err := that.game.CancelLobby(ctx, req.LobbyID, c.userID)
	if err != nil {
		return err
	}

	c.enqueue(mustMessage(actionLobbyCancel, lobby))
	that.broadcastAll(mustMessage(eventLobbyRoomRemoved, lobbyRemovedPayload{LobbyID: lobby.ID}))

	log.Info("lobby cancelled", "lobbyID", lobby.ID)

	return nil
}

func (that *Server) handleLobbyAccept(ctx context.Context, c *client, payload json.RawMessage) error {
	log := that.logger.With("method", "handleLobbyAccept", "userID", c.userID)

	var req acceptLobbyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	match, err := that.game.AcceptChallenge(ctx, c.userID, req.LobbyID, req.Code)
	if err != nil {
		return err
	}

	that.broadcastAll(mustMessage(eventLobbyRoomRemoved, lobbyRemovedPayload{LobbyID: match.LobbyID}))

	accepted := mustMessage(eventChallengeAccepted, matchRefPayload{MatchID: match.ID})
	that.sendToUser(match.WhiteID, accepted)
	that.sendToUser(match.BlackID, accepted)

	log.Info("challenge accepted", "matchID", match.ID, "lobbyID", match.LobbyID)

	return nil
}

func (that *Server) handleGameJoin(ctx context.Context, c *client, payload json.RawMessage) error {
	log := that.logger.With("method", "handleGameJoin", "userID", c.userID)

	var req matchRefPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if req.MatchID == "" {
		return fmt.Errorf("%w: match_id is required", apperror.ErrValidation)
	}

	match, err := that.game.JoinMatch(ctx, req.MatchID, c.userID)
	if err != nil {
		return err
	}

	present := that.joinRoom(match.ID, c)
	that.cancelAbandonTimer(c.userID)

	if match.IsWaitingPlayers() && present == 2 {
		match, err = that.game.StartMatch(ctx, match.ID)
		if err != nil {
			return err
		}
		log.Info("match started", "matchID", match.ID)
	}

	c.enqueue(mustMessage(actionGameJoin, match))
	that.broadcastRoom(match.ID, mustMessage(eventRoomStatus, that.roomStatus(match)))

	log.Info("joined match room", "matchID", match.ID)

	return nil
}

func (that *Server) handleGameMove(ctx context.Context, c *client, payload json.RawMessage) error {
	log := that.logger.With("method", "handleGameMove", "userID", c.userID)

	var req movePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if req.MatchID == "" {
		return fmt.Errorf("%w: match_id is required", apperror.ErrValidation)
	}

	move := draughts.Move{From: req.From, To: req.To, Path: req.Path}

	outcome, err := that.game.MakeMove(ctx, req.MatchID, c.userID, move)
	if err != nil {
		return err
	}

	match := outcome.Match
	that.broadcastRoom(match.ID, mustMessage(eventMoveMade, moveMadePayload{
		Board:      match.Board,
		LastMove:   match.LastMove(),
		NextPlayer: match.Turn,
	}))

	if outcome.Finished {
		that.broadcastRoom(match.ID, that.gameOverMessage(ctx, match))
	}

	log.Info("move applied", "matchID", match.ID, "finished", outcome.Finished)

	return nil
}

func (that *Server) handleGameResign(ctx context.Context, c *client, payload json.RawMessage) error {
	log := that.logger.With("method", "handleGameResign", "userID", c.userID)

	var req matchRefPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if req.MatchID == "" {
		return fmt.Errorf("%w: match_id is required", apperror.ErrValidation)
	}

	match, err := that.game.Resign(ctx, req.MatchID, c.userID)
	if err != nil {
		return err
	}

	that.broadcastRoom(match.ID, that.gameOverMessage(ctx, match))

	log.Info("player resigned", "matchID", match.ID)

	return nil
}

// gameOverMessage - the settlement summary a finished match's room gets.
func (that *Server) gameOverMessage(ctx context.Context, match *entity.Match) []byte {
	log := that.logger.With("method", "gameOverMessage", "matchID", match.ID)

	payload := gameOverPayload{
		WinnerName:  match.WinnerID,
		LoserName:   match.LoserID,
		Reason:      match.EndReason,
		Prize:       service.Prize(match),
		PlatformFee: match.PlatformFee,
	}

	if winner, err := that.game.GetUser(ctx, match.WinnerID); err != nil {
		log.Error("failed to get winner", "error", err)
	} else {
		payload.WinnerName = winner.Username
	}

	if loser, err := that.game.GetUser(ctx, match.LoserID); err != nil {
		log.Error("failed to get loser", "error", err)
	} else {
		payload.LoserName = loser.Username
	}

	return mustMessage(eventGameOver, payload)
}
