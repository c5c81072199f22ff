package session

import (
	"context"
	"errors"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/lobby"
	"github.com/DoyleJ11/scratch-race-backend/internal/track"
)

// Error codes shared by the HTTP and WebSocket bindings.
const (
	CodeInvalidArgument   = "invalid_argument"
	CodeNotFound          = "session_not_found"
	CodeNotAParticipant   = "not_a_participant"
	CodeNotYourTurn       = "not_your_turn"
	CodeInvalidPhase      = "invalid_phase"
	CodeGameFull          = "game_full"
	CodeAlreadyStarted    = "already_started"
	CodeNotAuthorized     = "not_authorized"
	CodeConflict          = "concurrent_modification"
	CodeBetRejected       = "bet_rejected"
	CodeInsufficientFunds = "insufficient_funds"
	CodeTicketNotFound    = "ticket_not_found"
	CodeUnavailable       = "store_unavailable"
	CodeTimeout           = "timeout"
	CodeInternal          = "internal"
)

// Code classifies err for clients.
func Code(err error) string {
	var perr *lobby.PersistenceError
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, engine.ErrUnsupportedCommand),
		errors.Is(err, engine.ErrInvalidHorse),
		errors.Is(err, track.ErrInvalidHorse):
		return CodeInvalidArgument
	case errors.Is(err, lobby.ErrSessionNotFound):
		return CodeNotFound
	case errors.Is(err, engine.ErrNotAParticipant):
		return CodeNotAParticipant
	case errors.Is(err, engine.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, engine.ErrInvalidPhase),
		errors.Is(err, betting.ErrBettingClosed):
		return CodeInvalidPhase
	case errors.Is(err, engine.ErrGameFull):
		return CodeGameFull
	case errors.Is(err, engine.ErrAlreadyStarted):
		return CodeAlreadyStarted
	case errors.Is(err, engine.ErrNotAuthorized):
		return CodeNotAuthorized
	case errors.Is(err, lobby.ErrConcurrentModification):
		return CodeConflict
	case errors.Is(err, betting.ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, betting.ErrTicketNotFound):
		return CodeTicketNotFound
	case errors.Is(err, betting.ErrBetTooSmall),
		errors.Is(err, betting.ErrInvalidPool),
		errors.Is(err, betting.ErrHorseUnavailable),
		errors.Is(err, betting.ErrInvalidBonus):
		return CodeBetRejected
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CodeTimeout
	case errors.As(err, &perr):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
