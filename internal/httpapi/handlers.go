package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
	"github.com/DoyleJ11/scratch-race-backend/internal/parimutuel"
	"github.com/DoyleJ11/scratch-race-backend/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PlayerHeader carries the caller's player id. Authentication happens in
// front of this service.
const PlayerHeader = "X-Player-ID"

const defaultHistory = 20

type api struct {
	svc *session.Service
	log *zap.Logger
}

type createRequest struct {
	CreatorName   string `json:"creator_name"`
	MaxPlayers    *int   `json:"max_players"`
	StartingChips *int64 `json:"starting_chips"`
}

type localRequest struct {
	Names         []string `json:"names"`
	StartingChips *int64   `json:"starting_chips"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type horseRequest struct {
	Horse int    `json:"horse"`
	Name  string `json:"name"`
}

type betRequest struct {
	Horse  int                 `json:"horse"`
	Pool   parimutuel.PoolType `json:"pool"`
	Amount decimal.Decimal     `json:"amount"`
}

type bonusRequest struct {
	Bonus decimal.Decimal `json:"bonus"`
}

type idResponse struct {
	ID string `json:"game_id"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (a *api) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !a.decode(w, r, &req) {
		return
	}
	defaults := a.svc.Defaults()
	maxPlayers, chips := defaults.DefaultMaxPlayers, defaults.DefaultStartingChips
	if req.MaxPlayers != nil {
		maxPlayers = *req.MaxPlayers
	}
	if req.StartingChips != nil {
		chips = *req.StartingChips
	}

	id, err := a.svc.CreateSession(r.Context(), playerID(r), req.CreatorName, maxPlayers, chips)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (a *api) startLocal(w http.ResponseWriter, r *http.Request) {
	var req localRequest
	if !a.decode(w, r, &req) {
		return
	}
	chips := a.svc.Defaults().DefaultStartingChips
	if req.StartingChips != nil {
		chips = *req.StartingChips
	}
	id, err := a.svc.StartLocal(r.Context(), req.Names, chips)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (a *api) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.GetSessionState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *api) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !a.decode(w, r, &req) {
		return
	}
	status, err := a.svc.JoinSession(r.Context(), chi.URLParam(r, "id"), playerID(r), req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]session.JoinStatus{"status": status})
}

func (a *api) ready(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.SetReady(r.Context(), chi.URLParam(r, "id"), playerID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *api) scratch(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.RollForScratch(r.Context(), chi.URLParam(r, "id"), playerID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) race(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.RollForRace(r.Context(), chi.URLParam(r, "id"), playerID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) enterHorse(w http.ResponseWriter, r *http.Request) {
	var req horseRequest
	if !a.decode(w, r, &req) {
		return
	}
	snap, err := a.svc.EnterHorse(r.Context(), chi.URLParam(r, "id"), playerID(r), req.Horse, req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *api) placeBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if !a.decode(w, r, &req) {
		return
	}
	ticket, err := a.svc.PlaceBet(r.Context(), chi.URLParam(r, "id"), betting.BetRequest{
		PlayerID: playerID(r),
		Horse:    req.Horse,
		Pool:     req.Pool,
		Amount:   req.Amount,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (a *api) tickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := a.svc.Tickets(r.Context(), chi.URLParam(r, "id"), playerID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (a *api) cancelBet(w http.ResponseWriter, r *http.Request) {
	ticket, err := a.svc.CancelBet(r.Context(), chi.URLParam(r, "id"), playerID(r), chi.URLParam(r, "ticket"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (a *api) odds(w http.ResponseWriter, r *http.Request) {
	odds, err := a.svc.Odds(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, odds)
}

func (a *api) partnership(w http.ResponseWriter, r *http.Request) {
	var req bonusRequest
	if !a.decode(w, r, &req) {
		return
	}
	snap, err := a.svc.SetPartnershipBonus(r.Context(), chi.URLParam(r, "id"), playerID(r), req.Bonus)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *api) removePlayer(w http.ResponseWriter, r *http.Request) {
	err := a.svc.RemovePlayer(r.Context(), chi.URLParam(r, "id"), playerID(r), chi.URLParam(r, "player"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) races(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistory
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Code: session.CodeInvalidArgument, Error: "limit must be a number"})
			return
		}
		limit = n
	}
	recs, err := a.svc.RaceHistory(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *api) wallet(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	bal, err := a.svc.Balance(r.Context(), player)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player_id": player, "balance": bal})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func playerID(r *http.Request) string {
	return r.Header.Get(PlayerHeader)
}

// decode reads an optional JSON body. An empty body leaves v untouched.
func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: session.CodeInvalidArgument, Error: "bad json"})
		return false
	}
	return true
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := session.Code(err)
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("path", r.URL.Path), zap.String("code", code), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Error: err.Error()})
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case session.CodeInvalidArgument, session.CodeBetRejected:
		return http.StatusBadRequest
	case session.CodeNotAParticipant, session.CodeNotYourTurn, session.CodeNotAuthorized:
		return http.StatusForbidden
	case session.CodeNotFound, session.CodeTicketNotFound:
		return http.StatusNotFound
	case session.CodeInvalidPhase, session.CodeGameFull, session.CodeAlreadyStarted, session.CodeConflict:
		return http.StatusConflict
	case session.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case session.CodeUnavailable:
		return http.StatusServiceUnavailable
	case session.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
