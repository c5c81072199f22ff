package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scratch-race-backend/internal/session"
	"github.com/DoyleJ11/scratch-race-backend/internal/ws"
)

func SetupRoutes(svc *session.Service, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	a := &api{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(svc, log))
	r.Get("/races", a.races)
	r.Get("/wallets/{player}", a.wallet)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", a.createSession)
		r.Post("/local", a.startLocal)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getSession)
			r.Post("/join", a.join)
			r.Post("/ready", a.ready)
			r.Post("/scratch", a.scratch)
			r.Post("/race", a.race)
			r.Post("/horses", a.enterHorse)
			r.Post("/bets", a.placeBet)
			r.Get("/bets", a.tickets)
			r.Delete("/bets/{ticket}", a.cancelBet)
			r.Get("/odds", a.odds)
			r.Put("/partnership", a.partnership)
			r.Delete("/players/{player}", a.removePlayer)
		})
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
