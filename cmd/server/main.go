package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/scratch-race-backend/internal/commentary"
	"github.com/DoyleJ11/scratch-race-backend/internal/config"
	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/httpapi"
	"github.com/DoyleJ11/scratch-race-backend/internal/hub"
	"github.com/DoyleJ11/scratch-race-backend/internal/lobby"
	"github.com/DoyleJ11/scratch-race-backend/internal/logging"
	"github.com/DoyleJ11/scratch-race-backend/internal/session"
	"github.com/DoyleJ11/scratch-race-backend/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer kv.Close()

	sessions := store.NewSessions(kv)
	wallets := store.NewWallets(kv, cfg.StartingBankroll)

	var commentator commentary.Commentator = commentary.Nop{}
	if cfg.Commentary {
		commentator = commentary.NewCanned(time.Now().UnixNano())
	}

	// Lobbies outlive the signal context so shutdown can drain them.
	h := hub.NewHub(context.Background(), hub.DepsFactory(lobby.Deps{
		Repo:        sessions,
		Wallet:      wallets,
		Dice:        engine.NewRandDice(time.Now().UnixNano()),
		Commentator: commentator,
		MinBet:      cfg.MinBet,
		Logger:      log,
	}))
	svc := session.NewService(h, sessions, wallets, log, session.Options{
		DefaultMaxPlayers:    cfg.DefaultMaxPlayers,
		DefaultStartingChips: cfg.DefaultStartingChips,
	})

	// Build the router *with* the service injected
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(svc, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		if serr := svc.Shutdown(sctx); serr != nil && err == nil {
			err = serr
		}
		return err
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (store.KV, error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		return store.NewRedis(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RecordTTL,
		})
	case config.DriverPostgres:
		return store.NewPostgres(cfg.DatabaseURL)
	default:
		return store.NewMemory(), nil
	}
}
