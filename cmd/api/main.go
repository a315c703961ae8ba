// Package main starts the Q&A forum API.
// Shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qa-forum/backend/internal/acceptance"
	"github.com/emilythestrangee/qa-forum/backend/internal/achievements"
	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/database"
	"github.com/emilythestrangee/qa-forum/backend/internal/handlers"
	"github.com/emilythestrangee/qa-forum/backend/internal/jobs"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/retry"
	"github.com/emilythestrangee/qa-forum/backend/internal/server"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	setupLogging(cfg)

	db, err := database.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer db.Close()

	ledger := database.NewLedger(db.GetDB())
	coord := retry.New(ledger, retry.Options{
		MaxAttempts:    cfg.TxMaxAttempts,
		InitialBackoff: cfg.TxInitialBackoff,
		MaxBackoff:     cfg.TxMaxBackoff,
	})

	tokens := middleware.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	handler := handlers.NewHandler(handlers.Deps{
		DB:           db.GetDB(),
		Voter:        voting.NewEngine(coord),
		Acceptor:     acceptance.NewEngine(coord),
		Achievements: achievements.NewService(database.NewAchievementStore(db.GetDB())),
		Tokens:       tokens,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := jobs.NewScheduler(jobs.NewRatingAuditor(ledger, coord, cfg.RatingAuditRepair), cfg.RatingAuditSchedule)
	if err := scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start rating audit")
	}
	defer scheduler.Stop()

	srv := server.New(cfg, db, handler, tokens, limiter).HTTPServer()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	sig := <-quit
	log.Infof("received %s, shutting down", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	log.SetOutput(os.Stdout)
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}
}
