package main // Entry point package

import (
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zeawatch/backend/internal/config"
	"github.com/zeawatch/backend/internal/database"
	"github.com/zeawatch/backend/internal/email"
	"github.com/zeawatch/backend/internal/handler"
	"github.com/zeawatch/backend/internal/queue"
	"github.com/zeawatch/backend/internal/repository"
	"github.com/zeawatch/backend/internal/router"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	audits := repository.NewAuditRepo(db)
	mail := email.NewSender(cfg)

	// The audit consumer drains audit.events into the audit_logs table for
	// the lifetime of the process.
	go queue.StartAuditConsumer(audits)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, mail), config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
