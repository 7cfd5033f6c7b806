package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tickethub/tickethub/internal/booking"
	"github.com/tickethub/tickethub/internal/config"
	"github.com/tickethub/tickethub/internal/database"
	"github.com/tickethub/tickethub/internal/handler"
	"github.com/tickethub/tickethub/internal/queue"
	"github.com/tickethub/tickethub/internal/repository"
	"github.com/tickethub/tickethub/internal/router"
	"github.com/tickethub/tickethub/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, caching and rate limiting disabled")
	}

	events := repository.NewEventRepo(db)
	seats := repository.NewSeatRepo(db)
	tickets := repository.NewTicketRepo(db)
	users := repository.NewUserRepo(db)
	refresh := repository.NewTokenRepo(db)

	tokens := booking.NewTokenService(cfg.TicketSecret)
	engine := booking.NewEngine(events, seats, tickets, booking.NewRoleAuthorizer(users), tokens)
	query := booking.NewQuery(events, seats, tickets)
	publisher := queue.NewPublisher(cfg.AMQPURL)

	// Background audit-log consumer for ticket lifecycle events.
	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartTicketConsumer(cfg.AMQPURL); err != nil {
				log.Printf("ticket consumer stopped: %v", err)
			}
		}()
	}

	// Periodic sweep for inventory/ledger drift.
	reconciler := worker.NewReconciler(events, seats, tickets, refresh, 5*time.Minute)
	if err := reconciler.Start(); err != nil {
		log.Printf("start reconciler: %v", err)
	}
	defer reconciler.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(cfg, users, refresh),
		Events:    handler.NewEventHandler(events, seats, query),
		Tickets:   handler.NewTicketHandler(engine, query, events, publisher),
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
	})

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
