package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/andikarp/bus-ticketing/internal/config"
	"github.com/andikarp/bus-ticketing/internal/database"
	"github.com/andikarp/bus-ticketing/internal/gateway"
	"github.com/andikarp/bus-ticketing/internal/handler"
	"github.com/andikarp/bus-ticketing/internal/logger"
	appmw "github.com/andikarp/bus-ticketing/internal/middleware"
	"github.com/andikarp/bus-ticketing/internal/queue"
	"github.com/andikarp/bus-ticketing/internal/repository"
	"github.com/andikarp/bus-ticketing/internal/router"
	"github.com/andikarp/bus-ticketing/internal/worker"
)

func main() {
	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Init(cfg.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zap.L().Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	routes := repository.NewRouteRepo(db)
	tickets := repository.NewTicketRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	var gw *gateway.Client
	if cfg.GatewayKey != "" {
		gw = gateway.New(cfg.GatewayBaseURL, cfg.GatewayKey)
	} else {
		zap.L().Warn("PAYMENT_GATEWAY_KEY unset, payment integration disabled")
	}

	authH := handler.NewAuthHandler(cfg, users, tokens)
	browseH := handler.NewBrowseHandler(routes, tickets)
	bookingH := handler.NewBookingHandler(cfg, routes, tickets, gw)
	paymentH := handler.NewPaymentHandler(tickets, gw)

	// Redis is only used for rate limiting; the middleware passes traffic
	// through untouched when the client is nil.
	rdb := config.NewRedisClient()
	rateLimit := appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterPublic(e, browseH)
	router.RegisterAuth(e, authH, rateLimit)
	router.RegisterBooking(e, authH, bookingH, paymentH, cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := queue.StartConsumer(); err != nil {
			zap.L().Error("queue consumer exited", zap.Error(err))
		}
	}()
	go worker.RunExpirySweeper(ctx, tickets, cfg.SweepInterval)

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down")
		_ = e.Shutdown(context.Background())
	}()

	zap.L().Info("listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := e.Start(":" + cfg.Port); err != nil {
		zap.L().Info("server stopped", zap.Error(err))
	}
}
