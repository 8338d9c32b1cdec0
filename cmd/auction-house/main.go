package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"auction-house/internal/api/handlers"
	apimw "auction-house/internal/api/middleware"
	"auction-house/internal/config"
	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/memory"
	"auction-house/internal/infrastructure/mysql"
	"auction-house/internal/infrastructure/redis"
	"auction-house/internal/infrastructure/websocket"
	"auction-house/internal/services"
	"auction-house/internal/session"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"
)

func main() {
	log := logger.New()
	log.Info("Starting auction house service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := domain.SystemClock{}

	// Optional Redis: shared token store, bid event fan-out, sweep lock.
	var rdb *redisClient.Client
	if cfg.Redis.Enabled {
		rdb = redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		log.Info("Connected to Redis", "address", cfg.Redis.Address)
	}

	// Store backend
	var (
		itemRepo domain.ItemRepository
		userRepo domain.UserRepository
	)
	switch cfg.Store.Backend {
	case "memory":
		itemRepo = memory.NewItemRepository()
		userRepo = memory.NewUserRepository()
		log.Info("Using in-memory store")
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			log.Error("Failed to open MySQL", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			log.Error("Failed to ping MySQL", "error", err)
			os.Exit(1)
		}
		log.Info("Connected to MySQL")

		items := mysql.NewItemRepository(db)
		users := mysql.NewUserRepository(db)
		if err := items.EnsureSchema(ctx); err != nil {
			log.Error("Failed to ensure item schema", "error", err)
			os.Exit(1)
		}
		if err := users.EnsureSchema(ctx); err != nil {
			log.Error("Failed to ensure user schema", "error", err)
			os.Exit(1)
		}
		itemRepo = items
		userRepo = users
	default:
		log.Error("Unknown store backend", "backend", cfg.Store.Backend)
		os.Exit(1)
	}

	// Session gate
	var tokenStore domain.TokenStore
	if rdb != nil {
		tokenStore = redis.NewTokenStore(rdb)
	} else {
		tokenStore = memory.NewTokenStore(clock)
	}
	gate := session.NewGate(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, tokenStore, clock)

	// Event pipeline
	var eventPub domain.EventPublisher
	if rdb != nil {
		eventPub = redis.NewEventPublisher(rdb)
	}

	engine := services.NewAuctionEngine(itemRepo, clock, eventPub, log)
	accounts := services.NewAccountService(userRepo, gate, clock, log)

	if err := bootstrapAdmin(ctx, cfg, userRepo, clock); err != nil {
		log.Error("Failed to provision admin user", "error", err)
		os.Exit(1)
	}

	// Live feed: redis events -> websocket subscribers
	connManager := websocket.NewConnectionManager(log)
	feedCtx, feedCancel := context.WithCancel(context.Background())
	defer feedCancel()
	if rdb != nil {
		subscriber := redis.NewEventSubscriber(rdb, log)
		go func() {
			err := subscriber.SubscribeToBidEvents(feedCtx, func(event *domain.BidEvent) error {
				return connManager.BroadcastToItem(event.ItemID, event)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Bid event subscription ended", "error", err)
			}
		}()
	}

	// Optional expiry sweep
	var sweeper *services.ExpirySweeper
	if cfg.Sweep.Enabled {
		var sweepLock domain.SweepLock
		if rdb != nil {
			sweepLock = redis.NewSweepLock(rdb)
		}
		sweeper = services.NewExpirySweeper(engine, sweepLock, cfg.Instance.ID, cfg.Sweep.Interval, log)
		if err := sweeper.Start(feedCtx); err != nil {
			log.Error("Failed to start expiry sweeper", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.RequestID())
	e.Use(echomw.LoggerWithConfig(echomw.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))

	authHandler := handlers.NewAuthHandler(accounts, log)
	itemHandler := handlers.NewItemHandler(engine, log)
	feedHandler := websocket.NewFeedHandler(itemRepo, connManager, log)

	authed := apimw.Auth(gate)

	e.POST("/signup", authHandler.Signup)
	e.POST("/signin", authHandler.Signin)
	e.POST("/logout", authHandler.Logout, authed)

	api := e.Group("/api/v1")
	api.POST("/items", itemHandler.CreateItem, authed, apimw.RequireAdmin())
	api.GET("/items", itemHandler.ListItems)
	api.GET("/items/:id", itemHandler.GetItem)
	api.POST("/items/:id/bids", itemHandler.PlaceBid, authed)
	api.GET("/items/:id/bids", itemHandler.GetBidHistory)

	e.GET("/ws/items/:id", feedHandler.HandleConnection)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-house",
			"timestamp": clock.Now().Format(time.RFC3339),
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting HTTP server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction house service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if sweeper != nil {
		if err := sweeper.Stop(); err != nil {
			log.Error("Failed to stop sweeper", "error", err)
		}
	}
	feedCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction house service stopped")
}

// bootstrapAdmin provisions the configured admin account. Signup never
// grants the admin role; this is the trusted path.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users domain.UserRepository, clock domain.Clock) error {
	if cfg.Auth.AdminUsername == "" || cfg.Auth.AdminPassword == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = users.CreateUser(ctx, &domain.User{
		ID:           utils.GenerateID("user"),
		Username:     cfg.Auth.AdminUsername,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    clock.Now(),
	})
	if errors.Is(err, domain.ErrDuplicateUsername) {
		return nil
	}
	return err
}
