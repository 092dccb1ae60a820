package main // Entry point package

import (
	"context" // Context for the realtime bridge lifetime
	"log"     // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/quickseat/quickseat/internal/config"     // Internal config loader
	"github.com/quickseat/quickseat/internal/database"   // MySQL pool
	"github.com/quickseat/quickseat/internal/handler"    // HTTP handlers
	"github.com/quickseat/quickseat/internal/middleware" // Rate limiting and response cache
	"github.com/quickseat/quickseat/internal/queue"      // Notification publisher and consumer
	"github.com/quickseat/quickseat/internal/realtime"   // Websocket hub and bridge
	"github.com/quickseat/quickseat/internal/repository" // DB repositories
	"github.com/quickseat/quickseat/internal/router"     // Route registration
	"github.com/quickseat/quickseat/internal/service"    // Business services
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	restaurants := repository.NewRestaurantRepo(db)
	menu := repository.NewMenuItemRepo(db)
	floors := repository.NewFloorRepo(db)
	reservations := repository.NewReservationRepo(db)

	// Realtime hub, bridged across instances through redis when available.
	hub := realtime.NewHub()
	rdb := config.NewRedisClient()
	if rdb != nil {
		realtime.NewBridge(context.Background(), rdb, hub)
	} else {
		log.Println("redis unavailable; realtime events stay single-instance")
	}

	// Services.
	floorplans := service.NewFloorPlanService(floors, restaurants, hub)
	bookings := service.NewBookingService(reservations, restaurants, users, menu,
		service.NotifierFunc(queue.PublishBookingNotification), hub)

	// Background consumer: emails + notification log. Runs its own
	// reconnect loop for the broker.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance

	// Redis-backed token bucket and response cache; both degrade to
	// pass-through middleware when disabled or redis is down.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterRestaurant(e, handler.NewRestaurantHandler(cfg, restaurants, menu), cfg.JWTSecret)
	router.RegisterFloorPlan(e, handler.NewFloorPlanHandler(floorplans), cfg.JWTSecret)
	router.RegisterBooking(e, handler.NewBookingHandler(bookings), cfg.JWTSecret)
	router.RegisterRealtime(e, realtime.NewWSHandler(hub, cfg.JWTSecret), handler.NewRealtimeTokenHandler(cfg), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
