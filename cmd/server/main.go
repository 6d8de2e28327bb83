package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/avelyth/loresheet/internal/config"
	"github.com/avelyth/loresheet/internal/database"
	"github.com/avelyth/loresheet/internal/handler"
	"github.com/avelyth/loresheet/internal/middleware"
	"github.com/avelyth/loresheet/internal/queue"
	"github.com/avelyth/loresheet/internal/repository"
	"github.com/avelyth/loresheet/internal/router"
	queue_publisher "github.com/avelyth/loresheet/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	resets := repository.NewResetRepo(db)
	characters := repository.NewCharacterRepo(db)
	saves := repository.NewSaveRepo(db)

	auth := handler.NewAuthHandler(cfg, users, resets, queue_publisher.PublishPasswordResetRequested)
	chars := handler.NewCharacterHandler(characters, saves, queue_publisher.PublishCharacterSaved)

	// Redis is optional: a nil client disables rate limiting and caching and
	// the API keeps working without them.
	rdb := config.NewRedisClient()
	var limiter, cache echo.MiddlewareFunc
	if rdb != nil {
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	// Mail + audit consumers keep their own reconnect loop.
	go func() {
		if err := queue.StartConsumers(); err != nil {
			log.Printf("queue consumers stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret, limiter)
	router.RegisterCharacters(e, chars, cfg.JWTSecret)
	router.RegisterPublic(e, chars, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
