package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ramadhanidw/messenger-be/internal/config"
	"github.com/ramadhanidw/messenger-be/internal/db"
	"github.com/ramadhanidw/messenger-be/internal/handlers"
	"github.com/ramadhanidw/messenger-be/internal/logger"
	"github.com/ramadhanidw/messenger-be/internal/middleware"
	"github.com/ramadhanidw/messenger-be/internal/models"
	"github.com/ramadhanidw/messenger-be/internal/presence"
	"github.com/ramadhanidw/messenger-be/internal/realtime"
	"github.com/ramadhanidw/messenger-be/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	zlog, err := logger.New(cfg.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		zlog.Fatalw("connect postgres", "error", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Conversation{},
		&models.Message{},
	); err != nil {
		zlog.Fatalw("migrate", "error", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	// presence falls back to in-process tracking when Redis is unreachable
	var registry presence.Registry
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zlog.Warnw("redis unreachable, using in-memory presence", "error", err)
		registry = presence.NewMemory()
		rdb = nil
	} else {
		registry = presence.NewRedis(rdb, "presence")
	}

	hub := realtime.NewHub(registry, zlog)
	go hub.Run()

	chatStore := store.NewChatStore(gdb)
	authH := &handlers.AuthHandler{
		Store:     chatStore,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	chatH := handlers.NewChatHandler(chatStore, hub, registry, rdb, zlog)
	wsH := handlers.NewWSHandler(hub, cfg.JWTSecret, zlog)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)

	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/auth/user", authH.Me)
	protected.Get("/users", chatH.SearchUsers)
	protected.Get("/conversations", chatH.GetConversations)
	protected.Post("/messages", chatH.SendMessage)
	protected.Put("/conversations/:id/read", chatH.MarkRead)

	app.Get("/ws", websocket.New(wsH.Handle))

	zlog.Infow("listening", "port", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		zlog.Fatalw("serve", "error", err)
	}
}
