package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"whisply/internal/cache"
	"whisply/internal/config"
	"whisply/internal/database"
	"whisply/internal/engine"
	"whisply/internal/handlers"
	"whisply/internal/mail"
	"whisply/internal/middleware"
	"whisply/internal/realtime"
	"whisply/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	middleware.SetSecret(cfg.JWTSecret)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := database.NewAdapter(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to %s database: %v", cfg.Database.Type, err)
	}
	defer db.Close(context.Background())
	log.Printf("Connected to %s database", cfg.Database.Type)

	var commentCache *cache.CommentCache
	if cfg.Cache.Enabled {
		commentCache, err = cache.Connect(ctx, cfg.Cache.Addr)
		if err != nil {
			// The cache is an optimization; the database remains the
			// source of truth.
			log.Printf("Comment cache unavailable at %s, continuing without it: %v", cfg.Cache.Addr, err)
			commentCache = nil
		} else {
			log.Printf("Comment cache connected at %s", cfg.Cache.Addr)
		}
	}

	mailer := mail.NewSMTPMailer(cfg.SMTP)
	metrics := utils.NewMetricsCollector()

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, db, commentCache, mailer, cfg.FrontendURL, metrics)

	hub := realtime.NewHub()
	go hub.Run()

	server := handlers.NewServer(system, eng, hub, metrics, commentCache)

	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /auth/signup", server.HandleSignup())
	mux.HandleFunc("POST /auth/login", server.HandleLogin())
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(server.HandleMe()))
	mux.HandleFunc("POST /auth/change-password", middleware.RequireAuth(server.HandleChangePassword()))
	mux.HandleFunc("POST /auth/forgot-password", server.HandleForgotPassword())
	mux.HandleFunc("POST /auth/reset-password/{token}", server.HandleResetPassword())

	// Posts and comments
	mux.HandleFunc("GET /posts", server.HandleListPosts())
	mux.HandleFunc("POST /posts", middleware.RequireAuth(server.HandleCreatePost()))
	mux.HandleFunc("GET /posts/{id}", server.HandleGetPost())
	mux.HandleFunc("PUT /posts/{id}", middleware.RequireAuth(server.HandleUpdatePost()))
	mux.HandleFunc("DELETE /posts/{id}", middleware.RequireAuth(server.HandleDeletePost()))
	mux.HandleFunc("POST /posts/{id}/comments", server.HandleCreateComment())

	// Dashboard
	mux.HandleFunc("GET /dashboard", middleware.RequireAuth(server.HandleDashboard()))
	mux.HandleFunc("GET /dashboard/posts", middleware.RequireAuth(server.HandleMyPosts()))

	// Realtime and ops
	mux.HandleFunc("GET /ws", server.HandleWebSocket())
	mux.HandleFunc("GET /health", server.HandleHealth())

	handler := middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins))(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
