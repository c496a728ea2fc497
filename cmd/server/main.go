package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ani-canvas-backend/internal/auth"
	"ani-canvas-backend/internal/config"
	"ani-canvas-backend/internal/database"
	"ani-canvas-backend/internal/functions"
	"ani-canvas-backend/internal/gallery"
	"ani-canvas-backend/internal/handlers"
	"ani-canvas-backend/internal/middleware"
	"ani-canvas-backend/internal/notify"
	"ani-canvas-backend/internal/realtime"
	"ani-canvas-backend/internal/supabase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Run migrations
	migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("Failed to initialize migrator: %v", err)
	}
	if err := migrator.Run(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	migrator.Close()

	// Initialize Supabase clients
	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	hub := realtime.NewHub(logger)

	documentClient, err := supabase.NewDocumentClient(cfg.DatabaseURL, hub)
	if err != nil {
		log.Fatalf("Failed to initialize document client: %v", err)
	}
	defer documentClient.Close()

	realtimeClient, err := supabase.NewRealtimeClient(cfg.DatabaseURL, hub)
	if err != nil {
		log.Fatalf("Failed to initialize realtime client: %v", err)
	}
	defer realtimeClient.Close()

	// Services
	authClient := auth.NewGoTrueClient(supabaseClient.Supabase.Auth)
	authService := auth.NewService(authClient, documentClient, realtimeClient, cfg.SharePath, logger)

	notifyClient := notify.NewClient(cfg.SlackAPIBaseURL, cfg.SlackBotToken)
	galleryService := gallery.NewService(documentClient, storageClient, realtimeClient, notifyClient,
		cfg.AniCanvasPath, cfg.PageSize, logger)

	dispatcher := functions.NewDispatcher(cfg.FunctionVersions, realtimeClient, cfg.SharePath, logger)
	functions.RegisterGetSessions(dispatcher, realtimeClient, cfg.SharePath)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, hub)
	galleryHandler := handlers.NewGalleryHandler(galleryService, authService, documentClient, hub)
	webhooksHandler := handlers.NewWebhooksHandler(galleryService, hub)
	functionsHandler := handlers.NewFunctionsHandler(dispatcher)

	// Setup router
	router := gin.Default()
	router.Use(cors.Default())

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	// Public auth surface
	router.POST("/api/v1/auth/signup", authHandler.SignUp)
	router.POST("/api/v1/auth/signin", authHandler.SignIn)
	router.GET("/api/v1/auth/oauth/:provider", authHandler.OAuth)
	router.POST("/api/v1/auth/reset", authHandler.PasswordReset)
	router.POST("/api/v1/auth/verify", authHandler.EmailVerification)
	router.GET("/api/v1/auth/email-check", authHandler.EmailCheck)

	// Public gallery browsing; viewer identity is optional
	public := router.Group("/api/v1")
	public.Use(middleware.OptionalAuthMiddleware(cfg))
	public.GET("/galleries/:user_name", galleryHandler.GetGallery)
	public.GET("/galleries/:user_name/events", galleryHandler.Events)
	public.GET("/galleries/:user_name/animations/:animation_id/manifest", galleryHandler.Manifest)

	// Authenticated API
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))
	api.POST("/auth/signout", authHandler.SignOut)
	api.POST("/auth/password", authHandler.UpdatePassword)
	api.GET("/profile/events", authHandler.ProfileEvents)
	api.POST("/galleries/:user_name/animations", galleryHandler.Upload)
	api.DELETE("/galleries/:user_name/animations/:animation_id", galleryHandler.Remove)
	api.GET("/webhooks", webhooksHandler.List)
	api.POST("/webhooks", webhooksHandler.Add)
	api.GET("/webhooks/events", webhooksHandler.Events)
	api.GET("/webhooks/current/events", webhooksHandler.CurrentEvents)
	api.DELETE("/webhooks/:channel", webhooksHandler.Remove)
	api.PUT("/webhooks/current", webhooksHandler.SetCurrent)
	api.POST("/functions/:name", functionsHandler.Invoke)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	logger.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
