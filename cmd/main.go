package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"codeduel/internal/ai"
	"codeduel/internal/auth"
	"codeduel/internal/config"
	"codeduel/internal/database"
	"codeduel/internal/handlers"
	"codeduel/internal/jobs"
	"codeduel/internal/judge"
	"codeduel/internal/llm"
	"codeduel/internal/problems"
	"codeduel/internal/repository"
	"codeduel/internal/services"
	"codeduel/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	db, err := database.Connect(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	duelRepo := repository.NewDuelRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	// Initialize the sandboxed judge
	grader := judge.New(judge.Options{
		TimeLimitSec:     cfg.Judge.TimeLimitSec,
		MemoryLimitMB:    cfg.Judge.MemoryLimitMB,
		RateLimitPerMin:  cfg.Judge.RateLimitPerMin,
		SandboxImage:     cfg.Judge.SandboxImage,
		SandboxImageNode: cfg.Judge.SandboxImageNode,
	})

	// Initialize LLM-backed problem generation and AI opponents
	llmClient := llm.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	if !llmClient.Available() {
		log.Println("ANTHROPIC_API_KEY not set, problems come from the curated pool and AI opponents type reference solutions")
	}
	generator := problems.NewGenerator(llmClient, grader)
	picker := problems.NewSelector(problemRepo, generator, cfg.Duel.ProblemTTLDays, cfg.Duel.ProblemMaxReuse)

	// Initialize realtime hub and AI opponent
	hub := ws.NewHub(time.Duration(cfg.Realtime.CodeUpdateDebounceMs)*time.Millisecond, 0)
	opponent := ai.NewOpponent(llmClient, hub)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	ratingService := services.NewRatingService(ratingRepo, cfg.Duel.EloKFactor)
	duelService := services.NewDuelService(duelRepo, problemRepo, picker, grader, ratingService, hub, opponent)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	duelHandler := handlers.NewDuelHandler(duelService, ratingService)
	wsHandler := handlers.NewWSHandler(hub, duelService, time.Duration(cfg.Realtime.WSTimeoutSec)*time.Second)

	// Start the duel sweeper job
	sweeper := jobs.NewDuelSweeper(duelService, duelRepo, jobs.SweeperConfig{
		Interval:              time.Duration(cfg.Duel.SweepIntervalSec) * time.Second,
		WaitingTimeoutRandom:  time.Duration(cfg.Duel.WaitingTimeoutRandomSec) * time.Second,
		WaitingTimeoutAI:      time.Duration(cfg.Duel.WaitingTimeoutAISec) * time.Second,
		WaitingTimeoutPrivate: time.Duration(cfg.Duel.WaitingTimeoutPrivateSec) * time.Second,
		MaxDuration:           time.Duration(cfg.Duel.MaxDurationSec) * time.Second,
	})
	go sweeper.Start()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:3001",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:3001",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Duel websocket (token is validated from the query string during upgrade)
	router.GET("/duels/ws/:duelId", wsHandler.HandleDuelWS)

	// Public leaderboard route
	router.GET("/public/duels/leaderboard", duelHandler.GetLeaderboard)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Matchmaking endpoints - must come before :id routes
		api.POST("/duels/create", duelHandler.CreateDuel)
		api.POST("/duels/join", duelHandler.JoinDuel)
		api.POST("/duels/ai-duel", duelHandler.CreateAIDuel)
		api.POST("/duels/cancel", duelHandler.CancelDuel)
		api.GET("/duels/active", duelHandler.GetActiveDuel)
		api.GET("/duels/active-or-waiting", duelHandler.GetActiveOrWaitingDuel)

		// Rating endpoints
		api.GET("/duels/stats/me", duelHandler.GetMyStats)
		api.GET("/duels/leaderboard", duelHandler.GetLeaderboard)
		api.GET("/duels/history", duelHandler.GetHistory)

		// Per-duel endpoints
		api.GET("/duels/:id", duelHandler.GetDuel)
		api.POST("/duels/:id/submit", duelHandler.SubmitCode)
		api.POST("/duels/:id/test-code", duelHandler.TestCode)
		api.POST("/duels/:id/report-duplicate", duelHandler.ReportDuplicate)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Player auth: POST http://localhost:%s/auth/login", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop background jobs before closing the listener
	sweeper.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
