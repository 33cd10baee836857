package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mabletask/telemetry/dailylog"
	"mabletask/telemetry/database"
	"mabletask/telemetry/handlers"
	"mabletask/telemetry/middleware"
	"mabletask/telemetry/store"
	"mabletask/telemetry/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	// Two rotating channels: app-{date}.log for the system stream and
	// user_activity-{date}.log for activity events.
	appWriter, err := dailylog.NewWriter(logDir, "app")
	if err != nil {
		log.Fatalf("Failed to open system log channel: %v", err)
	}
	defer appWriter.Close()

	activityWriter, err := dailylog.NewWriter(logDir, "user_activity")
	if err != nil {
		log.Fatalf("Failed to open activity log channel: %v", err)
	}
	defer activityWriter.Close()

	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	sysLogger := dailylog.NewSystemLogger(io.MultiWriter(os.Stdout, appWriter), level)
	sysLogger.With("module", "dailylog").Info("web service started - daily logging configured")

	// PostgreSQL holds users and the activity journal.
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// ClickHouse holds the analytics mirror for the stats endpoints.
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	userStore := store.NewUserStore(dbClient.DB)
	activityStore := store.NewActivityStore(dbClient.DB)
	analyticsStore := store.NewAnalyticsStore(chClient)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()
	if err := activityStore.EnsureSchema(startupCtx); err != nil {
		log.Fatalf("Failed to ensure journal schema: %v", err)
	}
	if err := analyticsStore.EnsureSchema(startupCtx); err != nil {
		log.Fatalf("Failed to ensure analytics schema: %v", err)
	}

	recorder := telemetry.NewRecorder(activityWriter, activityStore, sysLogger)
	sessions := telemetry.NewSessionStore()
	tracker := telemetry.NewDwellTracker(recorder, sessions, sysLogger)

	authHandlers := handlers.NewAuthHandlers(userStore, recorder, sysLogger)
	telemetryHandlers := handlers.NewTelemetryHandlers(tracker, recorder, sysLogger)
	statsHandlers := handlers.NewStatsHandlers(analyticsStore, sysLogger)
	journalHandlers := handlers.NewJournalHandlers(activityStore, sysLogger)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.ActivityLogger(recorder, tracker, sysLogger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandlers.Signup)
		auth.POST("/login", authHandlers.Login)
		auth.POST("/logout", authHandlers.Logout)
	}

	api := r.Group("/api")
	{
		// Client-side measurement ingest; excluded from activity logging so
		// delivery requests never log themselves.
		collect := api.Group("/telemetry")
		{
			collect.POST("/dwell", telemetryHandlers.LogDwellTime)
			collect.POST("/click", telemetryHandlers.LogClickEvent)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired())
		{
			stats := protected.Group("/stats")
			{
				stats.GET("/event-counts", statsHandlers.GetEventCountsOverTime)
				stats.GET("/top-paths", statsHandlers.GetTopPagePaths)
				stats.GET("/average-dwell", statsHandlers.GetAverageDwellSeconds)
			}

			journal := protected.Group("/journal")
			{
				journal.GET("/activity", journalHandlers.ListActivity)
				journal.DELETE("/activity", journalHandlers.Prune)
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Telemetry server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Telemetry server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
