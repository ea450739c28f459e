package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fixbro/api/database"
	"fixbro/api/handlers"
	"fixbro/api/logger"
	"fixbro/api/middleware"
	"fixbro/api/notify"
	"fixbro/api/store"
)

func main() {
	// Load .env before the logger reads LOG_LEVEL. Missing file is fine in
	// production, where the real environment is supplied.
	if err := godotenv.Load(); err != nil {
		stdlog.Printf("No .env file found or error loading .env: %v", err)
	}

	log := logger.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))
	defer log.Sync()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Postgres holds mutable records: admin users and notifications.
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatal("failed to initialize PostgreSQL database", zap.Error(err))
	}
	defer dbClient.Close()

	// ClickHouse holds the append-only tracking streams.
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatal("failed to initialize ClickHouse database", zap.Error(err))
	}
	defer chClient.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSchema()
	if err := dbClient.EnsureSchema(schemaCtx); err != nil {
		log.Fatal("failed to apply PostgreSQL schema", zap.Error(err))
	}
	if err := chClient.EnsureSchema(schemaCtx); err != nil {
		log.Fatal("failed to apply ClickHouse schema", zap.Error(err))
	}

	userStore := store.NewUserStore(dbClient.DB)
	notificationStore := store.NewNotificationStore(dbClient.DB)
	analyticsStore := store.NewAnalyticsStore(chClient)
	visitorStore := store.NewVisitorStore(chClient)
	emitter := notify.NewEmitter(notificationStore, log)

	authHandlers := handlers.NewAuthHandlers(userStore, log)
	trackHandlers := handlers.NewTrackHandlers(analyticsStore, visitorStore, emitter, log)
	adminHandlers := handlers.NewAdminHandlers(analyticsStore, visitorStore, notificationStore, log)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		// Tracking endpoints are open: they receive beacons from every
		// visitor's browser.
		api.POST("/track", trackHandlers.TrackVisitor)
		api.POST("/track/event", trackHandlers.TrackEvent)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(log))
		{
			admin.GET("/page-visits", adminHandlers.GetPageVisits)
			admin.GET("/user-events", adminHandlers.GetUserEvents)
			admin.GET("/visitor-logs", adminHandlers.GetVisitorLogs)
			admin.DELETE("/visitor-logs", adminHandlers.ClearVisitorLogs)
			admin.DELETE("/user-activity", adminHandlers.ClearUserActivity)

			admin.GET("/notifications", adminHandlers.GetNotifications)
			admin.GET("/notifications/unread-count", adminHandlers.GetUnreadNotificationsCount)
			admin.POST("/notifications/mark-all-read", adminHandlers.MarkAllNotificationsRead)
			admin.DELETE("/notifications", adminHandlers.ClearNotifications)

			admin.GET("/stats/top-paths", adminHandlers.GetTopPagePaths)
			admin.GET("/stats/event-counts", adminHandlers.GetEventCountsOverTime)
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
		log.Info("analytics API server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
}
