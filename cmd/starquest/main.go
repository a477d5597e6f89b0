package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fernwood/starquest/internal/database"
	"github.com/fernwood/starquest/internal/logging"
	"github.com/fernwood/starquest/internal/media"
	"github.com/fernwood/starquest/internal/period"
	"github.com/fernwood/starquest/internal/push"
	"github.com/fernwood/starquest/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("STARQUEST_LOG_LEVEL"), os.Getenv("STARQUEST_LOG_FORMAT"))

	port := os.Getenv("STARQUEST_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("STARQUEST_DB_PATH")
	if dbPath == "" {
		dbPath = "starquest.db"
	}

	jwtSecret := os.Getenv("STARQUEST_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("STARQUEST_JWT_SECRET is required")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		JWTSecret: jwtSecret,
		TokenTTL:  30 * 24 * time.Hour,
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("STARQUEST_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("STARQUEST_VAPID_PRIVATE_KEY"),
		},
		S3: media.S3Config{
			Endpoint:  os.Getenv("STARQUEST_S3_ENDPOINT"),
			Bucket:    os.Getenv("STARQUEST_S3_BUCKET"),
			Region:    os.Getenv("STARQUEST_S3_REGION"),
			AccessKey: os.Getenv("STARQUEST_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("STARQUEST_S3_SECRET_KEY"),
		},
		OpenAIAPIKey: os.Getenv("STARQUEST_OPENAI_API_KEY"),
		OpenAIModel:  os.Getenv("STARQUEST_OPENAI_MODEL"),
	}

	srv := server.New(db, cfg, logger)

	scheduler := period.NewScheduler(srv.PeriodStore(), logger)
	scheduler.OnReset(srv.AnnounceCounterReset)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("failed to start reset scheduler: %v", err)
	}

	go func() {
		for range time.Tick(10 * time.Minute) {
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Starquest running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := scheduler.Stop(ctx); err != nil {
		logger.Error("scheduler stop", "error", err)
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
