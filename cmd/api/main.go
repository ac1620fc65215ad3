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

	"github.com/joho/godotenv"

	"github.com/gatekeeper-api/internal/config"
	"github.com/gatekeeper-api/internal/infrastructure/dynamo"
	"github.com/gatekeeper-api/internal/infrastructure/jobs"
	jwtinfra "github.com/gatekeeper-api/internal/infrastructure/jwt"
	s3infra "github.com/gatekeeper-api/internal/infrastructure/s3"
	"github.com/gatekeeper-api/internal/infrastructure/smtp"
	"github.com/gatekeeper-api/internal/infrastructure/sns"
	transporthttp "github.com/gatekeeper-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3-backed e-mail template store.
	s3Client := s3infra.NewClient(cfg)
	templates := s3infra.NewTemplateStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS publisher for audit events, raid alerts and grant commands.
	publisher, err := sns.NewPublisher(cfg)
	if err != nil {
		log.Fatalf("sns publisher: %v", err)
	}

	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)

	deps := &transporthttp.Deps{
		SessionRepo:   sessionRepo,
		VerifiedRepo:  dynamo.NewVerifiedMemberRepo(dynamoClient, cfg.DynamoTables.VerifiedMembers),
		SettingsRepo:  dynamo.NewSettingsRepo(dynamoClient, cfg.DynamoTables.CommunitySettings),
		BlocklistRepo: dynamo.NewBlockedDomainRepo(dynamoClient, cfg.DynamoTables.BlockedDomains),
		Templates:     templates,
		Mailer:        mailer,
		Notifier:      sns.NewNotifier(publisher, cfg.AuditTopicARN),
		Grants:        sns.NewGrantPublisher(publisher, cfg.GrantTopicARN),
		JWTProvider:   jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Background sweep of abandoned sessions.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := jobs.NewSessionSweeper(sessionRepo, cfg.SweepInterval, cfg.SweepThreshold)
	go sweeper.Start(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
