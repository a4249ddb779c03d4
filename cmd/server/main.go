package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anoa.com/peerlink/internal/bootstrap"
	"anoa.com/peerlink/internal/config"
	userRepo "anoa.com/peerlink/internal/modules/user/repository"
	"anoa.com/peerlink/internal/server"
	"anoa.com/peerlink/pkg/cache"
	"anoa.com/peerlink/pkg/database"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.Connect(cfg.DatabaseURL)
	defer database.Close()

	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if !cfg.IsProduction() {
		if err := bootstrap.SeedDemoUsers(ctx, userRepo.NewUserRepository(db)); err != nil {
			log.Fatalf("failed to seed demo users: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		log.Println("⚠️ REDIS_URL not set, realtime events and distributed locks are disabled")
	}

	var meiliClient meilisearch.ServiceManager
	if host := cfg.MeiliSearchHost; host != "" {
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host + ":7700"
		}
		meiliClient = meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	} else {
		log.Println("⚠️ MEILISEARCH_HOST not set, student search uses the database")
	}

	srv, err := server.NewServer(cfg, db, redisClient, meiliClient)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	if meiliClient != nil {
		go func() {
			if err := srv.Reindex(ctx); err != nil {
				log.Printf("❌ Student reindex failed: %v", err)
				return
			}
			log.Println("✅ Student search index rebuilt")
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server exited with error: %v", err)
		}
	case <-ctx.Done():
		log.Println("🛑 Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
