package main

import (
	"context"
	"log"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/pulsecheck-labs/pulsecheck-backend/config"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/auth"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/bootstrap"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/documents"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN()})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		// Redis only backs the progress cache; reads fall through to Postgres.
		log.Printf("redis unavailable, progress cache disabled: %v", err)
		rdb = nil
	}

	var authClient *firebaseauth.Client
	if cfg.Firebase.CredentialsPath != "" {
		authClient, err = auth.InitializeFirebase(&cfg.Firebase)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
	} else if cfg.App.Environment != "development" {
		log.Fatal("FIREBASE_CREDENTIALS_PATH is required outside development")
	} else {
		log.Println("firebase disabled, using X-User-Id dev identities")
	}

	presigner, err := documents.NewPresigner(ctx, cfg.Storage.Region, cfg.Storage.Bucket, cfg.Storage.PresignTTL)
	if err != nil {
		log.Printf("s3 presigner unavailable, document uploads disabled: %v", err)
		presigner = nil
	}

	cat, err := bootstrap.LoadCatalog(cfg.App.CatalogFile)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "pulsecheck-backend",
		Version:     cfg.App.Version,
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Auth:        authClient,
		Presigner:   presigner,
		Catalog:     cat,
	})

	log.Printf("api listening on :%s env=%s", cfg.Server.Port, cfg.App.Environment)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
