package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"curator/internal/api"
	"curator/internal/blob"
	"curator/internal/config"
	"curator/internal/curations"
	"curator/internal/render"
	"curator/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	if cfg.CuratorEmail == "" {
		log.Fatal("CURATOR_EMAIL is required; curations are attributed to the curator's email")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := blob.Open(ctx, cfg.WorkingRoot)
	if err != nil {
		log.Fatal(err)
	}
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	cache := curations.New(storage.NewCurationRepo(db),
		time.Duration(cfg.CacheTTLSecs)*time.Second, cfg.CurationTag, cfg.CuratorEmail)
	if err := cache.Refresh(ctx); err != nil {
		log.Fatal(err)
	}

	pipeline := render.New(store, cfg.WorkingRoot, nil)
	srv := api.NewServer(cfg, pipeline, cache)

	log.Printf("curator listening on %s root=%q tag=%q email=%q",
		cfg.APIAddr, cfg.WorkingRoot, cfg.CurationTag, cfg.CuratorEmail)
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		log.Fatal(err)
	}
}
