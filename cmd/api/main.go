package main

import (
	"context"
	"log"

	"juris-backend/internal/bootstrap"
	"juris-backend/internal/server"
	"juris-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
