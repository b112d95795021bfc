package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/wayfarerhq/wayfarer/internal/auth/app"
)

func main() {
	// A .env file is a local development convenience, not a requirement.
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
