package main

import (
	"context"
	"log"

	"github.com/arzan03/shopfront/internal/app"
	"github.com/arzan03/shopfront/internal/config"
)

func main() {
	cfg := config.MustLoad()

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatal(err)
	}
}
