package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/contentgate/contentgate/internal/bot"
	"github.com/contentgate/contentgate/internal/bot/config"
)

func main() {
	// optional .env for local runs; real deployments set the environment
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := bot.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
