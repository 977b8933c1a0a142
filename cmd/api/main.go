package main

import (
	"context"
	"log"

	"finance-account-service/cmd/api/app"
	"finance-account-service/cmd/api/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}

func run() error {
	a, err := app.New(context.Background())
	if err != nil {
		return err
	}

	ctx, stop := server.WithSignal(context.Background(), a.Logger)
	defer stop()

	return a.Run(ctx)
}
