package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/api/daisi-token-relay/internal/bootstrap"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/contextkeys"
)

func main() {
	// Root context for the application lifecycle; adapters hang their
	// background goroutines (config reload, JWKS refresh) off it.
	ctx := context.Background()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// A very basic log if bootstrap fails, as the main logger isn't available.
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		fmt.Printf("Application run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application exited gracefully.")
}
