package main

import (
	"context"
	"log"

	"expcalc/internal"
	"expcalc/internal/config"
	"expcalc/internal/container"
	"expcalc/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	logger := internal.NewDefaultLogger()

	// Create dependency injection container
	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	// Attach the ledger when a database is configured
	if err := appContainer.Connect(context.Background()); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Metrics and profiling listen on their own port
	if appConfig.Admin.Enabled {
		go func() {
			logger.Info("admin endpoints on http://localhost:%s/metrics", appConfig.Admin.Port)
			if err := ui.NewAdminApp().Start(":" + appConfig.Admin.Port); err != nil {
				logger.Error("admin server failed: %v", err)
			}
		}()
	}

	server := ui.NewServer(appContainer.Calculator, appContainer.Lookup(), logger)

	// Start the server
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}
