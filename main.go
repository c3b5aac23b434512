package main

import (
	"github.com/joho/godotenv"

	"sjsage522/metaworker/cmd"
	"sjsage522/metaworker/logger"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := cmd.Execute(); err != nil {
		logger.Fatal("metaworker: %v", err)
	}
}
