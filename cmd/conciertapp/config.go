package main

import (
	"github.com/joho/godotenv"

	"conciertapp/internal/config"
)

// loadConfig reads optional env files before the environment itself.
// Variables already set in the process win over file values.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load(".env")

	return config.Load()
}
