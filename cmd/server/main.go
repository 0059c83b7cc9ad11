package main

import (
	log "github.com/sirupsen/logrus"

	_ "chestnut/docs"
	"chestnut/internal/config"
	"chestnut/internal/server"
)

// @title           Chestnut API
// @version         1.0
// @description     Kanban board service with a lock-guarded card mutation core.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("Server initialization failed: %v", err)
	}

	s.Run()
}
