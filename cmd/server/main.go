package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Tyrowin/relaychat/internal/server"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.Println("Starting relaychat server...")

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	hub := server.NewHub()
	server.StartHub(hub)

	httpServer := server.CreateServer(config.Port, server.SetupRoutes(hub))
	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(context.Context) error {
				return server.ShutdownServer(httpServer, shutdownTimeout)
			},
			"hub": func(context.Context) error {
				return hub.Shutdown(shutdownTimeout)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}
