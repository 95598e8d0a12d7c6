package internal

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"face-swap/internal/handler"
	"face-swap/internal/pkg/service"
	"face-swap/tools"
)

const (
	portEnvName = "PORT"
	defaultPort = "5000"
)

func RunServer(srvs *service.Service) {

	port := tools.EnvOrDefault(portEnvName, defaultPort)

	handler := handler.NewHandler(srvs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := gin.Default()

	setupRoutes(router, handler)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	go func() {
		log.Println("server starting on port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("gin error: %s\n", err)
		}
	}()

	<-ctx.Done()

	stop()
	log.Println("shutting down gracefully, press Ctrl+C again to force")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
