package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anoixa/image-store/api/core"
)

// shutdownTimeout 优雅退出等待时间
const shutdownTimeout = 5 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	ctx := context.Background()

	container, err := newContainer(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg := container.GetConfig()

	if err := container.Migrate(ctx); err != nil {
		_ = container.Close()
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database initialized successfully")

	reconciler := container.Reconciler()
	if cfg.ReconcileEnabled {
		reconciler.Start()
	}

	checks := make(map[string]core.HealthCheck)
	for name, check := range container.HealthChecks() {
		checks[name] = check
	}

	server, cleanup := core.StartServer(&core.ServerDependencies{
		Config:       cfg,
		Images:       container.ImageService(),
		HealthChecks: checks,
	})
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if cleanup != nil {
		cleanup()
	}

	reconciler.Stop()

	// 关闭 DI 容器
	if err := container.Close(); err != nil {
		log.Printf("Error closing container: %v", err)
	}

	log.Println("Server exited successfully")
}
