package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agraph/flow/internal/executor"
	"github.com/agraph/flow/internal/httpapi"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the introspection HTTP server",
	Long: `serve starts the HTTP introspection server (GET /stats, GET /scopes)
that flowctl tui and other clients poll to observe a running scheduler tree.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:7470", "listen address for the introspection API")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pool := executor.New(&executor.Config{
		AsyncMax:  cfg.AsyncPoolDefaultSize,
		ThreadMax: cfg.ThreadPoolDefaultSize,
	})
	defer pool.Shutdown()

	server := httpapi.NewServer(listenAddr, pool)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Printf("flowctl serve: listening on %s", listenAddr)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
