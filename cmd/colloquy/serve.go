package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/colloquyhq/colloquy"
	httpAdapter "github.com/colloquyhq/colloquy/internal/adapters/http"
	"github.com/colloquyhq/colloquy/internal/cli"
	"github.com/colloquyhq/colloquy/internal/logging"
	"github.com/colloquyhq/colloquy/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the Colloquy engine in server mode, exposing conversations as a JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("flows")
		port, _ := cmd.Flags().GetString("port")
		redisURL, _ := cmd.Flags().GetString("redis")
		stateDir, _ := cmd.Flags().GetString("state-dir")

		if err := runServe(dir, port, redisURL, stateDir); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runServe(dir, port, redisURL, stateDir string) error {
	logger := logging.New(slog.LevelInfo)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	engine, err := colloquy.New(dir,
		colloquy.WithLogger(logger),
		colloquy.WithLifecycleHooks(metrics.Hooks()),
	)
	if err != nil {
		return fmt.Errorf("error initializing colloquy: %w", err)
	}
	if err := cli.RegisterStubActions(engine, logger); err != nil {
		return err
	}

	sessions, err := cli.SetupPersistence(cli.RunOptions{RedisURL: redisURL, StateDir: stateDir}, logger)
	if err != nil {
		return err
	}

	server := httpAdapter.NewServer(engine.Runtime(), sessions, httpAdapter.WithLogger(logger))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server.Handler(),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		fmt.Printf("Starting Colloquy Server on %s\n", srv.Addr)
		fmt.Printf("Serving flows from: %s\n", dir)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		fmt.Println("Colloquy Server stopped gracefully")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis URL for shared session state (defaults to local files)")
	serveCmd.Flags().String("state-dir", "", "Directory for file-based session state")
}
