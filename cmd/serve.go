package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/api"
	"github.com/streed/synapse/internal/logger"
)

var (
	serveHost     string
	servePort     int
	assetProvider api.AssetProvider
)

// SetAssetProvider sets the provider for the web UI templates and static files.
func SetAssetProvider(provider api.AssetProvider) {
	assetProvider = provider
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and web UI",
	Long: `Start an HTTP server exposing the notes API and the web UI.

API endpoints:
  GET    /api/notes                    List notes (?limit=N)
  POST   /api/notes                    Create a note
  GET    /api/notes/{id}               Get a note
  DELETE /api/notes/{id}               Delete a note
  POST   /api/notes/{id}/relations     Relate two notes
  GET    /api/notes/{id}/related       Notes related to a note
  POST   /api/search                   Semantic search
  GET    /api/tags                     Tags with usage counts
  GET    /api/stats                    Store statistics
  GET    /api/health                   Health check

When enable_metrics is set, Prometheus metrics are served at /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the server to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to bind the server to (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	host := appConfig.Host
	if serveHost != "" {
		host = serveHost
	}
	port := appConfig.Port
	if servePort != 0 {
		port = servePort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	logger.Info("Initializing HTTP API server...")
	apiServer := api.NewAPIServer(appConfig, svc.Notes, assetProvider, metricsHandler)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiServer.Start(addr)
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nSynapse HTTP API Server\n")
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(out, "Web UI:   http://%s/\n", addr)
	fmt.Fprintf(out, "Health:   http://%s/api/health\n", addr)
	fmt.Fprintf(out, "Stats:    http://%s/api/stats\n", addr)
	if metricsHandler != nil {
		fmt.Fprintf(out, "Metrics:  http://%s/metrics\n", addr)
	}
	fmt.Fprintf(out, "\nExample API calls:\n")
	fmt.Fprintf(out, "   curl http://%s/api/notes\n", addr)
	fmt.Fprintf(out, "   curl -X POST http://%s/api/search -d '{\"query\":\"derivative\",\"top_k\":3}'\n", addr)
	fmt.Fprintf(out, "\nPress Ctrl+C to stop the server\n")
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, shutting down gracefully...", sig)
		if err := apiServer.Stop(context.Background()); err != nil {
			logger.Error("Error during server shutdown: %v", err)
			return err
		}
		logger.Info("Server stopped successfully")
		return nil
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error: %v", err)
			return err
		}
		return nil
	}
}
