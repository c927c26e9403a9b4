package chatforge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundprediction/go-chatforge/pkg/dataset"
	"github.com/soundprediction/go-chatforge/pkg/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the annotated dataset over a read-only REST API",
	Long: `Start an HTTP server over an annotated dataset file.

Endpoints:
- GET /health
- GET /api/v1/records        (add ?failed=true for failed records only)
- GET /api/v1/records/:id
- GET /api/v1/stats`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("file", "", "dataset file to serve (default analyzed_dataset.json)")
	serveCmd.Flags().String("host", "", "server host")
	serveCmd.Flags().Int("port", 0, "server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Server.Host = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		cfg.Server.Port = v
	}

	file := cfg.Analyze.Output
	if v, _ := cmd.Flags().GetString("file"); v != "" {
		file = v
	}

	records, err := dataset.Load(file)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	srv := server.New(&cfg.Server, records, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Start()
	}()

	select {
	case err := <-serverErrChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		log.Info("shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
