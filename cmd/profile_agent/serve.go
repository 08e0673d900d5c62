package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/linkedin-optimizer/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the profile, import, run and results endpoints for a single session.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cfg.APIKey == "" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: no API key configured; clients must send Authorization: Bearer <token>")
	}

	srv, err := server.New(server.Config{App: cfg})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
