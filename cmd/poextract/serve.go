package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extractor/internal/app"
)

var (
	serveGRPC string
	serveHTTP string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC and HTTP extraction servers",
	Long: `Start the extraction servers.

The HTTP server provides:
  - GET  /health          - liveness
  - POST /extract-invoice - multipart upload, field "file"
  - GET  /runs, /runs/:id - audit history when a database is configured

The gRPC server exposes poextractor.v1.ExtractionService plus the standard
health and reflection services.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, logger, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := *loader.Get()
		if cmd.Flags().Changed("grpc-addr") {
			cfg.Server.GRPCAddr = serveGRPC
		}
		if cmd.Flags().Changed("http-addr") {
			cfg.Server.HTTPAddr = serveHTTP
		}

		a, err := app.New(cmd.Context(), &cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		loader.Watch(logger, a.ApplyConfig)
		a.WatchProfiles(cmd.Context())

		return a.Serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveGRPC, "grpc-addr", "", "gRPC listen address, empty string disables (default from GRPC_ADDR)")
	serveCmd.Flags().StringVar(&serveHTTP, "http-addr", "", "HTTP listen address, empty string disables (default from HTTP_ADDR)")
}
