package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vidgrab/internal/server"
	"vidgrab/pkg/auth"
	"vidgrab/pkg/config"
	"vidgrab/pkg/downloader"
	"vidgrab/pkg/logger"
)

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP download service",
	Long: `Start the HTTP API on the configured host and port.

Endpoints:
  POST /api/v1/download   download a video (body: {"url": "..."})
  POST /api/v1/info       resolve the direct media URL without downloading
  GET  /api/v1/platforms  list enabled platforms
  GET  /health            liveness and proxy pool size`,
	Example: `  # Serve on the default port
  vidgrab serve

  # Serve with a config file
  vidgrab serve --config vidgrab.yaml`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, log := mustSetup()

	svc, err := downloader.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build download service")
	}

	srv := server.New(cfg, svc, log)
	if err := srv.Run(context.Background()); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

// mustSetup loads configuration and initializes logging, exiting on failure.
// The stored mirror credential fills Mirror.APIKey when the config leaves it
// empty.
func mustSetup() (*config.Config, logger.Logger) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	return cfg, logger.GetLogger()
}

func loadConfig() (*config.Config, error) {
	// Surface the stored credential through the environment so config.Load
	// picks it up before validation. An explicit env var still wins.
	if os.Getenv("VIDGRAB_MIRROR_API_KEY") == "" {
		if key := storedMirrorKey(); key != "" {
			os.Setenv("VIDGRAB_MIRROR_API_KEY", key)
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// storedMirrorKey returns the mirror API key from the credential chain, or ""
func storedMirrorKey() string {
	manager, err := auth.NewManager()
	if err != nil {
		return ""
	}
	cred, err := manager.Retrieve(auth.CredentialName)
	if err != nil || cred == nil {
		return ""
	}
	return cred.Key
}
