package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vidgrab/pkg/downloader"
)

var outputPath string

// getCmd downloads a single video from the command line
var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Download a video to a local file",
	Long: `Resolve a share URL and download the video without running the HTTP
service. The file is written to the current directory unless --output is set.`,
	Example: `  vidgrab get https://www.instagram.com/reel/ABC123/
  vidgrab get https://www.tiktok.com/@user/video/123456 --output clip.mp4`,
	Args: cobra.ExactArgs(1),
	Run:  runGet,
}

func init() {
	getCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	cfg, log := mustSetup()

	svc, err := downloader.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build download service")
	}

	ctx := context.Background()
	if cfg.Proxy.RefreshOnStart {
		svc.WarmUp(ctx)
	}

	payload, err := svc.Fetch(ctx, args[0])
	if err != nil {
		log.WithError(err).Fatal("download failed")
	}

	path := outputPath
	if path == "" {
		path = payload.Filename
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.WithError(err).Fatal("failed to create output directory")
		}
	}
	if err := os.WriteFile(path, payload.Bytes, 0644); err != nil {
		log.WithError(err).Fatal("failed to write file")
	}

	log.WithFields(map[string]interface{}{
		"path":    path,
		"size_mb": payload.SizeMB(),
	}).Info("video saved")
}
