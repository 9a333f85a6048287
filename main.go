// Package main provides the entry point for the Product Studio application.
package main

import (
	"fmt"
	"os"

	"product-studio/internal/app"
	"product-studio/internal/config"
	"product-studio/internal/genai"
	"product-studio/internal/httpclient"
	"product-studio/internal/library"
	"product-studio/internal/version"
	"product-studio/ui/mainwindow"

	fyneapp "fyne.io/fyne/v2/app"
)

const appID = "studio.product.desktop"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	logger.Info("starting", "version", version.String())

	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; AI actions are disabled until it is configured")
	}

	client := genai.New(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		Model:      cfg.GeminiImageModel,
		HTTPClient: httpclient.New(httpclient.Options{
			PreferIPv4: cfg.PreferIPv4,
			Timeout:    cfg.HTTPTimeout,
		}),
		Logger: logger,
	})

	store, err := library.NewFileStore(cfg.LibraryDir)
	if err != nil {
		logger.Error("library unavailable", "dir", cfg.LibraryDir, "error", err)
		os.Exit(1)
	}

	state := app.NewState(app.Options{
		Config: cfg,
		AI:     client,
		Store:  store,
		Logger: logger,
	})

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.StudioTheme{})

	win := mainwindow.New(fyneApp, state)

	// Handle command line arguments
	if len(os.Args) > 1 {
		if err := state.LoadProductImage(os.Args[1]); err != nil {
			logger.Warn("failed to open image", "path", os.Args[1], "error", err)
		}
	}

	win.ShowAndRun()
}
