package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"moviemate/api"
	"moviemate/config"
	"moviemate/handlers"
	"moviemate/internal/database"
	"moviemate/models"
	"moviemate/services/accounts"
	"moviemate/services/catalog"
	"moviemate/services/sessions"
	"moviemate/services/tmdb"
	"moviemate/utils"

	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🎬 moviemate starting...")

	configPath := os.Getenv("MOVIEMATE_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Redirect standard log to both console and file
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if settings.Metadata.TMDBAPIKey == "" {
		log.Printf("warning: no TMDB API key configured; import and search are disabled until one is set in %s", configPath)
	}

	db, err := database.NewDB(database.Config{DatabasePath: settings.Database.Path})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	searchCache := tmdb.NewSearchCache(nil,
		filepath.Join(settings.Cache.Directory, "tmdb_search"),
		time.Duration(settings.Cache.SearchTTLSeconds)*time.Second,
	)
	tmdbClient := tmdb.NewClient(settings.Metadata.TMDBAPIKey, settings.Metadata.Language, nil, searchCache)

	var opts []catalog.Option
	if settings.Metadata.ProbeOrder == "tv" {
		opts = append(opts, catalog.WithProbeFirst(models.KindTV))
	}
	catalogService := catalog.NewService(db.Catalog, tmdbClient, opts...)

	accountsService, err := accounts.NewService(settings.Auth.StorageDirectory)
	if err != nil {
		log.Fatalf("failed to initialise accounts: %v", err)
	}
	if generated := accountsService.GeneratedMasterPassword(); generated != "" {
		fmt.Printf("🔑 Master account created. Username: %s  Password: %s\n", accounts.MasterUsername, generated)
		fmt.Println("📱 Change this password after your first login.")
	}

	sessionsService, err := sessions.NewService(
		settings.Auth.StorageDirectory,
		time.Duration(settings.Auth.SessionDurationDays)*24*time.Hour,
	)
	if err != nil {
		log.Fatalf("failed to initialise sessions: %v", err)
	}

	r := utils.NewRouter()
	api.Register(
		r,
		handlers.NewCatalogHandler(catalogService),
		handlers.NewWishlistHandler(db.Wishlist),
		handlers.NewTMDBBrowseHandler(tmdbClient),
		handlers.NewImageHandler(settings.Cache.Directory),
		accountsService,
		sessionsService,
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
