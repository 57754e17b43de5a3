package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"scorelib/internal/auth"
	"scorelib/internal/config"
	"scorelib/internal/conversion"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/filetypes"
	"scorelib/internal/handler"
	"scorelib/internal/handler/sse"
	"scorelib/internal/metrics"
	"scorelib/internal/middleware"
	"scorelib/internal/repository"
	convsvc "scorelib/internal/service/conversion"
	"scorelib/internal/service/library"
	"scorelib/internal/service/usage"
	"scorelib/internal/storage"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var out io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer func() { _ = logFile.Close() }()
		out = io.MultiWriter(os.Stdout, logFile)
	}
	logger := config.NewLogger(out, cfg.Debug)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"content", cfg.ContentBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer func() { _ = jwtVerifier.Close() }()

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer closeStore()

	content, err := storage.New(ctx, storage.Config{
		Backend:   cfg.ContentBackend,
		LocalDir:  cfg.ContentDir,
		BaseURL:   cfg.ContentBaseURL,
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create content storage: %v", err)
	}

	registry, err := filetypes.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load file type registry: %v", err)
	}

	// Invites fall back to the identity provider for users who never opened the app.
	var accounts libsvc.AccountLookup
	if cfg.AuthAdminURL != "" {
		accounts = auth.NewAdminClient(cfg.AuthAdminURL, cfg.AuthServiceKey)
	}

	directory := library.NewUserDirectory(store, accounts, logger)
	overlays := library.NewOverlayService(store, logger)
	loader := library.NewTreeLoader(store, overlays, logger)
	engine := library.NewDeletionEngine(store, content, logger)
	folderService := library.NewFolderService(store, directory, engine, logger)
	fileService := library.NewFileService(store, content, overlays, registry, logger)
	usageService := usage.NewService(store, logger)

	libraryHandler := handler.NewLibraryHandler(loader, sse.DefaultConfig(), logger)
	folderHandler := handler.NewFolderHandler(folderService, logger)
	fileHandler := handler.NewFileHandler(fileService, logger)
	usageHandler := handler.NewUsageHandler(usageService, logger)
	userHandler := handler.NewUserHandler(directory, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Library tree
	mux.HandleFunc("GET /api/library/tree", libraryHandler.GetTree)
	mux.HandleFunc("GET /api/library/tree/stream", libraryHandler.StreamTree)
	mux.HandleFunc("GET /api/library/search", libraryHandler.Search)

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("POST /api/folders/shared", folderHandler.CreateSharedFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("PATCH /api/folders/{id}/collaborators/{userId}", folderHandler.UpdateCollaboratorRole)

	// File routes
	mux.HandleFunc("POST /api/files", fileHandler.UploadFile)
	mux.HandleFunc("GET /api/files/{id}", fileHandler.GetFile)
	mux.HandleFunc("PATCH /api/files/{id}", fileHandler.RenameFile)
	mux.HandleFunc("POST /api/files/{id}/move", fileHandler.MoveFile)
	mux.HandleFunc("DELETE /api/files/{id}", fileHandler.DeleteFile)
	mux.HandleFunc("PUT /api/files/{id}/flags", fileHandler.SetFlag)

	// Usage and profile
	mux.HandleFunc("POST /api/usage/today", usageHandler.LogToday)
	mux.HandleFunc("GET /api/usage", usageHandler.GetCalendar)
	mux.HandleFunc("PUT /api/users/me", userHandler.PutMe)

	if cfg.ConverterURL != "" {
		conversions := convsvc.NewService(
			loader,
			fileService,
			content,
			conversion.NewClient(cfg.ConverterURL),
			registry,
			cfg.ConversionWorkers,
			logger,
		)
		defer conversions.Close()

		conversionHandler := handler.NewConversionHandler(conversions, logger)
		mux.HandleFunc("POST /api/files/{id}/convert", conversionHandler.ConvertFile)
		mux.HandleFunc("GET /api/conversions/{id}", conversionHandler.GetJob)
		logger.Info("score conversion enabled", "converter", cfg.ConverterURL, "workers", cfg.ConversionWorkers)
	} else {
		logger.Warn("CONVERTER_URL not set, conversion routes disabled")
	}

	if cfg.ContentBackend == "local" {
		mux.Handle("GET /content/", http.StripPrefix("/content/", http.FileServer(http.Dir(cfg.ContentDir))))
	}

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Metrics → Routes
	// Metrics wraps the mux directly so it sees the matched route pattern.
	var h http.Handler = middleware.RequestMetrics(mux)
	h = middleware.AuthMiddleware(jwtVerifier)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  time.Minute, // large uploads
		WriteTimeout: 0,           // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}
