package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"media-bucket/internal/config"
	"media-bucket/internal/downloader"
	"media-bucket/internal/events"
	"media-bucket/internal/executor"
	apphttp "media-bucket/internal/http"
	"media-bucket/internal/medialist"
	"media-bucket/internal/repository/sqlite"
	"media-bucket/internal/service"
	"media-bucket/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	platformRepo := sqlite.NewPlatformRepository(db)
	profileRepo := sqlite.NewProfileRepository(db)
	tagRepo := sqlite.NewTagRepository(db)
	mediaRepo := sqlite.NewMediaRepository(db)
	userRepo := sqlite.NewUserRepository(db)

	for name, init := range map[string]func(context.Context) error{
		"platform": platformRepo.Init,
		"profile":  profileRepo.Init,
		"tag":      tagRepo.Init,
		"media":    mediaRepo.Init,
		"user":     userRepo.Init,
	} {
		if err := init(ctx); err != nil {
			logger.Fatalf("init %s repository: %v", name, err)
		}
	}

	mediaService := service.NewMediaService(mediaRepo, logger)
	tagService := service.NewTagService(tagRepo, mediaRepo)
	userService := service.NewUserService(userRepo, cfg.Auth.RegisterPassword)

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}
	archiveService := service.NewArchiveService(
		storageSvc, mediaRepo, cfg.Storage.Bucket, cfg.Storage.KeyPrefix, logger)

	pool := executor.NewPool(context.Background(), cfg.Download.MaxConcurrent, logger)
	bus := events.NewBus(0, logger)
	go bus.Run()

	extractors := buildExtractors(cfg, logger)
	manager := downloader.NewManager(downloader.Config{
		DownloadTimeout: time.Duration(cfg.Download.TimeoutMinutes) * time.Minute,
		Logger:          logger,
	}, pool, bus, extractors)
	if err := manager.Start(ctx); err != nil {
		logger.Fatalf("start manager: %v", err)
	}

	ingestor := service.NewIngestor(service.IngestorConfig{
		Media:       mediaService,
		Archive:     archiveService,
		Bus:         bus,
		Pool:        pool,
		Logger:      logger,
		AutoArchive: cfg.Storage.AutoArchive,
	})
	ingestor.Start()

	gallery := medialist.NewController(mediaService.ListPage, pool, bus, medialist.Config{
		PageSize: cfg.List.PageSize,
		Logger:   logger,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.HandlerConfig{
		Manager: manager,
		Media:   mediaService,
		Tags:    tagService,
		Archive: archiveService,
		Users:   userService,
		Gallery: gallery,
		Bus:     bus,
		Auth: apphttp.AuthConfig{
			JWTSecret: cfg.Auth.JWTSecret,
			TokenTTL:  time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
		},
		PageSize: cfg.List.PageSize,
		Logger:   logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	// Stop producers before the bus: manager first, then the pool whose
	// goroutines publish save and gallery events, then drain the bus.
	ingestor.Stop()
	manager.Shutdown()
	pool.Shutdown()
	closeExtractors(extractors)
	bus.Close()
	bus.Wait()

	logger.Info("bye")
}

func buildExtractors(cfg config.Config, logger *logrus.Logger) map[downloader.Kind]downloader.Extractor {
	extractors := map[downloader.Kind]downloader.Extractor{
		downloader.KindGeneric: downloader.NewYtdlpExtractor(cfg.Download.DataDir, logger),
	}

	if argv := cfg.WorkerArgv(); len(argv) > 0 {
		extractors[downloader.KindInstagram] = downloader.NewInstagramExtractor(
			argv, cfg.Download.DataDir, logger)
	} else {
		logger.Info("instagram worker not configured; instagram URLs fall back to the generic backend")
		extractors[downloader.KindInstagram] = extractors[downloader.KindGeneric]
	}

	if cfg.Torrent.Enabled {
		torrentExt, err := downloader.NewTorrentExtractor(
			cfg.Download.DataDir, "Magnet", 2*time.Second, logger)
		if err != nil {
			logger.Warnf("torrent backend unavailable: %v", err)
		} else {
			extractors[downloader.KindTorrent] = torrentExt
		}
	}

	return extractors
}

func closeExtractors(extractors map[downloader.Kind]downloader.Extractor) {
	for _, ext := range extractors {
		if closer, ok := ext.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("storage bucket not configured; archiving disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
