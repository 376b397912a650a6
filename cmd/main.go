package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mapdesc_service/internal/api"
	"mapdesc_service/internal/config"
	"mapdesc_service/internal/core"
	"mapdesc_service/internal/core/rules"
	"mapdesc_service/internal/domain/model"
	"mapdesc_service/internal/domain/repository"
	"mapdesc_service/internal/infrastructure/osmimport"
	"mapdesc_service/internal/infrastructure/publisher"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config")
		inPath     = flag.String("in", "", "raw map metadata JSON to describe")
		osmPath    = flag.String("osm", "", "OSM XML file to import and describe")
		outDir     = flag.String("out", "", "output directory (overrides output_dir)")
		serve      = flag.Bool("serve", false, "run the HTTP API")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *inPath, *osmPath, *serve); err != nil {
		logger.Fatal("mapdesc failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, inPath, osmPath string, serve bool) error {
	// Загрузка правил классификации
	rs, err := loadRuleset(cfg.RulesetPath)
	if err != nil {
		return err
	}

	// Хранилище запусков
	var (
		recorder repository.RunRecorder
		runs     api.RunReader
	)
	if cfg.Database.Driver != "" {
		store, err := repository.NewRunStore(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder, runs = store, store
	}

	var pub core.Publisher
	if cfg.Publisher.URL != "" {
		pub = publisher.NewHTTPPublisher(cfg.Publisher.URL, cfg.Publisher.Timeout, logger)
	}

	var fetcher core.Fetcher
	if cfg.Overpass.URL != "" {
		fetcher = repository.NewOverpassRepository(cfg.Overpass.URL, cfg.Overpass.MaxParallel, cfg.Overpass.Timeout, logger)
	}

	opts := core.Options{
		Overrides:    cfg.Options,
		Connectivity: cfg.Connectivity,
		PrettyJSON:   cfg.PrettyJSON,
		DebugOSMID:   cfg.DebugOSMID,
		Logger:       logger,
	}
	if !serve {
		opts.OutputDir = cfg.OutputDir
	}
	service := core.NewDescriptionService(rs, opts, recorder, pub, fetcher)

	if serve {
		return serveHTTP(ctx, cfg, service, runs, logger)
	}

	doc, name, err := readInput(inPath, osmPath, logger)
	if err != nil {
		return err
	}
	_, runInfo, err := service.Run(ctx, name, doc)
	if err != nil {
		return err
	}
	logger.Info("run finished",
		zap.String("run_id", runInfo.ID),
		zap.String("input", name),
		zap.String("output_dir", cfg.OutputDir),
		zap.Int("classified", runInfo.Classified),
		zap.Duration("elapsed", runInfo.Elapsed))
	return nil
}

func loadRuleset(path string) (*rules.Ruleset, error) {
	if path == "" {
		return rules.Default()
	}
	return rules.Load(path)
}

func readInput(inPath, osmPath string, logger *zap.Logger) (*model.RawDocument, string, error) {
	switch {
	case inPath != "" && osmPath != "":
		return nil, "", errors.New("use either -in or -osm, not both")
	case inPath != "":
		f, err := os.Open(inPath)
		if err != nil {
			return nil, "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		var doc model.RawDocument
		if err := json.NewDecoder(f).Decode(&doc); err != nil {
			return nil, "", fmt.Errorf("decode %s: %w", inPath, err)
		}
		return &doc, filepath.Base(inPath), nil
	case osmPath != "":
		f, err := os.Open(osmPath)
		if err != nil {
			return nil, "", fmt.Errorf("open osm file: %w", err)
		}
		defer f.Close()
		o, err := osmimport.Decode(f)
		if err != nil {
			return nil, "", err
		}
		doc, err := osmimport.NewConverter(logger).Convert(o)
		if err != nil {
			return nil, "", fmt.Errorf("import %s: %w", osmPath, err)
		}
		return doc, filepath.Base(osmPath), nil
	}
	return nil, "", errors.New("one of -in, -osm or -serve is required")
}

func serveHTTP(ctx context.Context, cfg *config.Config, service *core.DescriptionService, runs api.RunReader, logger *zap.Logger) error {
	handler := api.NewHandler(service, runs, cfg.Overpass.MaxAreaKm2, logger)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// Корректное завершение
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("shutting down server")
	return srv.Shutdown(shutdownCtx)
}
