package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pidvault/internal/analysis"
	"pidvault/internal/config"
	"pidvault/internal/content"
	"pidvault/internal/docs"
	"pidvault/internal/encryption"
	"pidvault/internal/httpapi"
	"pidvault/internal/metastore"
	"pidvault/internal/metrics"
)

// App is the application layer between the CLI and DocService.
// It constructs all dependencies from config and releases them on Close.
type App struct {
	cfg       *config.Config
	store     docs.Store
	content   docs.ContentStore
	encryptor docs.Encryptor
	service   *docs.DocService
	analysis  *analysis.Client
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	logger    docs.Logger
	run       *Run
	logFile   *os.File
}

// Options adjusts how NewApp wires the application.
type Options struct {
	// Passphrase unlocks the age private key so stored content can be served.
	// Without it, encrypted content can be written but not read back.
	Passphrase string
	// LogWriter replaces the log file and stderr, mainly for tests.
	LogWriter io.Writer
}

// NewApp creates a fully wired App from cfg. command names the CLI command
// being run (e.g. "serve", "gc"). The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, command string, opts Options) (*App, error) {
	run := NewRun(command, time.Now())

	slogger, logFile, err := newLogger(cfg.LogDir, run, opts.LogWriter)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}
	clock := docs.RealClock{}

	store, err := metastore.NewStoreFromConfig(cfg.Store, logger, clock)
	if err != nil {
		closeFile(logFile)
		return nil, fmt.Errorf("creating metadata store: %w", err)
	}

	cs, err := content.NewContentStoreFromConfig(ctx, cfg.Content, metadataIgnorePatterns(cfg)...)
	if err != nil {
		store.Close()
		closeFile(logFile)
		return nil, fmt.Errorf("creating content store: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		closeFile(logFile)
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil {
		var dec docs.DecryptionContext
		if opts.Passphrase != "" {
			dec, err = enc.Unlock(opts.Passphrase)
			if err != nil {
				store.Close()
				closeFile(logFile)
				return nil, fmt.Errorf("unlocking content key: %w", err)
			}
		}
		cs = content.NewEncryptedStore(cs, enc, dec)
	}

	if err := cs.ValidateSetup(); err != nil {
		store.Close()
		closeFile(logFile)
		return nil, fmt.Errorf("validating content store: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	svc := docs.NewDocService(store, cs, logger, clock, docs.TimestampIDGenerator{}, m, cfg.Server.PublicBaseURL)

	a := &App{
		cfg:       cfg,
		store:     store,
		content:   cs,
		encryptor: enc,
		service:   svc,
		analysis:  analysis.NewClient(cfg.Analysis.Endpoint, cfg.Analysis.Timeout.Duration, logger),
		metrics:   m,
		registry:  registry,
		logger:    logger,
		run:       run,
		logFile:   logFile,
	}
	logger.Info("run started", "store", cfg.Store.Type, "content", cfg.Content.Type)
	return a, nil
}

// metadataIgnorePatterns keeps metadata files that live inside the content
// directory out of content listings, so gc never treats them as orphans.
func metadataIgnorePatterns(cfg *config.Config) []string {
	if cfg.Content.Type != "filesystem" && cfg.Content.Type != "" {
		return nil
	}

	var path string
	switch cfg.Store.Type {
	case "json", "":
		path = cfg.Store.Path
	case "sqlite":
		path = filepath.Join(cfg.Store.DataDir, "metadata.db")
	default:
		return nil
	}
	if path == "" || filepath.Clean(filepath.Dir(path)) != filepath.Clean(cfg.Content.Root) {
		return nil
	}

	base := filepath.Base(path)
	return []string{base, base + "-*", base + ".corrupt-*"}
}

// Service returns the domain service.
func (a *App) Service() *docs.DocService { return a.service }

// Logger returns the application logger.
func (a *App) Logger() docs.Logger { return a.logger }

// Handler returns the HTTP surface. loc renders dates in projections.
func (a *App) Handler(loc *time.Location) http.Handler {
	h := httpapi.New(httpapi.Options{
		Docs:           a.service,
		Analysis:       a.analysis,
		Metrics:        a.metrics,
		Gatherer:       a.registry,
		Logger:         a.logger,
		Clock:          docs.RealClock{},
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		Location:       loc,
	})
	return h.Routes()
}

// ListFiles returns the records of projectID, or all records when empty.
func (a *App) ListFiles(ctx context.Context, projectID string) ([]*docs.FileRecord, error) {
	return a.service.List(ctx, projectID)
}

// ErrServerMayBeRunning is returned when a CLI write would race a running
// server that keeps the metadata document in memory.
var ErrServerMayBeRunning = errors.New("json metadata store is cached by a running server")

// DeleteFile removes one record and its content. A running server holds the
// json store in memory and would write the record back, so for that store
// the caller must confirm the server is stopped.
func (a *App) DeleteFile(ctx context.Context, id string, serverStopped bool) error {
	if a.cfg.Store.Type == "json" && !serverStopped {
		return fmt.Errorf("%w: stop the server and pass --server-stopped", ErrServerMayBeRunning)
	}
	return a.service.Delete(ctx, id)
}

// CollectGarbage reports orphaned content, removing it when apply is set.
func (a *App) CollectGarbage(ctx context.Context, apply bool) (*docs.OrphanReport, []string, error) {
	report, err := a.service.FindOrphans(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !apply {
		return report, nil, nil
	}
	removed, err := a.service.RemoveOrphans(ctx)
	return report, removed, err
}

// BackupMetadata writes a consistent copy of the metadata store to dest.
// Only the json and sqlite stores support it.
func (a *App) BackupMetadata(ctx context.Context, dest string) error {
	b, ok := a.store.(interface {
		Backup(ctx context.Context, destPath string) error
	})
	if !ok {
		return fmt.Errorf("store type %q does not support backups", a.cfg.Store.Type)
	}
	if err := b.Backup(ctx, dest); err != nil {
		return err
	}
	a.logger.Info("metadata backed up", "dest", dest)
	return nil
}

// Fail marks the current run as failed; Close logs the outcome.
func (a *App) Fail(err error) {
	a.run.Fail(err)
}

// Close finishes the run and releases the store and log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing metadata store: %w", err)
	}

	a.run.Finish(time.Now())
	args := []any{"status", a.run.Status, "duration", a.run.Duration()}
	if a.run.Err != nil {
		args = append(args, "error", a.run.Err)
	}
	a.logger.Info("run finished", args...)

	closeFile(a.logFile)
	return firstErr
}

func closeFile(f *os.File) {
	if f != nil {
		f.Close()
	}
}
