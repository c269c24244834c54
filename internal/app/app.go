// Package app assembles the extraction service from configuration and runs its
// long-lived surfaces: the gRPC and HTTP servers and the folder watcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/po-extractor/internal/async"
	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/core"
	"github.com/joseph-ayodele/po-extractor/internal/export"
	"github.com/joseph-ayodele/po-extractor/internal/extract"
	"github.com/joseph-ayodele/po-extractor/internal/ingest"
	"github.com/joseph-ayodele/po-extractor/internal/llm"
	"github.com/joseph-ayodele/po-extractor/internal/llm/provider"
	"github.com/joseph-ayodele/po-extractor/internal/pipeline"
	"github.com/joseph-ayodele/po-extractor/internal/profiles"
	"github.com/joseph-ayodele/po-extractor/internal/recovery"
	"github.com/joseph-ayodele/po-extractor/internal/repository"
	"github.com/joseph-ayodele/po-extractor/internal/server"
)

const (
	shutdownTimeout  = 15 * time.Second
	profilesDebounce = 250 * time.Millisecond
)

type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Processor *core.Processor
	Profiles  *profiles.Registry
	Runs      repository.RunRepository
	Exporter  *export.Service
	ModelName string

	closeRuns func()
}

// Option overrides a component New would otherwise build from config.
type Option func(*options)

type options struct {
	invoker   llm.Invoker
	modelName string
	converter core.TextConverter
}

// WithInvoker replaces the configured model provider.
func WithInvoker(inv llm.Invoker, modelName string) Option {
	return func(o *options) {
		o.invoker = inv
		o.modelName = modelName
	}
}

// WithConverter replaces the document-to-text converter.
func WithConverter(c core.TextConverter) Option {
	return func(o *options) { o.converter = c }
}

// New opens the audit store, loads client profiles and builds the processor.
// Callers must Close the returned App.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}

	if o.invoker == nil {
		inv, model, err := provider.New(cfg.LLM, logger)
		if err != nil {
			return nil, err
		}
		o.invoker, o.modelName = inv, model
	}
	if o.converter == nil {
		o.converter = extract.NewExtractor(extract.Config{
			PDFToText: cfg.Extract.PDFToText,
			Timeout:   cfg.Extract.Timeout,
			MaxPages:  cfg.Extract.MaxPages,
		}, logger)
	}

	registry, err := profiles.Load(cfg.ProfilesPath, logger)
	if err != nil {
		return nil, common.WrapError(err, "loading client profiles")
	}

	runs, closeRuns, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, common.WrapError(err, "opening audit store")
	}

	controller := pipeline.NewController(o.invoker, logger,
		pipeline.WithInvokeTimeout(cfg.LLM.Timeout),
		pipeline.WithStrict(cfg.Pipeline.Strict),
		pipeline.WithRecoveryEngine(recovery.New(logger)),
	)

	logger.Info("app.ready",
		"model", o.modelName,
		"profiles", len(registry.Names()),
		"db_driver", cfg.Database.Driver,
		"strict", cfg.Pipeline.Strict,
	)
	return &App{
		Config:    cfg,
		Logger:    logger,
		Processor: core.NewProcessor(logger, o.converter, controller, registry, runs, o.modelName),
		Profiles:  registry,
		Runs:      runs,
		Exporter:  export.NewService(logger),
		ModelName: o.modelName,
		closeRuns: closeRuns,
	}, nil
}

func (a *App) Close() {
	if a.closeRuns != nil {
		a.closeRuns()
	}
}

// ReloadProfiles re-reads the profiles file, keeping the old set on error.
func (a *App) ReloadProfiles() {
	if err := a.Profiles.Reload(); err != nil {
		a.Logger.Error("profiles.reload.failed", "path", a.Profiles.Path(), "error", err)
		return
	}
	a.Logger.Info("profiles.reloaded", "path", a.Profiles.Path(), "count", len(a.Profiles.Names()))
}

// ApplyConfig reacts to a reloaded configuration. A changed profiles_path
// switches the registry to the new file; otherwise the current file is re-read.
func (a *App) ApplyConfig(cfg *common.Config) {
	if cfg == nil || cfg.ProfilesPath == a.Profiles.Path() {
		a.ReloadProfiles()
		return
	}
	if err := a.Profiles.SetPath(cfg.ProfilesPath); err != nil {
		a.Logger.Error("profiles.switch.failed", "path", cfg.ProfilesPath, "error", err)
		return
	}
	a.Logger.Info("profiles.switched", "path", cfg.ProfilesPath, "count", len(a.Profiles.Names()))
}

// WatchProfiles reloads the profiles registry whenever its file changes, until
// ctx is done. Failing to start the watcher is logged, not fatal.
func (a *App) WatchProfiles(ctx context.Context) {
	if err := a.Profiles.Watch(ctx, profilesDebounce); err != nil {
		a.Logger.Warn("profiles.watch.disabled", "path", a.Profiles.Path(), "error", err)
	}
}

// Serve runs the gRPC and HTTP servers until ctx is done, then drains both.
func (a *App) Serve(ctx context.Context) error {
	errCh := make(chan error, 2)
	var stops []func(context.Context)

	if addr := a.Config.Server.GRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			a.Logger.Error("failed to listen on address", "addr", addr, "error", err)
			return err
		}
		grpcServer := grpc.NewServer()
		hs := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, hs)
		hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		server.RegisterExtractionServer(grpcServer, server.NewExtractionService(a.Processor, a.Logger))
		reflection.Register(grpcServer)

		go func() {
			a.Logger.Info("grpc.serving", "addr", addr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
		stops = append(stops, func(ctx context.Context) {
			hs.Shutdown()
			done := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				grpcServer.Stop()
			}
		})
	}

	if addr := a.Config.Server.HTTPAddr; addr != "" {
		httpServer := &http.Server{
			Addr: addr,
			Handler: server.NewRouter(server.RouterConfig{
				Uploader:   a.Processor,
				Runs:       a.Runs,
				Exporter:   a.Exporter,
				CORSOrigin: a.Config.Server.CORSOrigin,
				Logger:     a.Logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			a.Logger.Info("http.serving", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http serve: %w", err)
			}
		}()
		stops = append(stops, func(ctx context.Context) {
			if err := httpServer.Shutdown(ctx); err != nil {
				a.Logger.Warn("http shutdown", "error", err)
			}
		})
	}

	if len(stops) == 0 {
		return common.NewAppError("CONFIG_ERROR", "no server address configured", common.ErrInvalidInput)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		a.Logger.Error("server.failed", "error", serveErr)
	}

	a.Logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, stop := range stops {
		stop(shutdownCtx)
	}
	a.Logger.Info("stopped")
	return serveErr
}

// WatchOptions configures folder ingestion.
type WatchOptions struct {
	Roots    []string
	Client   string
	Force    bool
	Debounce time.Duration
}

// Watch extracts every unprocessed document under the roots, then keeps
// extracting files as they appear until ctx is done. Each result is written
// next to its source document.
func (a *App) Watch(ctx context.Context, wo WatchOptions) error {
	if wo.Debounce <= 0 {
		wo.Debounce = 750 * time.Millisecond
	}
	queue := async.NewProcessorQueue(a.handleJob(wo.Client), a.Logger,
		async.WithWorkers(a.Config.Pipeline.Workers),
		async.WithQueueSize(a.Config.Pipeline.QueueSize),
		async.WithProcessTimeout(a.Config.Pipeline.ProcessTimeout),
		async.WithBaseContext(ctx),
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		queue.Shutdown(shutdownCtx)
	}()

	if wo.Force {
		for _, root := range wo.Roots {
			paths, err := ingest.ScanDir(root, true)
			if err != nil {
				return err
			}
			for _, p := range paths {
				if err := queue.Enqueue(ctx, async.NewJob(p)); err != nil {
					return err
				}
			}
		}
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       wo.Roots,
		InitialScan: !wo.Force,
		Debounce:    wo.Debounce,
	}, a.Logger)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.Logger.Warn("watcher.error", "error", err)
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if err := queue.Enqueue(ctx, async.NewJob(path)); err != nil {
				if errors.Is(err, async.ErrQueueClosed) || ctx.Err() != nil {
					return nil
				}
				a.Logger.Error("watcher.enqueue.failed", "path", path, "error", err)
			}
		}
	}
}

func (a *App) handleJob(client string) async.Handler {
	return func(ctx context.Context, job async.Job) error {
		res, err := a.Processor.ProcessFile(ctx, job.Path, core.Options{
			ClientName: client,
			Strict:     a.Config.Pipeline.Strict,
		})
		if err != nil {
			return err
		}
		dst, err := ingest.WriteResult(job.Path, res)
		if err != nil {
			return err
		}
		a.Logger.Info("watch.result.written", "job_id", job.ID, "path", dst,
			"needs_review", res.NeedsReview, "confidence", res.Confidence)
		return nil
	}
}
