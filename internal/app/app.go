// Package app 组装下载服务的各个组件，并负责 HTTP 服务器的启动与优雅退出
package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luan78zao/model_downloader/internal/broadcast"
	"github.com/luan78zao/model_downloader/internal/config"
	"github.com/luan78zao/model_downloader/internal/downloader"
	"github.com/luan78zao/model_downloader/internal/folders"
	"github.com/luan78zao/model_downloader/internal/handler"
	"github.com/luan78zao/model_downloader/internal/httpclient"
	"github.com/luan78zao/model_downloader/internal/logging"
	"github.com/luan78zao/model_downloader/internal/metrics"
	"github.com/luan78zao/model_downloader/internal/store"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	downloader *downloader.Downloader
	hub        *broadcast.Hub
	handler    http.Handler
}

// NewApp 按配置创建所有组件，日志写入 w
func NewApp(cfg *config.Config, w io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, w)

	mux := http.NewServeMux()

	var m downloader.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	clientOpts := httpclient.DefaultOptions()
	clientOpts.ConnectTimeout = cfg.ConnectTimeout
	clientOpts.ReadTimeout = cfg.ReadTimeout

	resolver := folders.NewResolver(cfg.Folders)
	hub := broadcast.NewHub(0, logger)

	dl := downloader.New(downloader.Deps{
		Store:   store.New(),
		Folders: resolver,
		Client:  httpclient.New(clientOpts),
		Sink:    hub,
		Metrics: m,
		Logger:  logger,
	}, downloader.Options{
		ChunkSize:         cfg.ChunkSize,
		BroadcastInterval: cfg.BroadcastInterval,
		Retention:         cfg.Retention,
	})

	handler.New(dl, resolver, hub, logger).RegisterRoutes(mux)

	return &App{
		config:     cfg,
		logger:     logger.With("module", "app"),
		downloader: dl,
		hub:        hub,
		handler:    handler.WithRequestID(mux, logger),
	}, nil
}

// Handler 返回带中间件的根处理器
func (app *App) Handler() http.Handler {
	return app.handler
}

// initSignalHandler 在收到退出信号时调用 cancelFunc，返回的函数注销信号监听
func (app *App) initSignalHandler(cancelFunc context.CancelFunc) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
		})
	}
}

// Run 启动 HTTP 服务器，直到 ctx 取消、收到退出信号或服务器出错
func (app *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.ServerAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", app.config.ServerAddr)
	}
	return app.Serve(ctx, ln)
}

// Serve 在给定 listener 上提供服务并在退出时依次关闭服务器、下载器与广播
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stopSignals := app.initSignalHandler(cancelFunc)
	defer stopSignals()

	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: app.config.ReadTimeout,
	}

	app.logger.Info(ctx, "server starting",
		"addr", ln.Addr().String(),
		"models_dir", app.config.ModelsDir,
		"metrics", app.config.MetricsEnabled)

	var (
		wg       sync.WaitGroup
		serveErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			cancelFunc()
		}
	}()

	<-ctx.Done()
	app.logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	// SSE 连接只在广播关闭或客户端断开时结束，先关闭广播
	app.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "http server shutdown", "error", err)
	}
	if err := app.downloader.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "downloads abandoned at shutdown", "error", err)
	}

	wg.Wait()
	if serveErr != nil {
		return errors.Wrap(serveErr, "http server")
	}
	app.logger.Info(context.Background(), "server stopped")
	return nil
}
