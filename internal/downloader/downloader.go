package downloader

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/luan78zao/model_downloader/internal/httpclient"
	"github.com/luan78zao/model_downloader/internal/logging"
	"github.com/luan78zao/model_downloader/internal/model"
	"github.com/luan78zao/model_downloader/internal/progress"
	"github.com/luan78zao/model_downloader/internal/store"
)

// FolderResolver 把目录类别解析为有序路径列表，第一个为主路径
type FolderResolver interface {
	ResolveFolderPaths(category string) []string
}

// Client 是传输任务使用的 HTTP 客户端
type Client interface {
	Head(ctx context.Context, url string) (*httpclient.FileInfo, error)
	Get(ctx context.Context, url string) (*httpclient.Stream, error)
}

// Broadcaster 把记录推送给所有观察者，调用不阻塞且不返回错误
type Broadcaster interface {
	Notify(event string, d model.Download)
}

// Metrics 记录下载生命周期指标
type Metrics interface {
	DownloadStarted()
	DownloadFinished(status string, elapsed time.Duration)
	RequestRejected(reason string)
	BytesWritten(n int)
	BroadcastSent()
	RecordEvicted()
}

type nopMetrics struct{}

func (nopMetrics) DownloadStarted()                       {}
func (nopMetrics) DownloadFinished(string, time.Duration) {}
func (nopMetrics) RequestRejected(string)                 {}
func (nopMetrics) BytesWritten(int)                       {}
func (nopMetrics) BroadcastSent()                         {}
func (nopMetrics) RecordEvicted()                         {}

type nopBroadcaster struct{}

func (nopBroadcaster) Notify(string, model.Download) {}

// Options 配置下载器
type Options struct {
	// ChunkSize 每次读取并写入的分块大小，默认 1MiB
	ChunkSize int64

	// BroadcastInterval 进度广播的最小间隔，默认 1s
	BroadcastInterval time.Duration

	// Retention 终止状态记录的保留时间，默认 60s
	Retention time.Duration
}

// Deps 是下载器依赖的协作者，Store、Folders、Client、Logger 必填
type Deps struct {
	Store   *store.Store
	Folders FolderResolver
	Client  Client
	Sink    Broadcaster
	FS      FileSystem
	Metrics Metrics
	Logger  logging.Logger
}

// Downloader 校验下载请求并在后台执行传输
type Downloader struct {
	store   *store.Store
	folders FolderResolver
	client  Client
	sink    Broadcaster
	fs      FileSystem
	metrics Metrics
	sweeper *Sweeper
	logger  logging.Logger
	opts    Options
	now     func() time.Time

	// ctx 是所有传输任务的根 context，Shutdown 超时后取消
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	group  errgroup.Group
}

// New 创建一个新的下载器实例
func New(deps Deps, opts Options) *Downloader {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = progress.MiB
	}
	if opts.BroadcastInterval <= 0 {
		opts.BroadcastInterval = time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = 60 * time.Second
	}
	if deps.Sink == nil {
		deps.Sink = nopBroadcaster{}
	}
	if deps.FS == nil {
		deps.FS = OSFileSystem{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Downloader{
		store:   deps.Store,
		folders: deps.Folders,
		client:  deps.Client,
		sink:    deps.Sink,
		fs:      deps.FS,
		metrics: deps.Metrics,
		sweeper: NewSweeper(deps.Store, opts.Retention, deps.Metrics, deps.Logger),
		logger:  deps.Logger.With("module", "downloader"),
		opts:    opts,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 校验请求、创建记录并在后台启动传输，不等待任何网络或磁盘 I/O。
// 校验失败时返回 *ValidationError，此时不会创建记录。
func (d *Downloader) Start(ctx context.Context, req model.DownloadRequest) (string, error) {
	rawURL := strings.TrimSpace(req.URL)
	folder := strings.TrimSpace(req.Folder)
	filename := strings.TrimSpace(req.Filename)

	if rawURL == "" || folder == "" || filename == "" {
		return "", d.reject(ctx, &ValidationError{
			Reason:  ErrMissingParameters,
			Code:    "missing_parameters",
			Message: "Missing required parameters",
		}, req)
	}

	if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", d.reject(ctx, &ValidationError{
			Reason:  ErrInvalidURL,
			Code:    "invalid_url",
			Message: fmt.Sprintf("Invalid url: %s", rawURL),
		}, req)
	}

	if filename != filepath.Base(filename) || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return "", d.reject(ctx, &ValidationError{
			Reason:  ErrInvalidFilename,
			Code:    "invalid_filename",
			Message: fmt.Sprintf("Invalid filename: %s", filename),
		}, req)
	}

	paths := d.folders.ResolveFolderPaths(folder)
	if len(paths) == 0 {
		return "", d.reject(ctx, &ValidationError{
			Reason:  ErrInvalidFolder,
			Code:    "invalid_folder",
			Message: fmt.Sprintf("Invalid folder: %s", folder),
		}, req)
	}

	fullPath := filepath.Join(paths[0], filename)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", ErrShuttingDown
	}

	id, err := d.createRecord(model.Download{
		URL:       rawURL,
		Folder:    folder,
		FileName:  filename,
		FilePath:  fullPath,
		Status:    model.StatusDownloading,
		StartTime: now,
	}, fmt.Sprintf("%s_%s_%d", folder, filename, now.Unix()))
	if err != nil {
		return "", err
	}

	d.metrics.DownloadStarted()
	d.group.Go(func() error {
		d.run(d.ctx, id, rawURL, fullPath)
		return nil
	})

	d.logger.Info(ctx, "download queued", "download_id", id, "url", rawURL, "path", fullPath)
	return id, nil
}

// createRecord 插入初始记录；同一秒内的重复 ID 追加序号
func (d *Downloader) createRecord(rec model.Download, baseID string) (string, error) {
	id := baseID
	for n := 1; ; n++ {
		rec.ID = id
		err := d.store.Create(rec)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, store.ErrExists) {
			return "", err
		}
		id = fmt.Sprintf("%s_%d", baseID, n)
	}
}

func (d *Downloader) reject(ctx context.Context, err *ValidationError, req model.DownloadRequest) error {
	d.metrics.RequestRejected(err.Code)
	d.logger.Warn(ctx, "download request rejected",
		"reason", err.Message, "url", req.URL, "folder", req.Folder, "filename", req.Filename)
	return err
}

// GetProgress 返回指定下载的记录
func (d *Downloader) GetProgress(id string) (model.Download, error) {
	return d.store.Get(id)
}

// List 返回所有保留中的下载记录
func (d *Downloader) List() map[string]model.Download {
	return d.store.List()
}

// Shutdown 停止接受新请求并等待进行中的传输结束。
// ctx 到期时放弃剩余传输（它们会以 error 状态结束）并返回 ctx.Err()。
func (d *Downloader) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.group.Wait()
		close(done)
	}()

	defer d.sweeper.Stop()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		d.logger.Warn(ctx, "shutdown deadline reached, abandoning in-flight downloads")
		return ctx.Err()
	}
}
