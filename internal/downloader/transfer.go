package downloader

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/luan78zao/model_downloader/internal/broadcast"
	"github.com/luan78zao/model_downloader/internal/logging"
	"github.com/luan78zao/model_downloader/internal/model"
	"github.com/luan78zao/model_downloader/internal/progress"
)

// transfer 保存一次传输的运行状态，只由所属 goroutine 访问
type transfer struct {
	d        *Downloader
	id       string
	url      string
	path     string
	logger   logging.Logger
	throttle *progress.Throttle

	start      time.Time
	total      int64
	downloaded int64
	lastLogged int
}

// run 执行一次下载并把结果写入记录，所有错误在这里转换为 error 状态
func (d *Downloader) run(ctx context.Context, id, url, path string) {
	t := &transfer{
		d:          d,
		id:         id,
		url:        url,
		path:       path,
		logger:     d.logger.With("download_id", id),
		throttle:   progress.NewThrottle(d.opts.BroadcastInterval),
		start:      d.now(),
		lastLogged: -1,
	}

	t.logger.Info(ctx, "starting download", "url", url, "path", path)

	status := model.StatusCompleted
	if err := t.execute(ctx); err != nil {
		status = model.StatusError
		t.fail(ctx, err)
	} else {
		t.complete(ctx)
	}

	d.metrics.DownloadFinished(string(status), d.now().Sub(t.start))
	d.sweeper.Schedule(id)
}

// execute 依次执行各阶段，任一阶段出错立即返回
func (t *transfer) execute(ctx context.Context) error {
	f, err := t.prepareDestination(ctx)
	if err != nil {
		return err
	}

	t.discoverSize(ctx)

	written, err := t.stream(ctx, f)
	closeErr := f.Close()
	if err == nil && closeErr != nil {
		err = ioError(errors.Wrap(closeErr, "close file"))
	}

	if err != nil && written == 0 {
		// 没有写入任何数据时删除占位文件
		if rmErr := t.d.fs.Remove(t.path); rmErr != nil {
			t.logger.Warn(ctx, "failed to remove empty file", "path", t.path, "error", rmErr)
		}
	}
	return err
}

// prepareDestination 确保目录存在并独占创建目标文件，同名文件存在时追加时间戳
func (t *transfer) prepareDestination(ctx context.Context) (io.WriteCloser, error) {
	path, f, err := createUnique(t.d.fs, t.path, t.d.now())
	if err != nil {
		return nil, directoryError(err)
	}

	if path != t.path {
		t.logger.Warn(ctx, "file already exists, using timestamped name", "requested", t.path, "path", path)
		t.path = path
		t.d.store.Update(t.id, func(d *model.Download) {
			d.FilePath = path
			d.FileName = filepath.Base(path)
		})
	}
	return f, nil
}

// discoverSize 通过 HEAD 获取文件大小，失败不影响后续下载
func (t *transfer) discoverSize(ctx context.Context) {
	info, err := t.d.client.Head(ctx, t.url)
	if err != nil {
		t.logger.Warn(ctx, "HEAD request failed", "error", err)
		return
	}
	if info.Size <= 0 {
		return
	}

	t.total = info.Size
	t.d.store.Update(t.id, func(d *model.Download) {
		d.TotalBytes = info.Size
		d.ContentType = info.ContentType
	})
	t.logger.Info(ctx, "file size from HEAD", "bytes", info.Size, "size", progress.FormatMB(info.Size))
}

// stream 发起 GET 并按固定分块写入文件，返回已写入字节数
func (t *transfer) stream(ctx context.Context, w io.Writer) (int64, error) {
	resp, err := t.d.client.Get(ctx, t.url)
	if err != nil {
		return 0, transportError(err)
	}
	defer resp.Body.Close()

	// GET 报告的长度优先，保证 downloaded <= total
	if resp.ContentLength > 0 && resp.ContentLength != t.total {
		t.total = resp.ContentLength
		t.d.store.Update(t.id, func(d *model.Download) {
			d.TotalBytes = resp.ContentLength
			if resp.ContentType != "" {
				d.ContentType = resp.ContentType
			}
		})
	}

	t.logger.Info(ctx, "beginning data transfer", "size", progress.FormatMB(t.total))

	buf := make([]byte, t.d.opts.ChunkSize)
	empty := 0
	for {
		n, eof, err := readChunk(resp.Body, buf)
		if n == 0 && err == nil && !eof {
			empty++
			if empty >= maxEmptyReads {
				return t.downloaded, transportError(errors.Wrap(io.ErrNoProgress, "read response body"))
			}
			continue
		}
		empty = 0
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return t.downloaded, ioError(errors.Wrap(werr, "write chunk"))
			}
			t.advance(ctx, n)
		}
		if err != nil {
			return t.downloaded, transportError(errors.Wrap(err, "read response body"))
		}
		if eof {
			return t.downloaded, nil
		}
	}
}

// maxEmptyReads 限制连续返回 0 字节且无错误的读取次数
const maxEmptyReads = 100

// readChunk 读取一次，最多 len(buf) 字节；有数据即返回，不等待填满 buf。
// eof 表示流已正常结束。
func readChunk(r io.Reader, buf []byte) (n int, eof bool, err error) {
	n, err = r.Read(buf)
	if err == io.EOF {
		return n, true, nil
	}
	return n, false, err
}

// advance 累加字节数，重新计算指标，并按节流间隔广播
func (t *transfer) advance(ctx context.Context, n int) {
	t.downloaded += int64(n)
	if t.total > 0 && t.downloaded > t.total {
		t.total = t.downloaded
	}
	t.d.metrics.BytesWritten(n)

	now := t.d.now()
	downloaded, total := t.downloaded, t.total
	snap, ok := t.d.store.Update(t.id, func(d *model.Download) {
		d.Downloaded = downloaded
		d.TotalBytes = total
		d.Percent = progress.Percent(downloaded, total)

		speed, ok := progress.SpeedMBps(downloaded, now.Sub(t.start))
		if !ok {
			return
		}
		rounded := progress.Round2(speed)
		d.SpeedMBps = &rounded
		if eta, ok := progress.ETASeconds(downloaded, total, speed); ok {
			d.ETASeconds = &eta
		}
	})
	if !ok {
		return
	}

	t.logProgress(ctx, snap)

	if t.throttle.Allow(now) {
		t.broadcast(snap)
	}
}

// logProgress 每跨过一个 10% 记录一次进度
func (t *transfer) logProgress(ctx context.Context, d model.Download) {
	if d.Percent == 0 || d.Percent%10 != 0 || d.Percent == t.lastLogged {
		return
	}
	t.lastLogged = d.Percent

	args := []any{
		"percent", d.Percent,
		"downloaded", progress.FormatMB(d.Downloaded),
		"total", progress.FormatMB(d.TotalBytes),
	}
	if d.SpeedMBps != nil {
		args = append(args, "speed_mbps", *d.SpeedMBps)
	}
	if d.ETASeconds != nil {
		args = append(args, "eta", progress.FormatETA(*d.ETASeconds))
	}
	t.logger.Info(ctx, "download progress", args...)
}

// complete 标记完成并无条件广播最终状态
func (t *transfer) complete(ctx context.Context) {
	end := t.d.now()
	downloaded, total := t.downloaded, t.total

	snap, ok := t.d.store.Update(t.id, func(d *model.Download) {
		if d.Status.Terminal() {
			return
		}
		d.Status = model.StatusCompleted
		d.EndTime = &end
		d.Downloaded = downloaded
		d.Percent = 0
		if total > 0 {
			d.Percent = 100
		}
	})

	elapsed := end.Sub(t.start)
	avg := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		avg = progress.Round2(float64(downloaded) / progress.MiB / secs)
	}
	t.logger.Info(ctx, "download completed",
		"path", t.path,
		"size", progress.FormatMB(downloaded),
		"elapsed_seconds", progress.Round2(elapsed.Seconds()),
		"speed_mbps", avg)

	if ok {
		t.broadcast(snap)
	}
}

// fail 标记错误并无条件广播最终状态
func (t *transfer) fail(ctx context.Context, err error) {
	end := t.d.now()
	msg := err.Error()

	snap, ok := t.d.store.Update(t.id, func(d *model.Download) {
		if d.Status.Terminal() {
			return
		}
		d.Status = model.StatusError
		d.ErrorMessage = msg
		d.EndTime = &end
	})

	var te *TransferError
	kind := "unknown"
	if errors.As(err, &te) {
		kind = string(te.Kind)
	}
	t.logger.Error(ctx, "download failed", "kind", kind, "error", msg, "downloaded", t.downloaded)

	if ok {
		t.broadcast(snap)
	}
}

func (t *transfer) broadcast(d model.Download) {
	t.d.sink.Notify(broadcast.EventDownloadProgress, d)
	t.d.metrics.BroadcastSent()
}
