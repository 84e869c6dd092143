// Package httpclient 提供下载使用的 HEAD/GET 客户端
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ErrReadTimeout 表示响应体在读超时内没有任何数据
var ErrReadTimeout = errors.New("read timeout")

// StatusError 表示非 2xx 响应
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Code, e.Reason)
}

// Options 配置 HTTP 客户端
type Options struct {
	// ConnectTimeout 建立 TCP 连接的超时
	ConnectTimeout time.Duration

	// ReadTimeout 等待响应头以及两次读取之间的最长空闲时间
	ReadTimeout time.Duration

	MaxIdleConnsPerHost int
}

// DefaultOptions 返回默认选项
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:      30 * time.Second,
		ReadTimeout:         30 * time.Second,
		MaxIdleConnsPerHost: 16,
	}
}

// FileInfo 是 HEAD 请求得到的元数据
type FileInfo struct {
	Size        int64 // 0 表示未知
	ContentType string
}

// Stream 是 GET 请求得到的响应体
type Stream struct {
	Body          io.ReadCloser
	ContentLength int64 // 0 表示未知
	ContentType   string
}

// Client 用于大文件下载，不设置整体超时，跟随重定向
type Client struct {
	client *http.Client
	opts   Options
}

// New 创建客户端
func New(opts Options) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxIdleConns:          opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		ExpectContinueTimeout: time.Second,
		// 需要原始字节，Content-Length 才能与写入量对应
		DisableCompression: true,
	}

	return &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// Head 获取远端文件大小和类型
func (c *Client) Head(ctx context.Context, url string) (*FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	return &FileInfo{
		Size:        knownLength(resp.ContentLength),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Get 发起 GET 请求，非 2xx 响应返回 *StatusError。
// 返回的 Body 在读超时内没有数据时以 ErrReadTimeout 失败，调用方负责关闭。
func (c *Client) Get(ctx context.Context, url string) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, statusError(resp)
	}

	return &Stream{
		Body:          newIdleTimeoutBody(resp.Body, c.opts.ReadTimeout, cancel),
		ContentLength: knownLength(resp.ContentLength),
		ContentType:   resp.Header.Get("Content-Type"),
	}, nil
}

func statusError(resp *http.Response) error {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Code: resp.StatusCode, Reason: reason}
}

func knownLength(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// idleTimeoutBody 在单次 Read 阻塞超过 timeout 时取消请求
type idleTimeoutBody struct {
	body     io.ReadCloser
	timeout  time.Duration
	timer    *time.Timer
	cancel   context.CancelFunc
	timedOut atomic.Bool
	once     sync.Once
}

func newIdleTimeoutBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) io.ReadCloser {
	b := &idleTimeoutBody{body: body, timeout: timeout, cancel: cancel}
	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, func() {
			b.timedOut.Store(true)
			cancel()
		})
	}
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	if b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	n, err := b.body.Read(p)
	if b.timer != nil {
		b.timer.Stop()
	}
	if err != nil && err != io.EOF && b.timedOut.Load() {
		return n, errors.Wrapf(ErrReadTimeout, "no data for %s", b.timeout)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	var err error
	b.once.Do(func() {
		if b.timer != nil {
			b.timer.Stop()
		}
		err = b.body.Close()
		b.cancel()
	})
	return err
}
