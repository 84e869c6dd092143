package downloader

import (
	"github.com/pkg/errors"
)

var (
	ErrMissingParameters = errors.New("missing required parameters")
	ErrInvalidFolder     = errors.New("invalid folder")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrInvalidURL        = errors.New("invalid url")
	ErrShuttingDown      = errors.New("downloader is shutting down")
)

// ValidationError 是同步返回给调用方的请求校验错误，不会创建记录
type ValidationError struct {
	Reason  error  // 对应的哨兵错误
	Code    string // 指标标签
	Message string // 返回给调用方的文本
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// Kind 是后台传输错误的类别
type Kind string

const (
	KindDirectory Kind = "directory" // 准备目标目录失败，未进行网络 I/O
	KindTransport Kind = "transport" // 连接失败、超时或非 2xx 响应
	KindIO        Kind = "io"        // 写入磁盘失败
)

// TransferError 是后台传输阶段的错误，最终转换为记录的 error 状态
type TransferError struct {
	Kind Kind
	Err  error
}

func (e *TransferError) Error() string {
	if e.Kind == KindDirectory {
		return "Failed to create download directory: " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func directoryError(err error) error {
	return &TransferError{Kind: KindDirectory, Err: err}
}

func transportError(err error) error {
	return &TransferError{Kind: KindTransport, Err: err}
}

func ioError(err error) error {
	return &TransferError{Kind: KindIO, Err: err}
}
