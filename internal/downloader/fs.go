package downloader

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FileSystem 是传输任务使用的文件系统
type FileSystem interface {
	MkdirAll(dir string) error
	Exists(path string) (bool, error)
	// CreateExclusive 创建新文件，文件已存在时返回 fs.ErrExist
	CreateExclusive(path string) (io.WriteCloser, error)
	Remove(path string) error
}

// OSFileSystem 基于本地磁盘实现 FileSystem
type OSFileSystem struct{}

func (OSFileSystem) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func (OSFileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (OSFileSystem) CreateExclusive(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func (OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// maxNameAttempts 限制同名冲突时的重命名次数
const maxNameAttempts = 100

// timestampedPath 在文件名主干后追加时间戳，n > 0 时再追加序号
func timestampedPath(path string, ts time.Time, n int) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name := fmt.Sprintf("%s_%d%s", stem, ts.Unix(), ext)
	if n > 0 {
		name = fmt.Sprintf("%s_%d_%d%s", stem, ts.Unix(), n, ext)
	}
	return filepath.Join(dir, name)
}

// createUnique 确保目录存在并以独占方式创建目标文件。
// 目标已存在时改用带时间戳的文件名，绝不覆盖已有文件。
func createUnique(fsys FileSystem, path string, now time.Time) (string, io.WriteCloser, error) {
	if err := fsys.MkdirAll(filepath.Dir(path)); err != nil {
		return "", nil, err
	}

	exists, err := fsys.Exists(path)
	if err != nil {
		return "", nil, err
	}

	candidate := path
	if exists {
		candidate = timestampedPath(path, now, 0)
	}

	for n := 1; n <= maxNameAttempts; n++ {
		f, err := fsys.CreateExclusive(candidate)
		if err == nil {
			return candidate, f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", nil, err
		}
		candidate = timestampedPath(path, now, n)
	}
	return "", nil, errors.Errorf("no free file name for %s after %d attempts", path, maxNameAttempts)
}
