package model

import (
	"time"
)

// Status 表示下载任务的状态
type Status string

const (
	StatusDownloading Status = "downloading" // 下载中
	StatusCompleted   Status = "completed"   // 已完成
	StatusError       Status = "error"       // 出错
)

// StatusQueued 只出现在创建响应中，记录本身从 downloading 开始
const StatusQueued = "queued"

// Terminal 判断是否为终止状态
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Download 表示一个下载任务的进度记录
type Download struct {
	ID           string     `json:"download_id"`            // 任务ID
	URL          string     `json:"url"`                    // 源地址
	Folder       string     `json:"folder"`                 // 目录类别
	FileName     string     `json:"filename"`               // 文件名
	FilePath     string     `json:"path"`                   // 文件路径
	ContentType  string     `json:"content_type,omitempty"` // 内容类型
	TotalBytes   int64      `json:"total_size"`             // 总大小（字节），0 表示未知
	Downloaded   int64      `json:"downloaded"`             // 已下载字节数
	Percent      int        `json:"percent"`                // 完成百分比
	SpeedMBps    *float64   `json:"speed,omitempty"`        // 速度 MB/s
	ETASeconds   *int64     `json:"eta,omitempty"`          // 剩余时间（秒）
	Status       Status     `json:"status"`                 // 任务状态
	ErrorMessage string     `json:"error,omitempty"`        // 错误信息
	StartTime    time.Time  `json:"start_time"`             // 开始时间
	EndTime      *time.Time `json:"end_time,omitempty"`     // 结束时间
}

// Clone 返回记录的深拷贝，读者拿到的副本与写入方不共享内存
func (d *Download) Clone() Download {
	c := *d
	if d.SpeedMBps != nil {
		v := *d.SpeedMBps
		c.SpeedMBps = &v
	}
	if d.ETASeconds != nil {
		v := *d.ETASeconds
		c.ETASeconds = &v
	}
	if d.EndTime != nil {
		v := *d.EndTime
		c.EndTime = &v
	}
	return c
}

// DownloadRequest 是经过规范化的下载请求
type DownloadRequest struct {
	URL      string `json:"url"`
	Folder   string `json:"folder"`
	Filename string `json:"filename"`
}

// StartResult 是创建下载任务的同步响应
type StartResult struct {
	Success    bool   `json:"success"`
	DownloadID string `json:"download_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}
