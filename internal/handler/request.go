package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/luan78zao/model_downloader/internal/model"
)

// maxBodyBytes 限制下载请求体大小
const maxBodyBytes = 1 << 20

// ErrBadRequest 表示请求体无法解析
var ErrBadRequest = errors.New("malformed request body")

// ParseDownloadRequest 把 JSON、表单、查询参数或原始文本请求体统一解析为 DownloadRequest
func ParseDownloadRequest(r *http.Request) (model.DownloadRequest, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	contentType := r.Header.Get("Content-Type")

	var values map[string]string
	switch {
	case strings.Contains(contentType, "application/json"):
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return model.DownloadRequest{}, errors.Wrap(err, "read request body")
		}
		values, err = parseJSON(body)
		if err != nil {
			return model.DownloadRequest{}, errors.Wrap(ErrBadRequest, err.Error())
		}

	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return model.DownloadRequest{}, errors.Wrap(ErrBadRequest, err.Error())
		}
		values = flatten(r.PostForm)

	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return model.DownloadRequest{}, errors.Wrap(err, "read request body")
		}
		values = flatten(r.URL.Query())
		if len(values) == 0 && len(body) > 0 {
			values = parseRaw(body)
		}
	}

	return model.DownloadRequest{
		URL:      strings.TrimSpace(values["url"]),
		Folder:   strings.TrimSpace(values["folder"]),
		Filename: strings.TrimSpace(values["filename"]),
	}, nil
}

// parseRaw 先尝试 JSON，再按 k=v&k=v 解析
func parseRaw(body []byte) map[string]string {
	if values, err := parseJSON(body); err == nil {
		return values
	}
	q, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil
	}
	return flatten(q)
}

func parseJSON(body []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
		case string:
			values[k] = v
		default:
			values[k] = fmt.Sprint(v)
		}
	}
	return values, nil
}

func flatten(v url.Values) map[string]string {
	values := make(map[string]string, len(v))
	for k := range v {
		values[k] = v.Get(k)
	}
	return values
}
