package util

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	nhttp "github.com/chaos-io/bgremover/util/http"
)

// File is raw file content with the name and the detected MIME type.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// LoadFile reads a local path, or downloads src when it is an http(s) URL.
// The MIME type is sniffed from the content, not taken from the name.
func LoadFile(ctx context.Context, cli nhttp.IClient, src string) (File, error) {
	var (
		name string
		data []byte
		err  error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		name, data, err = download(ctx, cli, src)
	} else {
		name = filepath.Base(src)
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return File{}, err
	}

	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return File{Name: name, MIMEType: mt, Data: data}, nil
}

// download 下载文件
func download(ctx context.Context, cli nhttp.IClient, rawURL string) (string, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("parse url: %w", err)
	}

	var data []byte
	err = cli.DoHTTPRequest(ctx, &nhttp.RequestParam{
		RequestURI: rawURL,
		Method:     http.MethodGet,
		Response:   &data,
	})
	if err != nil {
		return "", nil, fmt.Errorf("download %s: %w", rawURL, err)
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = u.Host
	}
	return name, data, nil
}

// Trace logs how long the enclosing call took: defer util.Trace("msg")()
func Trace(msg string) func() {
	start := time.Now()
	return func() {
		slog.Info(msg, "elapsed", time.Since(start))
	}
}
