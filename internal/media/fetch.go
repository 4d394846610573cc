package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/neekaru/whatsappgo-fleet/internal/client"
)

// Fetcher downloads media from remote URLs into memory.
type Fetcher struct {
	HTTP     *http.Client
	MaxBytes int64
	Timeout  time.Duration
}

// Fetch downloads rawURL. The MIME type comes from Content-Type, or is
// sniffed when the server omits it or sends a generic type. The file name
// comes from the URL path, then Content-Disposition.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*client.Media, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("unsupported media URL")}
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	httpClient := f.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	body := io.Reader(resp.Body)
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("media exceeds %d bytes", f.MaxBytes)}
	}
	if len(data) == 0 {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("empty body")}
	}

	mimeType := contentType(resp.Header.Get("Content-Type"), data)
	return &client.Media{
		MimeType: mimeType,
		Data:     data,
		FileName: fileName(u, resp.Header.Get("Content-Disposition"), mimeType),
	}, nil
}

func contentType(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
		return mt
	}
	return mimetype.Detect(data).String()
}

func fileName(u *url.URL, disposition, mimeType string) string {
	if base := path.Base(u.Path); base != "." && base != "/" && strings.Contains(base, ".") {
		return base
	}
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	if mt := mimetype.Lookup(mimeType); mt != nil {
		return "file" + mt.Extension()
	}
	return "file"
}
