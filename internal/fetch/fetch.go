// Package fetch downloads packages into a local cache directory and reuses
// them on later runs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher maps URLs to files in CacheDir.
type Fetcher struct {
	CacheDir string
	Client   Doer
	Log      *zap.Logger
}

// New returns a Fetcher using a plain HTTP client.
func New(cacheDir string, log *zap.Logger) *Fetcher {
	return &Fetcher{
		CacheDir: cacheDir,
		Client: &http.Client{
			Timeout: 10 * time.Minute,
		},
		Log: log,
	}
}

// CacheName returns the file name a URL is cached under: the last
// segment of its path.
func CacheName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in URL %q", rawURL)
	}
	return name, nil
}

// Path returns the cache location for rawURL without touching the network.
func (f *Fetcher) Path(rawURL string) (string, error) {
	name, err := CacheName(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.CacheDir, name), nil
}

// Fetch returns the local path of rawURL, downloading it only when the
// cache does not already hold a file of that name.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	dest, err := f.Path(rawURL)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(dest); err == nil {
		fields := []zap.Field{zap.String("path", dest)}
		if e, ok := f.lookup(filepath.Base(dest)); ok {
			fields = append(fields, zap.String("fetched", humanize.Time(e.FetchTime)))
		}
		f.Log.Info("Not redownloading", fields...)
		return dest, nil
	}

	f.Log.Info("Downloading", zap.String("url", rawURL))
	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return "", err
	}
	n, err := f.download(ctx, rawURL, dest)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	f.Log.Info("Downloaded", zap.String("path", dest), zap.String("size", humanize.Bytes(uint64(n))))

	if err := f.record(filepath.Base(dest), &entry{URL: rawURL, Size: n, FetchTime: time.Now()}); err != nil {
		f.Log.Warn("failed to update cache index", zap.Error(err))
	}
	return dest, nil
}

// download writes the body to dest+".part" and renames it into place once
// complete, so an interrupted transfer never looks like a cache hit.
func (f *Fetcher) download(ctx context.Context, rawURL, dest string) (n int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(part)
		}
	}()

	n, err = io.Copy(out, resp.Body)
	if err != nil {
		return n, err
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, errors.New("short body: " + humanize.Bytes(uint64(n)) + " of " + humanize.Bytes(uint64(resp.ContentLength)))
	}
	if err = out.Close(); err != nil {
		return n, err
	}
	return n, os.Rename(part, dest)
}
