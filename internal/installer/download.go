package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// compoundExts are kept whole when deriving a download's file extension.
var compoundExts = []string{".tar.gz", ".tar.xz", ".tar.bz2", ".tgz"}

// Downloader streams engine artifacts into a temporary directory.
//
// The destination of a download is <dir>/<sha256(url)><ext>, where ext is
// taken from the final URL after redirects. Downloading the same URL twice
// therefore reuses one path, and artifacts abandoned by an interrupted run
// are overwritten by the next one instead of accumulating.
type Downloader struct {
	client    *http.Client
	dir       string
	userAgent string
	retries   int
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) DownloaderOption {
	return func(d *Downloader) {
		if n >= 0 {
			d.retries = n
		}
	}
}

// WithTimeout sets the timeout of a single download attempt.
func WithTimeout(timeout time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// NewDownloader creates a new downloader writing into dir.
func NewDownloader(dir string, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		dir:       dir,
		userAgent: DefaultUserAgent,
		retries:   DefaultRetries,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches url and returns the path of the downloaded file. Byte
// progress is reported through status.
func (d *Downloader) Download(ctx context.Context, url string, status Status) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		dest, err := d.downloadOnce(ctx, url, status)
		if err == nil {
			return dest, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Client errors will not go away by asking again.
		var de *DownloadError
		if errors.As(err, &de) && de.StatusCode >= 400 && de.StatusCode < 500 {
			return "", err
		}
	}

	return "", lastErr
}

// TempPath returns where a download of finalURL requested as url is stored.
func (d *Downloader) TempPath(url, finalURL string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+extension(finalURL))
}

func (d *Downloader) downloadOnce(ctx context.Context, url string, status Status) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &DownloadError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: url, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	destPath := d.TempPath(url, resp.Request.URL.String())
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	progress := status.Progress(resp.ContentLength)
	_, err = io.Copy(tmpFile, &progressReader{r: resp.Body, p: progress})
	progress.Stop()
	if err != nil {
		return "", &DownloadError{URL: url, Err: fmt.Errorf("copy response body: %w", err)}
	}

	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return destPath, nil
}

type progressReader struct {
	r    io.Reader
	p    Progress
	read int64
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.read += int64(n)
		pr.p.Update(pr.read)
	}
	return n, err
}

// extension returns the file extension of a URL's path, keeping compound
// archive extensions such as ".tar.gz" whole.
func extension(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	base := strings.ToLower(path.Base(p))
	for _, ext := range compoundExts {
		if strings.HasSuffix(base, ext) {
			return base[len(base)-len(ext):]
		}
	}
	ext := path.Ext(base)
	// Only keep things that look like extensions; version strings such as
	// "cc_linux_x64_1.11.24" would otherwise yield ".24".
	if len(ext) < 2 || len(ext) > 5 || strings.Trim(ext[1:], "0123456789") == "" {
		return ""
	}
	return ext
}
