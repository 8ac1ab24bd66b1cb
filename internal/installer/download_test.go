package installer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStatus struct {
	nopStatus
	total   int64
	last    int64
	stopped bool
}

func (s *recordingStatus) Progress(total int64) Progress {
	s.total = total
	return s
}

func (s *recordingStatus) Update(n int64) { s.last = n }
func (s *recordingStatus) Stop()          { s.stopped = true }

func TestExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://example.com/quickjs-linux-x86_64-2024-01-13.zip", want: ".zip"},
		{url: "https://example.com/hermes-cli-linux-v0.12.0.tar.gz", want: ".tar.gz"},
		{url: "https://example.com/a/b.TAR.BZ2?x=1", want: ".tar.bz2"},
		{url: "https://example.com/pkg.tgz#frag", want: ".tgz"},
		{url: "https://example.com/boa-linux-amd64", want: ""},
		{url: "https://aka.ms/chakracore/cc_linux_x64_1.11.24", want: ""},
		{url: "https://example.com/v8-linux64-rel-12.1.285.zip", want: ".zip"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, extension(tt.url))
		})
	}
}

func TestDownloader_DeterministicPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir())
	status := &recordingStatus{}

	first, err := d.Download(context.Background(), srv.URL+"/engine.zip", status)
	require.NoError(t, err)
	second, err := d.Download(context.Background(), srv.URL+"/engine.zip", status)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(first, ".zip"))
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	assert.Equal(t, int64(len("payload")), status.total)
	assert.Equal(t, int64(len("payload")), status.last)
	assert.True(t, status.stopped)
	assert.NoFileExists(t, first+".tmp")
}

func TestDownloader_ExtensionFromRedirectTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/files/archive.tar.gz", http.StatusFound)
	})
	mux.HandleFunc("/files/archive.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tarball"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewDownloader(t.TempDir())
	path, err := d.Download(context.Background(), srv.URL+"/latest", nopStatus{})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, ".tar.gz"), "got %s", path)
	assert.Equal(t, d.TempPath(srv.URL+"/latest", srv.URL+"/files/archive.tar.gz"), path)
}

func TestDownloader_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir(), WithRetries(3))
	_, err := d.Download(context.Background(), srv.URL+"/nope.zip", nopStatus{})

	var de *DownloadError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusNotFound, de.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloader_ServerErrorRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir(), WithRetries(1))
	_, err := d.Download(context.Background(), srv.URL+"/flaky.zip", nopStatus{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDownloader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDownloader(t.TempDir()).Download(ctx, "http://127.0.0.1:1/x.zip", nopStatus{})
	assert.ErrorIs(t, err, context.Canceled)
}
