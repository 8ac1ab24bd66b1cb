//go:build !windows

package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/esvm/internal/state"
	"github.com/ZebulonRouseFrantzich/esvm/internal/transaction"
)

const testToken = "linux-x64"

// engineServer serves quickjs-like archives. The archive of version "bad"
// contains an interpreter that prints the wrong answer.
type engineServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newEngineServer(t *testing.T) *engineServer {
	t.Helper()
	s := &engineServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		name, ok := strings.CutPrefix(r.URL.Path, "/quickjs-")
		version, hasExt := strings.CutSuffix(name, ".tar.gz")
		if !ok || !hasExt {
			http.NotFound(w, r)
			return
		}
		answer := "42"
		if version == "bad" {
			answer = "41"
		}
		w.Write(scriptArchive(t, answer))
	}))
	t.Cleanup(s.Close)
	return s
}

func scriptArchive(t *testing.T, answer string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range []string{"bin/qjs", "bin/run-test262"} {
		body := "#!/bin/sh\necho " + answer + "\n"
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0755, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// fakeEngine installs the archives served by engineServer.
type fakeEngine struct {
	desc     Descriptor
	baseURL  string
	latest   string
	aliases  map[string]string // requested → resolved
	extra    string            // additional entry registered by Install
	failWith error             // returned by ResolveVersion
}

func newFakeEngine(baseURL string) *fakeEngine {
	return &fakeEngine{
		desc:    Descriptor{ID: "quickjs", Name: "QuickJS", Platforms: []string{testToken}},
		baseURL: baseURL,
		latest:  "2024-01-13",
		aliases: map[string]string{},
	}
}

func (e *fakeEngine) Descriptor() Descriptor { return e.desc }

func (e *fakeEngine) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if e.failWith != nil {
		return "", e.failWith
	}
	if requested == Latest {
		return e.latest, nil
	}
	if v, ok := e.aliases[requested]; ok {
		return v, nil
	}
	return requested, nil
}

func (e *fakeEngine) DownloadURL(ctx context.Context, version string) (string, error) {
	return e.baseURL + "/quickjs-" + version + ".tar.gz", nil
}

func (e *fakeEngine) Extract(ctx context.Context, ws *Workspace) error {
	return ws.Untar()
}

func (e *fakeEngine) Install(ctx context.Context, ws *Workspace) error {
	if _, err := ws.RegisterBinary("bin/qjs", "quickjs"); err != nil {
		return err
	}
	if _, err := ws.RegisterBinary("bin/run-test262", "quickjs-run-test262"); err != nil {
		return err
	}
	if e.extra != "" {
		if _, err := ws.RegisterScript(e.extra, `"`+filepath.Join(ws.InstallPath, "bin", "qjs")+`"`); err != nil {
			return err
		}
	}
	return nil
}

func (e *fakeEngine) Test(ctx context.Context, ws *Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("quickjs"), []string{"-e", `print("42");`}, "", "42")
}

type harness struct {
	orch    *Orchestrator
	state   *state.State
	journal *transaction.Journal
	binDir  string
	engines string
	tmpDir  string
}

func newHarness(t *testing.T, s *state.State) *harness {
	t.Helper()
	home := t.TempDir()
	if s == nil {
		s = state.New(nil)
	}
	h := &harness{
		state:   s,
		journal: transaction.NewJournal(filepath.Join(home, "txn")),
		binDir:  filepath.Join(home, "bin"),
		engines: filepath.Join(home, "engines"),
		tmpDir:  filepath.Join(home, "tmp"),
	}
	orch, err := NewOrchestrator(Config{
		State:      s,
		Platform:   testToken,
		BinDir:     h.binDir,
		EnginesDir: h.engines,
		Downloader: NewDownloader(h.tmpDir, WithRetries(0)),
		Journal:    h.journal,
	})
	require.NoError(t, err)
	h.orch = orch
	return h
}

func (h *harness) binEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.binDir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestInstall_EndToEnd(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)

	res, err := h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)

	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, "quickjs", res.Slot)
	assert.Equal(t, "2024-01-13", res.Version)
	assert.False(t, res.UpToDate)

	rec, ok := h.state.Record("quickjs")
	require.True(t, ok)
	assert.Equal(t, state.Record{Version: "2024-01-13", BinEntries: []string{"quickjs", "quickjs-run-test262"}}, rec)
	assert.ElementsMatch(t, rec.BinEntries, h.binEntries(t))
	assert.Equal(t, []string{"quickjs"}, h.state.Selected())

	// Temporary artifacts are gone and the journal is closed.
	url, _ := engine.DownloadURL(context.Background(), "2024-01-13")
	download := h.orch.downloader.TempPath(url, url)
	assert.True(t, strings.HasSuffix(download, ".tar.gz"))
	assert.NoFileExists(t, download)
	assert.NoDirExists(t, download+"-extracted")
	pending, err := h.journal.Pending("quickjs")
	require.NoError(t, err)
	assert.Nil(t, pending)

	assert.FileExists(t, filepath.Join(h.engines, "quickjs", "bin", "qjs"))
}

func TestInstall_UpToDateIsNoop(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)

	_, err := h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)
	hits := srv.hits.Load()

	res, err := h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, hits, srv.hits.Load(), "no download for an up-to-date slot")
	assert.Equal(t, []string{"quickjs", "quickjs-run-test262"}, res.BinEntries)
}

func TestInstall_SlotIsolation(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)

	_, err := h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)
	res, err := h.orch.Install(context.Background(), engine, "2023-12-09")
	require.NoError(t, err)

	assert.Equal(t, "quickjs@2023-12-09", res.Slot)
	assert.Equal(t, []string{"quickjs@2023-12-09", "quickjs-run-test262@2023-12-09"}, res.BinEntries)

	latest, ok := h.state.Record("quickjs")
	require.True(t, ok)
	pinned, ok := h.state.Record("quickjs@2023-12-09")
	require.True(t, ok)
	for _, entry := range pinned.BinEntries {
		assert.NotContains(t, latest.BinEntries, entry)
	}
	assert.Len(t, h.binEntries(t), 4)
	// Pinned installs do not join the bulk-update selection twice.
	assert.Equal(t, []string{"quickjs"}, h.state.Selected())
	assert.DirExists(t, filepath.Join(h.engines, "quickjs@2023-12-09"))
}

func TestInstall_SmokeTestGate(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)
	engine.latest = "bad"

	res, err := h.orch.Install(context.Background(), engine, Latest)
	require.Error(t, err)

	var smoke *SmokeTestError
	require.ErrorAs(t, err, &smoke)
	assert.Equal(t, "41", smoke.Got)
	assert.Equal(t, "42", smoke.Want)
	assert.Equal(t, StageFailed, res.Stage)
	assert.Equal(t, StageTesting, res.FailedAt)

	_, ok := h.state.Record("quickjs")
	assert.False(t, ok, "a failed test must not commit a record")
	assert.Empty(t, h.state.Selected())

	// The files stay on disk and the journal remembers them.
	assert.NotEmpty(t, h.binEntries(t))
	pending, err := h.journal.Pending("quickjs")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, transaction.StateFailed, pending.State)
	assert.ElementsMatch(t, []string{"quickjs", "quickjs-run-test262"}, pending.Entries)

	// The download and the extracted tree are cleaned up anyway.
	leftovers, err := os.ReadDir(h.tmpDir)
	if !os.IsNotExist(err) {
		require.NoError(t, err)
	}
	assert.Empty(t, leftovers, "temp dir after failed install")
}

func TestInstall_RepairsLeftoversOfFailedAttempt(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)

	engine.latest = "bad"
	engine.extra = "quickjs-extra"
	_, err := h.orch.Install(context.Background(), engine, Latest)
	require.Error(t, err)
	assert.Contains(t, h.binEntries(t), "quickjs-extra")

	engine.latest = "2024-01-13"
	engine.extra = ""
	_, err = h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)

	rec, _ := h.state.Record("quickjs")
	assert.ElementsMatch(t, rec.BinEntries, h.binEntries(t), "bin dir must match the committed record")
}

func TestInstall_FailedUpdateOfSameVersionIsReinstalled(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)
	ctx := context.Background()

	_, err := h.orch.Install(ctx, engine, Latest)
	require.NoError(t, err)

	// A failed update overwrites the slot's files but not its record.
	engine.latest = "bad"
	engine.extra = "quickjs-extra"
	_, err = h.orch.Install(ctx, engine, Latest)
	require.Error(t, err)
	assert.Contains(t, h.binEntries(t), "quickjs-extra")

	// Upstream reports the committed version again.
	engine.latest = "2024-01-13"
	engine.extra = ""
	res, err := h.orch.Install(ctx, engine, Latest)
	require.NoError(t, err)
	assert.False(t, res.UpToDate, "a pending transaction forces a reinstall")

	rec, ok := h.state.Record("quickjs")
	require.True(t, ok)
	assert.Equal(t, "2024-01-13", rec.Version)
	assert.ElementsMatch(t, rec.BinEntries, h.binEntries(t))

	out, err := exec.Command(filepath.Join(h.binDir, "quickjs")).Output()
	require.NoError(t, err)
	assert.Equal(t, "42", strings.TrimSpace(string(out)))

	pending, err := h.journal.Pending("quickjs")
	require.NoError(t, err)
	assert.Nil(t, pending)

	// With the journal closed, the next run is a no-op again.
	res, err = h.orch.Install(ctx, engine, Latest)
	require.NoError(t, err)
	assert.True(t, res.UpToDate)
}

func TestInstall_CommitDropsEntriesNoLongerProduced(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)

	engine.extra = "qjs"
	_, err := h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)
	assert.Contains(t, h.binEntries(t), "qjs")

	engine.latest = "2024-02-01"
	engine.extra = ""
	_, err = h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)

	rec, _ := h.state.Record("quickjs")
	assert.Equal(t, "2024-02-01", rec.Version)
	assert.ElementsMatch(t, []string{"quickjs", "quickjs-run-test262"}, h.binEntries(t))
}

func TestInstall_Failures(t *testing.T) {
	srv := newEngineServer(t)

	tests := []struct {
		name       string
		setup      func(e *fakeEngine)
		wantStage  Stage
		assertType func(t *testing.T, err error)
	}{
		{
			name:      "unsupported_platform",
			setup:     func(e *fakeEngine) { e.desc.Platforms = []string{"darwin-arm64"} },
			wantStage: StageResolvingVersion,
			assertType: func(t *testing.T, err error) {
				var target *UnsupportedPlatformError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:      "resolution_failure",
			setup:     func(e *fakeEngine) { e.failWith = errors.New("upstream down") },
			wantStage: StageResolvingVersion,
			assertType: func(t *testing.T, err error) {
				var target *VersionResolutionError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, Latest, target.Requested)
			},
		},
		{
			name:      "latest_not_resolved",
			setup:     func(e *fakeEngine) { e.latest = Latest },
			wantStage: StageResolvingVersion,
			assertType: func(t *testing.T, err error) {
				var target *VersionResolutionError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:      "download_404",
			setup:     func(e *fakeEngine) { e.baseURL = srv.URL + "/missing" },
			wantStage: StageDownloading,
			assertType: func(t *testing.T, err error) {
				var target *DownloadError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, http.StatusNotFound, target.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			engine := newFakeEngine(srv.URL)
			tt.setup(engine)

			res, err := h.orch.Install(context.Background(), engine, Latest)
			require.Error(t, err)
			tt.assertType(t, err)
			assert.Equal(t, StageFailed, res.Stage)
			assert.Equal(t, tt.wantStage, res.FailedAt)
			assert.Empty(t, h.state.Slots())
			assert.Empty(t, h.binEntries(t))
		})
	}
}

func TestUninstall_RoundTrip(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)

	_, err := h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)

	require.NoError(t, h.orch.Uninstall(context.Background(), engine, Latest))

	assert.NoFileExists(t, filepath.Join(h.binDir, "quickjs"))
	assert.NoFileExists(t, filepath.Join(h.binDir, "quickjs-run-test262"))
	assert.NoDirExists(t, filepath.Join(h.engines, "quickjs"))
	_, ok := h.state.Record("quickjs")
	assert.False(t, ok)
	assert.Empty(t, h.state.Selected())
}

func TestUninstall_PinnedKeepsLatest(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)
	engine.aliases["2023"] = "2023-12-09"

	_, err := h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)
	_, err = h.orch.Install(context.Background(), engine, "2023-12-09")
	require.NoError(t, err)

	// A different spelling of the pinned version resolves to the same slot.
	require.NoError(t, h.orch.Uninstall(context.Background(), engine, "2023"))

	_, ok := h.state.Record("quickjs@2023-12-09")
	assert.False(t, ok)
	_, ok = h.state.Record("quickjs")
	assert.True(t, ok)
	assert.Equal(t, []string{"quickjs"}, h.state.Selected())
	assert.ElementsMatch(t, []string{"quickjs", "quickjs-run-test262"}, h.binEntries(t))
}

func TestUninstall_NotInstalled(t *testing.T) {
	h := newHarness(t, nil)
	engine := newFakeEngine("http://unused.invalid")

	err := h.orch.Uninstall(context.Background(), engine, Latest)
	var target *NotInstalledError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "quickjs", target.Slot)
}

func TestUninstall_RepairsUncommittedSlot(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)
	engine.latest = "bad"

	_, err := h.orch.Install(context.Background(), engine, Latest)
	require.Error(t, err)
	require.NotEmpty(t, h.binEntries(t))

	err = h.orch.Uninstall(context.Background(), engine, Latest)
	var target *NotInstalledError
	require.ErrorAs(t, err, &target)
	assert.Empty(t, h.binEntries(t), "leftovers of the failed attempt are removed")
}

func TestUpdate(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, nil)
	engine := newFakeEngine(srv.URL)

	_, err := h.orch.Update(context.Background(), engine, Latest)
	var notInstalled *NotInstalledError
	require.ErrorAs(t, err, &notInstalled)

	_, err = h.orch.Install(context.Background(), engine, Latest)
	require.NoError(t, err)

	engine.latest = "2024-02-01"
	res, err := h.orch.Update(context.Background(), engine, Latest)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", res.Version)
	assert.False(t, res.UpToDate)
}

func TestUpdateAll_BestEffort(t *testing.T) {
	srv := newEngineServer(t)
	h := newHarness(t, state.New([]string{"broken", "ghost", "quickjs"}))

	good := newFakeEngine(srv.URL)
	broken := newFakeEngine(srv.URL)
	broken.desc = Descriptor{ID: "broken", Name: "Broken"}
	broken.failWith = errors.New("no metadata")

	catalog, err := NewCatalog(broken, good)
	require.NoError(t, err)

	results, err := h.orch.UpdateAll(context.Background(), catalog)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEngine)
	var resolution *VersionResolutionError
	assert.ErrorAs(t, err, &resolution)

	require.Len(t, results, 2)
	assert.Equal(t, StageFailed, results[0].Stage)
	assert.Equal(t, StageDone, results[1].Stage)
	_, ok := h.state.Record("quickjs")
	assert.True(t, ok, "a failing engine must not stop the batch")
}
