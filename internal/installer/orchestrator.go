package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZebulonRouseFrantzich/esvm/internal/fsutil"
	"github.com/ZebulonRouseFrantzich/esvm/internal/state"
	"github.com/ZebulonRouseFrantzich/esvm/internal/transaction"
)

// Stage is a state of the install state machine.
type Stage int

const (
	StageResolvingVersion Stage = iota
	StageCheckingUpToDate
	StageDownloading
	StageExtracting
	StageInstalling
	StageTesting
	StageCommitting
	StageCleaningUp
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageResolvingVersion: "ResolvingVersion",
	StageCheckingUpToDate: "CheckingUpToDate",
	StageDownloading:      "Downloading",
	StageExtracting:       "Extracting",
	StageInstalling:       "Installing",
	StageTesting:          "Testing",
	StageCommitting:       "Committing",
	StageCleaningUp:       "CleaningUp",
	StageDone:             "Done",
	StageFailed:           "Failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Result describes how an install ended.
type Result struct {
	Slot    string
	Version string
	// Stage is StageDone or StageFailed.
	Stage Stage
	// FailedAt is the stage that failed when Stage is StageFailed.
	FailedAt   Stage
	UpToDate   bool
	BinEntries []string
}

// Config holds the collaborators of an Orchestrator.
type Config struct {
	State      *state.State
	Platform   string
	BinDir     string
	EnginesDir string
	Downloader *Downloader
	Journal    *transaction.Journal
	Reporter   Reporter
	Logger     Logger
}

// Orchestrator drives engines through install, update and uninstall.
// Operations run strictly one at a time.
type Orchestrator struct {
	state      *state.State
	platform   string
	binDir     string
	enginesDir string
	downloader *Downloader
	journal    *transaction.Journal
	reporter   Reporter
	log        Logger
}

// NewOrchestrator validates cfg and returns an orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.State == nil {
		return nil, fmt.Errorf("State is required")
	}
	if cfg.Platform == "" {
		return nil, fmt.Errorf("Platform is required")
	}
	if cfg.BinDir == "" || cfg.EnginesDir == "" {
		return nil, fmt.Errorf("BinDir and EnginesDir are required")
	}
	if cfg.Downloader == nil {
		return nil, fmt.Errorf("Downloader is required")
	}
	if cfg.Journal == nil {
		return nil, fmt.Errorf("Journal is required")
	}

	o := &Orchestrator{
		state:      cfg.State,
		platform:   cfg.Platform,
		binDir:     cfg.BinDir,
		enginesDir: cfg.EnginesDir,
		downloader: cfg.Downloader,
		journal:    cfg.Journal,
		reporter:   cfg.Reporter,
		log:        cfg.Logger,
	}
	if o.reporter == nil {
		o.reporter = NopReporter{}
	}
	if o.log == nil {
		o.log = noopLogger{}
	}
	return o, nil
}

// InstallDir returns the permanent install directory of slot.
func (o *Orchestrator) InstallDir(slot string) string {
	return filepath.Join(o.enginesDir, slot)
}

// run carries one install attempt through the state machine.
type run struct {
	o      *Orchestrator
	engine Engine
	desc   Descriptor
	status Status
	res    Result
	ws     *Workspace
}

func (r *run) enter(stage Stage) {
	r.res.Stage = stage
	r.o.log.Debug("stage", "engine", r.desc.ID, "slot", r.res.Slot, "stage", stage.String())
}

func (r *run) fail(err error) (Result, error) {
	r.res.FailedAt = r.res.Stage
	r.res.Stage = StageFailed
	r.o.log.Error("install failed", "engine", r.desc.ID, "slot", r.res.Slot, "stage", r.res.FailedAt.String(), "error", err)
	// An interrupt abandons its temporary files.
	if r.ws != nil && !errors.Is(err, context.Canceled) {
		r.o.cleanup(r.ws)
	}
	r.status.Fail(err.Error())
	return r.res, err
}

// Install installs requested ("latest" or a concrete version) of engine.
func (o *Orchestrator) Install(ctx context.Context, engine Engine, requested string) (Result, error) {
	if requested == "" {
		requested = Latest
	}
	desc := engine.Descriptor()
	r := &run{o: o, engine: engine, desc: desc, status: o.reporter.Engine(desc.Name)}
	pinned := IsPinned(requested)

	if len(desc.Requirements) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "%s has external requirements which may need to be installed separately:", desc.Name)
		for _, req := range desc.Requirements {
			fmt.Fprintf(&b, "\n  %s - %s", req.Name, req.URL)
		}
		r.status.Warn(b.String())
	}

	// ResolvingVersion
	r.enter(StageResolvingVersion)
	r.res.Slot = SlotKey(desc.ID, requested)
	if !desc.Supports(o.platform) {
		return r.fail(&UnsupportedPlatformError{Engine: desc.Name, Platform: o.platform})
	}
	r.status.Info("Checking version...")
	version, err := engine.ResolveVersion(ctx, requested)
	if err != nil {
		return r.fail(asResolutionError(desc, requested, err))
	}
	if !IsPinned(version) {
		return r.fail(&VersionResolutionError{Engine: desc.Name, Requested: requested, Err: errors.New("no concrete version returned")})
	}
	r.res.Version = version
	if pinned {
		r.res.Slot = SlotKey(desc.ID, version)
	}

	// CheckingUpToDate
	r.enter(StageCheckingUpToDate)
	// A pending transaction means the files on disk no longer match the
	// record, so the slot is reinstalled even at the same version.
	pendingTxn, err := o.journal.Pending(r.res.Slot)
	if err != nil {
		o.log.Warn("read transaction", "slot", r.res.Slot, "error", err)
	}
	if rec, ok := o.state.Record(r.res.Slot); ok && rec.Version == version && pendingTxn == nil && err == nil {
		r.res.UpToDate = true
		r.res.BinEntries = rec.BinEntries
		r.enter(StageDone)
		r.status.Succeed(fmt.Sprintf("Version %s installed", version))
		return r.res, nil
	}

	// Downloading
	r.enter(StageDownloading)
	r.status.Info("Installing version " + version)
	url, err := engine.DownloadURL(ctx, version)
	if err != nil {
		return r.fail(err)
	}
	r.status.Info("Downloading " + url)
	downloadPath, err := o.downloader.Download(ctx, url, r.status)
	if err != nil {
		return r.fail(err)
	}

	ws := &Workspace{
		Engine:       desc.Name,
		Slot:         r.res.Slot,
		Version:      version,
		Pinned:       pinned,
		Platform:     o.platform,
		DownloadPath: downloadPath,
		ExtractPath:  downloadPath + "-extracted",
		InstallPath:  o.InstallDir(r.res.Slot),
		BinDir:       o.binDir,
		status:       r.status,
	}
	r.ws = ws

	// Extracting
	r.enter(StageExtracting)
	r.status.Info("Extracting from " + ws.DownloadPath)
	if err := fsutil.EnsureDir(ws.InstallPath); err != nil {
		return r.fail(err)
	}
	if err := fsutil.EnsureDir(ws.BinDir); err != nil {
		return r.fail(err)
	}
	if err := engine.Extract(ctx, ws); err != nil {
		return r.fail(asExtractionError(desc, ws, err))
	}

	// Installing
	r.enter(StageInstalling)
	r.status.Info("Installing from " + ws.ExtractPath)
	committed, _ := o.state.Record(r.res.Slot)
	if err := o.repair(r.res.Slot, committed.BinEntries); err != nil {
		return r.fail(err)
	}
	txn, err := o.journal.Begin(r.res.Slot, version)
	if err != nil {
		return r.fail(fmt.Errorf("begin transaction: %w", err))
	}
	ws.track = func(entry string) error { return o.journal.Record(txn, entry) }
	if err := engine.Install(ctx, ws); err != nil {
		_ = o.journal.Fail(txn, err)
		return r.fail(err)
	}
	r.res.BinEntries = ws.BinEntries()

	// Testing
	r.enter(StageTesting)
	r.status.Info("Testing engine")
	if err := engine.Test(ctx, ws); err != nil {
		_ = o.journal.Fail(txn, err)
		return r.fail(asSmokeTestError(desc, err))
	}

	// Committing
	r.enter(StageCommitting)
	for _, stale := range committed.BinEntries {
		if slices.Contains(r.res.BinEntries, stale) {
			continue
		}
		if err := fsutil.Remove(filepath.Join(o.binDir, stale)); err != nil {
			o.log.Warn("remove stale entry", "slot", r.res.Slot, "entry", stale, "error", err)
		}
	}
	o.state.Put(r.res.Slot, state.Record{Version: version, BinEntries: r.res.BinEntries})
	if !pinned {
		o.state.Select(desc.ID)
	}
	if err := o.journal.Complete(r.res.Slot); err != nil {
		o.log.Warn("complete transaction", "slot", r.res.Slot, "error", err)
	}

	// CleaningUp
	r.enter(StageCleaningUp)
	o.cleanup(ws)

	r.enter(StageDone)
	r.status.Succeed(fmt.Sprintf("Version %s installed with bin entries: %s", version, strings.Join(r.res.BinEntries, ", ")))
	o.log.Info("installed", "slot", r.res.Slot, "version", version)
	return r.res, nil
}

// Update reinstalls the slot for requested if a newer version exists. The
// slot must already be installed.
func (o *Orchestrator) Update(ctx context.Context, engine Engine, requested string) (Result, error) {
	desc := engine.Descriptor()
	slot, _, ok := o.findSlot(ctx, engine, requested)
	if !ok {
		err := &NotInstalledError{Slot: slot}
		o.reporter.Engine(desc.Name).Fail(err.Error())
		return Result{Slot: slot, Stage: StageFailed, FailedAt: StageCheckingUpToDate}, err
	}
	return o.Install(ctx, engine, requested)
}

// UpdateAll installs the latest version of every selected engine, in
// selection order. A failing engine does not stop the batch; all failures
// are returned joined.
func (o *Orchestrator) UpdateAll(ctx context.Context, catalog *Catalog) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for _, id := range o.state.Selected() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		engine, ok := catalog.Lookup(id)
		if !ok {
			err := fmt.Errorf("%w: %s", ErrUnknownEngine, id)
			o.reporter.Engine(id).Fail(err.Error())
			errs = append(errs, err)
			continue
		}
		res, err := o.Install(ctx, engine, Latest)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return results, errors.Join(errs...)
}

// Uninstall removes the slot for requested: its bin entries, its install
// directory and its record.
func (o *Orchestrator) Uninstall(ctx context.Context, engine Engine, requested string) error {
	desc := engine.Descriptor()
	status := o.reporter.Engine(desc.Name)

	slot, rec, ok := o.findSlot(ctx, engine, requested)
	if !ok {
		// An interrupted first install may have left entries without a record.
		if err := o.repair(slot, nil); err != nil {
			o.log.Warn("repair slot", "slot", slot, "error", err)
		}
		err := &NotInstalledError{Slot: slot}
		status.Fail(err.Error())
		return err
	}

	var errs []error
	for _, entry := range rec.BinEntries {
		if err := fsutil.Remove(filepath.Join(o.binDir, entry)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := fsutil.RemoveAll(o.InstallDir(slot)); err != nil {
		errs = append(errs, err)
	}
	if err := o.repair(slot, nil); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		status.Fail(err.Error())
		return fmt.Errorf("uninstall %s: %w", slot, err)
	}

	if !IsPinned(requested) {
		o.state.Deselect(desc.ID)
	}
	o.state.Delete(slot)
	o.log.Info("uninstalled", "slot", slot, "version", rec.Version)
	status.Succeed("Removed " + slot)
	return nil
}

// findSlot maps requested to an installed slot. A pinned version that is
// not installed under the given spelling is resolved and looked up again,
// so "12.1" finds a slot installed as "12.1.285".
func (o *Orchestrator) findSlot(ctx context.Context, engine Engine, requested string) (string, state.Record, bool) {
	id := engine.Descriptor().ID
	slot := SlotKey(id, requested)
	if rec, ok := o.state.Record(slot); ok || !IsPinned(requested) {
		return slot, rec, ok
	}

	resolved, err := engine.ResolveVersion(ctx, requested)
	if err != nil || !IsPinned(resolved) {
		return slot, state.Record{}, false
	}
	resolvedSlot := SlotKey(id, resolved)
	rec, ok := o.state.Record(resolvedSlot)
	if !ok {
		return slot, state.Record{}, false
	}
	return resolvedSlot, rec, true
}

// repair removes bin entries an unfinished attempt on slot created that
// are not owned by the committed record, then closes the journal.
func (o *Orchestrator) repair(slot string, keep []string) error {
	pending, err := o.journal.Pending(slot)
	if err != nil {
		return fmt.Errorf("read transaction: %w", err)
	}
	if pending == nil {
		return nil
	}
	for _, entry := range pending.Entries {
		if slices.Contains(keep, entry) {
			continue
		}
		o.log.Info("removing leftover entry", "slot", slot, "entry", entry, "txn", pending.ID)
		if err := fsutil.Remove(filepath.Join(o.binDir, entry)); err != nil {
			return err
		}
	}
	return o.journal.Complete(slot)
}

func (o *Orchestrator) cleanup(ws *Workspace) {
	for _, p := range []string{ws.DownloadPath, ws.ExtractPath} {
		if err := fsutil.RemoveAll(p); err != nil {
			o.log.Warn("cleanup", "path", p, "error", err)
		}
	}
}

func asResolutionError(desc Descriptor, requested string, err error) error {
	var vr *VersionResolutionError
	var up *UnsupportedPlatformError
	if errors.As(err, &vr) || errors.As(err, &up) || errors.Is(err, context.Canceled) {
		return err
	}
	return &VersionResolutionError{Engine: desc.Name, Requested: requested, Err: err}
}

func asExtractionError(desc Descriptor, ws *Workspace, err error) error {
	var ee *ExtractionError
	if errors.As(err, &ee) || errors.Is(err, context.Canceled) {
		return err
	}
	return &ExtractionError{Engine: desc.Name, Path: ws.DownloadPath, Err: err}
}

func asSmokeTestError(desc Descriptor, err error) error {
	var st *SmokeTestError
	if errors.As(err, &st) || errors.Is(err, context.Canceled) {
		return err
	}
	return &SmokeTestError{Engine: desc.Name, Err: err}
}
