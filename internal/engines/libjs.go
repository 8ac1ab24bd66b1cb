package engines

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/esvm/internal/fsutil"
	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

const (
	libjsArtifact = "serenity-js"
	libjsWorkflow = "Run test262 with LibJS and push results to the website repo"
)

var errLatestOnly = errors.New("only 'latest' builds are published")

type libJS struct {
	env installer.Env
}

// NewLibJS returns the LibJS installer. Builds are CI artifacts of the
// SerenityOS repository and only the most recent one is downloadable.
func NewLibJS(env installer.Env) installer.Engine {
	return &libJS{env: env}
}

func (e *libJS) Descriptor() installer.Descriptor {
	return installer.Descriptor{
		ID:        "libjs",
		Name:      "LibJS",
		Platforms: []string{"linux-x64"},
	}
}

// ResolveVersion returns "<check suite id>/<artifact id>" for the newest
// successful build.
func (e *libJS) ResolveVersion(ctx context.Context, requested string) (string, error) {
	if e.env.Platform != "linux-x64" {
		return "", &installer.UnsupportedPlatformError{Engine: "LibJS", Platform: e.env.Platform, Version: requested}
	}
	if requested != installer.Latest {
		return "", &installer.VersionResolutionError{Engine: "LibJS", Requested: requested, Err: errLatestOnly}
	}

	var artifacts struct {
		Artifacts []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"artifacts"`
	}
	if err := e.env.Fetch.JSON(ctx, installer.GitHubAPI+"/repos/serenityos/serenity/actions/artifacts", &artifacts); err != nil {
		return "", err
	}
	var artifactID int64
	for _, a := range artifacts.Artifacts {
		if a.Name == libjsArtifact {
			artifactID = a.ID
			break
		}
	}
	if artifactID == 0 {
		return "", resolveErr("LibJS", requested, "no %s artifact found", libjsArtifact)
	}

	var runs struct {
		WorkflowRuns []struct {
			Name         string `json:"name"`
			CheckSuiteID int64  `json:"check_suite_id"`
		} `json:"workflow_runs"`
	}
	if err := e.env.Fetch.JSON(ctx, installer.GitHubAPI+"/repos/serenityos/serenity/actions/runs?event=push&branch=master&status=success", &runs); err != nil {
		return "", err
	}
	var suiteID int64
	for _, r := range runs.WorkflowRuns {
		if r.Name == libjsWorkflow && r.CheckSuiteID > suiteID {
			suiteID = r.CheckSuiteID
		}
	}
	if suiteID == 0 {
		return "", resolveErr("LibJS", requested, "no recent %s build run", libjsArtifact)
	}
	return fmt.Sprintf("%d/%d", suiteID, artifactID), nil
}

func (e *libJS) DownloadURL(ctx context.Context, version string) (string, error) {
	suite, artifact, ok := strings.Cut(version, "/")
	if !ok || suite == "" || artifact == "" {
		return "", resolveErr("LibJS", version, "malformed build id")
	}
	return fmt.Sprintf("https://nightly.link/serenityos/serenity/suites/%s/artifacts/%s", suite, artifact), nil
}

// Extract unpacks the artifact zip next to ExtractPath, then the tarball it
// wraps into ExtractPath.
func (e *libJS) Extract(ctx context.Context, ws *installer.Workspace) error {
	outer := ws.ExtractPath + "-zip"
	defer fsutil.RemoveAll(outer)
	if err := fsutil.Unzip(ws.DownloadPath, outer); err != nil {
		return err
	}
	return fsutil.Untar(filepath.Join(outer, libjsArtifact+".tar.gz"), ws.ExtractPath)
}

func (e *libJS) Install(ctx context.Context, ws *installer.Workspace) error {
	if err := ws.RegisterAssets("serenity-js/lib/*.so*"); err != nil {
		return err
	}
	js, err := ws.RegisterAsset("serenity-js/bin/js")
	if err != nil {
		return err
	}
	_, err = ws.RegisterScript("serenity-js", quote(js))
	return err
}

func (e *libJS) Test(ctx context.Context, ws *installer.Workspace) error {
	return ws.ExpectOutput(ctx, ws.Entry("serenity-js"), []string{"-c", `console.log("42")`}, "", "42")
}
