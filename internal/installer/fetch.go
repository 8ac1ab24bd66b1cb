package installer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "esvm/1.0"

	maxMetadataSize = 32 << 20
)

// GitHubAPI is the base URL of the GitHub REST API.
var GitHubAPI = "https://api.github.com"

// Fetcher retrieves small upstream metadata documents.
type Fetcher interface {
	JSON(ctx context.Context, url string, v any) error
	Text(ctx context.Context, url string) (string, error)
}

// StatusError is a metadata request answered with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status code: %d", e.URL, e.StatusCode)
}

// RateLimitError is returned when the GitHub API refuses a request because
// the rate limit is exhausted.
type RateLimitError struct {
	URL   string
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("GET %s: GitHub API rate limit exceeded", e.URL)
	if !e.Reset.IsZero() {
		msg += fmt.Sprintf(" (resets at %s)", e.Reset.Local().Format(time.Kitchen))
	}
	return msg + "; set GITHUB_TOKEN to raise the limit"
}

// HTTPFetcher is the Fetcher used outside of tests.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	githubToken string
}

// NewHTTPFetcher returns a fetcher. githubToken may be empty.
func NewHTTPFetcher(githubToken string) *HTTPFetcher {
	return &HTTPFetcher{
		client:      &http.Client{Timeout: time.Minute},
		userAgent:   DefaultUserAgent,
		githubToken: githubToken,
	}
}

// JSON fetches url and decodes the body into v.
func (f *HTTPFetcher) JSON(ctx context.Context, url string, v any) error {
	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Text fetches url and returns the body.
func (f *HTTPFetcher) Text(ctx context.Context, url string) (string, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// get performs the request, retrying once on network errors and 5xx.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retry, err := f.getOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) getOnce(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if f.githubToken != "" && isGitHubAPI(req.URL) {
		req.Header.Set("Authorization", "Bearer "+f.githubToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if rl := rateLimited(resp); rl != nil {
		rl.URL = rawURL
		return nil, false, rl
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataSize))
	if err != nil {
		return nil, true, fmt.Errorf("read response body: %w", err)
	}
	return body, false, nil
}

func isGitHubAPI(u *url.URL) bool {
	base, err := url.Parse(GitHubAPI)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, base.Host)
}

func rateLimited(resp *http.Response) *RateLimitError {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" {
		return nil
	}
	rl := &RateLimitError{}
	if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		rl.Reset = time.Unix(reset, 0)
	}
	return rl
}

// GitHubRelease is the subset of the GitHub release object esvm reads.
type GitHubRelease struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
}

// LatestGitHubTag returns the tag of the release GitHub marks as latest.
func LatestGitHubTag(ctx context.Context, f Fetcher, repo string) (string, error) {
	var rel GitHubRelease
	if err := f.JSON(ctx, GitHubAPI+"/repos/"+repo+"/releases/latest", &rel); err != nil {
		return "", err
	}
	if rel.TagName == "" {
		return "", fmt.Errorf("%s: latest release has no tag", repo)
	}
	return rel.TagName, nil
}

// GitHubReleases lists the most recent releases of repo, newest first.
func GitHubReleases(ctx context.Context, f Fetcher, repo string) ([]GitHubRelease, error) {
	var releases []GitHubRelease
	if err := f.JSON(ctx, GitHubAPI+"/repos/"+repo+"/releases", &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// FirstStableRelease returns the newest release that is neither a draft nor
// a prerelease.
func FirstStableRelease(releases []GitHubRelease) (GitHubRelease, error) {
	for _, r := range releases {
		if !r.Prerelease && !r.Draft && r.TagName != "" {
			return r, nil
		}
	}
	return GitHubRelease{}, errors.New("no stable release found")
}
