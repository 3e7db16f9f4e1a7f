// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// DefaultOwner and DefaultRepo locate the release repository.
	DefaultOwner = "conjure-dev"
	DefaultRepo  = "conjure"

	defaultBaseURL = "https://api.github.com"
	perPage        = 50
	maxPages       = 4

	// maxJSONBytes bounds a single API response body.
	maxJSONBytes = 10 << 20
)

// ErrUnexpectedStatus is wrapped by API calls that got a non-200 reply.
var ErrUnexpectedStatus = errors.New("unexpected GitHub API status")

type (
	// RateLimitError is returned when the API quota is exhausted.
	RateLimitError struct {
		Limit   int
		ResetAt time.Time
	}

	// Release is a published, non-draft GitHub release.
	Release struct {
		Tag        string
		Name       string
		Prerelease bool
		Assets     []Asset
	}

	// Asset is one downloadable file of a release.
	Asset struct {
		Name string
		URL  string
		Size int64
	}

	wireRelease struct {
		TagName    string      `json:"tag_name"`
		Name       string      `json:"name"`
		Prerelease bool        `json:"prerelease"`
		Draft      bool        `json:"draft"`
		Assets     []wireAsset `json:"assets"`
	}

	wireAsset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	}

	// GitHubClient talks to the GitHub Releases API of one repository.
	GitHubClient struct {
		http      *http.Client
		baseURL   string
		owner     string
		repo      string
		token     string
		userAgent string
	}

	// ClientOption configures a GitHubClient.
	ClientOption func(*GitHubClient)
)

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit of %d requests exceeded, resets at %s",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *GitHubClient) { g.http = c }
}

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(base string) ClientOption {
	return func(g *GitHubClient) { g.baseURL = strings.TrimRight(base, "/") }
}

// WithToken authenticates API requests with a personal access token.
func WithToken(token string) ClientOption {
	return func(g *GitHubClient) { g.token = token }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(g *GitHubClient) { g.userAgent = ua }
}

// WithRepo selects the release repository.
func WithRepo(owner, repo string) ClientOption {
	return func(g *GitHubClient) {
		if owner != "" {
			g.owner = owner
		}
		if repo != "" {
			g.repo = repo
		}
	}
}

// NewGitHubClient returns a client for DefaultOwner/DefaultRepo on
// api.github.com.
func NewGitHubClient(opts ...ClientOption) *GitHubClient {
	g := &GitHubClient{
		http:      http.DefaultClient,
		baseURL:   defaultBaseURL,
		owner:     DefaultOwner,
		repo:      DefaultRepo,
		userAgent: "conjure/dev",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ListReleases returns every non-draft release, stable and pre-release,
// newest first. At most maxPages pages are followed.
func (g *GitHubClient) ListReleases(ctx context.Context) ([]Release, error) {
	next := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", g.baseURL, g.owner, g.repo, perPage)

	var out []Release
	for page := 0; page < maxPages && next != ""; page++ {
		batch, link, err := g.listPage(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("listing releases: %w", err)
		}
		out = append(out, batch...)
		next = nextPageURL(link)
	}

	slices.SortStableFunc(out, func(a, b Release) int {
		return semver.Compare(b.Tag, a.Tag)
	})
	return out, nil
}

func (g *GitHubClient) listPage(ctx context.Context, pageURL string) ([]Release, string, error) {
	resp, err := g.get(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := rateLimited(resp); err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var raw []wireRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBytes)).Decode(&raw); err != nil {
		return nil, "", fmt.Errorf("decoding releases: %w", err)
	}

	releases := make([]Release, 0, len(raw))
	for _, r := range raw {
		if r.Draft {
			continue
		}
		rel := Release{Tag: r.TagName, Name: r.Name, Prerelease: r.Prerelease}
		for _, a := range r.Assets {
			rel.Assets = append(rel.Assets, Asset{Name: a.Name, URL: a.BrowserDownloadURL, Size: a.Size})
		}
		releases = append(releases, rel)
	}
	return releases, resp.Header.Get("Link"), nil
}

// Download streams the asset at assetURL. The caller closes the body.
func (g *GitHubClient) Download(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	resp, err := g.get(ctx, assetURL)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", redact(assetURL), err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: %w: %d", redact(assetURL), ErrUnexpectedStatus, resp.StatusCode)
	}
	return resp.Body, nil
}

func (g *GitHubClient) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", g.userAgent)
	// Never send the token to a download host outside GitHub.
	if g.token != "" && g.trusted(req.URL) {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	return g.http.Do(req)
}

func (g *GitHubClient) trusted(u *url.URL) bool {
	base, err := url.Parse(g.baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(u.Host, "github.com")
}

// rateLimited reports an exhausted quota from the X-RateLimit headers.
func rateLimited(resp *http.Response) error {
	rem, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // missing or malformed header means no limit info
	}
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // best effort
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // best effort
	return &RateLimitError{Limit: limit, ResetAt: time.Unix(reset, 0)}
}

// nextPageURL extracts the rel="next" target of a Link header.
func nextPageURL(link string) string {
	for part := range strings.SplitSeq(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start, end := strings.Index(part, "<"), strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery, u.Fragment = "", ""
	return u.String()
}
