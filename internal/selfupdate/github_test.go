// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func serveJSON(t *testing.T, v any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListReleases_SkipsDraftsAndSorts(t *testing.T) {
	t.Parallel()

	srv := serveJSON(t, []wireRelease{
		{TagName: "v1.2.0"},
		{TagName: "v1.3.0-beta", Prerelease: true},
		{TagName: "v2.0.0", Draft: true},
		{TagName: "v1.10.0", Assets: []wireAsset{{Name: "checksums.txt", BrowserDownloadURL: "https://x/checksums.txt", Size: 12}}},
	})

	got, err := NewGitHubClient(WithBaseURL(srv.URL)).ListReleases(context.Background())
	if err != nil {
		t.Fatalf("ListReleases() error = %v", err)
	}

	want := []string{"v1.10.0", "v1.3.0-beta", "v1.2.0"}
	if len(got) != len(want) {
		t.Fatalf("got %d releases, want %d", len(got), len(want))
	}
	for i, tag := range want {
		if got[i].Tag != tag {
			t.Errorf("release[%d] = %q, want %q", i, got[i].Tag, tag)
		}
	}
	if !got[1].Prerelease {
		t.Error("beta release lost its prerelease flag")
	}
	if len(got[0].Assets) != 1 || got[0].Assets[0].URL != "https://x/checksums.txt" {
		t.Errorf("assets = %+v", got[0].Assets)
	}
}

func TestListReleases_FollowsLinkHeader(t *testing.T) {
	t.Parallel()

	var base string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode([]wireRelease{{TagName: "v1.0.0"}})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/releases?page=2>; rel="next", <%s/x>; rel="last"`, base, base))
		_ = json.NewEncoder(w).Encode([]wireRelease{{TagName: "v2.0.0"}})
	}))
	t.Cleanup(srv.Close)
	base = srv.URL

	got, err := NewGitHubClient(WithBaseURL(srv.URL), WithRepo("o", "r")).ListReleases(context.Background())
	if err != nil {
		t.Fatalf("ListReleases() error = %v", err)
	}
	if len(got) != 2 || got[0].Tag != "v2.0.0" || got[1].Tag != "v1.0.0" {
		t.Errorf("releases = %+v", got)
	}
}

func TestListReleases_Errors(t *testing.T) {
	t.Parallel()

	reset := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "rate limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
				w.WriteHeader(http.StatusForbidden)
			},
			check: func(t *testing.T, err error) {
				t.Helper()
				var rl *RateLimitError
				if !errors.As(err, &rl) {
					t.Fatalf("error = %v, want *RateLimitError", err)
				}
				if rl.Limit != 60 || !rl.ResetAt.Equal(reset) {
					t.Errorf("RateLimitError = %+v", rl)
				}
			},
		},
		{
			name: "forbidden with quota left",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("X-RateLimit-Remaining", "10")
				w.WriteHeader(http.StatusForbidden)
			},
			check: func(t *testing.T, err error) {
				t.Helper()
				if !errors.Is(err, ErrUnexpectedStatus) {
					t.Errorf("error = %v, want ErrUnexpectedStatus", err)
				}
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "{not json")
			},
			check: func(t *testing.T, err error) {
				t.Helper()
				if err == nil {
					t.Error("expected decode error")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			t.Cleanup(srv.Close)

			_, err := NewGitHubClient(WithBaseURL(srv.URL)).ListReleases(context.Background())
			tt.check(t, err)
		})
	}
}

func TestListReleases_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv := serveJSON(t, []wireRelease{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGitHubClient(WithBaseURL(srv.URL)).ListReleases(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRequestHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = io.WriteString(w, "[]")
	}))
	t.Cleanup(srv.Close)

	c := NewGitHubClient(WithBaseURL(srv.URL), WithToken("secret"), WithUserAgent("conjure/1.2.3"))
	if _, err := c.ListReleases(context.Background()); err != nil {
		t.Fatalf("ListReleases() error = %v", err)
	}

	if got.Get("Authorization") != "Bearer secret" {
		t.Errorf("Authorization = %q", got.Get("Authorization"))
	}
	if got.Get("User-Agent") != "conjure/1.2.3" {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
	if got.Get("Accept") != "application/vnd.github+json" {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
}

func TestTrustedHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base string
		url  string
		want bool
	}{
		{"https://api.github.com", "https://api.github.com/repos/x", true},
		{"https://api.github.com", "https://github.com/x/releases/download/a", true},
		{"https://api.github.com", "https://objects.githubusercontent.com/a", false},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080/asset", true},
		{"http://127.0.0.1:8080", "https://github.com/asset", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if got := NewGitHubClient(WithBaseURL(tt.base)).trusted(u); got != tt.want {
				t.Errorf("trusted(%s) with base %s = %v, want %v", tt.url, tt.base, got, tt.want)
			}
		})
	}
}

func TestDownload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/asset" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "payload")
	}))
	t.Cleanup(srv.Close)
	c := NewGitHubClient(WithBaseURL(srv.URL))

	body, err := c.Download(context.Background(), srv.URL+"/asset")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, _ := io.ReadAll(body)
	_ = body.Close()
	if string(data) != "payload" {
		t.Errorf("body = %q", data)
	}

	_, err = c.Download(context.Background(), srv.URL+"/missing?token=abc")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("error = %v, want ErrUnexpectedStatus", err)
	}
	if got := err.Error(); strings.Contains(got, "token=abc") {
		t.Errorf("error leaks query: %q", got)
	}
}

func TestNextPageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{`<https://a/p2>; rel="next"`, "https://a/p2"},
		{`<https://a/p1>; rel="prev", <https://a/p3>; rel="next"`, "https://a/p3"},
		{`<https://a/p9>; rel="last"`, ""},
		{`broken; rel="next"`, ""},
	}
	for _, tt := range tests {
		if got := nextPageURL(tt.header); got != tt.want {
			t.Errorf("nextPageURL(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
