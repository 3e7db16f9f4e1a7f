// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/conjure-dev/conjure/internal/environment"
	"github.com/conjure-dev/conjure/internal/logging"
	"github.com/conjure-dev/conjure/pkg/platform"
	"github.com/conjure-dev/conjure/pkg/version"
)

const (
	// DefaultCacheTTL is how long a fetched release list is reused.
	DefaultCacheTTL = 5 * time.Minute

	checksumsAsset = "checksums.txt"

	// maxBinaryBytes bounds the extracted binary.
	maxBinaryBytes = 500 << 20
)

var (
	// ErrUnavailableVersion is returned by UpdateTo for a version that has
	// no published release.
	ErrUnavailableVersion = errors.New("version is not available")

	// ErrNoAsset is returned when a release lacks the archive for this platform.
	ErrNoAsset = errors.New("release has no asset")

	// ErrUnsupportedInstall is returned when the binary cannot be replaced in place.
	ErrUnsupportedInstall = errors.New("in-place update is not supported")

	// ErrBinaryTooLarge is returned when the archived binary exceeds the size limit.
	ErrBinaryTooLarge = errors.New("binary in archive is too large")
)

var _ environment.Updater = (*Service)(nil)

type (
	// ManagedInstallError is returned by UpdateTo when a package manager
	// owns the binary.
	ManagedInstallError struct {
		Method InstallMethod
		Path   string
	}

	// Service lists conjure releases and installs them over the running
	// binary.
	Service struct {
		client     *GitHubClient
		log        logging.Sink
		now        func() time.Time
		ttl        time.Duration
		executable func() (string, error)

		mu        sync.Mutex
		releases  []Release
		fetchedAt time.Time
	}

	// Option configures a Service.
	Option func(*Service)
)

func (e *ManagedInstallError) Error() string {
	return fmt.Sprintf("conjure at %s is managed by %s, upgrade it with: %s", e.Path, e.Method, e.Method.UpgradeHint())
}

func (e *ManagedInstallError) Unwrap() error { return ErrUnsupportedInstall }

// WithClient replaces the default GitHub client.
func WithClient(c *GitHubClient) Option {
	return func(s *Service) { s.client = c }
}

// WithLogger sets the sink for progress messages.
func WithLogger(l logging.Sink) Option {
	return func(s *Service) { s.log = l }
}

// WithNow replaces the clock used for cache expiry.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCacheTTL sets how long a release list is reused. Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

// WithExecutable sets the path of the binary UpdateTo replaces.
func WithExecutable(path string) Option {
	return func(s *Service) {
		s.executable = func() (string, error) { return path, nil }
	}
}

// NewService returns a Service over the default release repository.
func NewService(opts ...Option) *Service {
	s := &Service{
		now:        time.Now,
		ttl:        DefaultCacheTTL,
		executable: runningExecutable,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = NewGitHubClient()
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	return s
}

// Releases returns the cached release list, fetching it when stale.
func (s *Service) Releases(ctx context.Context) ([]Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.releases != nil && s.ttl > 0 && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.releases, nil
	}
	rels, err := s.client.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	s.releases, s.fetchedAt = rels, s.now()
	s.log.Log(logging.DebugLevel, "fetched releases", "count", len(rels))
	return rels, nil
}

// AvailableVersions implements environment.Updater. Tags that are not
// conjure versions are skipped.
func (s *Service) AvailableVersions(ctx context.Context) ([]version.Version, error) {
	rels, err := s.Releases(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]version.Version, 0, len(rels))
	for _, r := range rels {
		v, err := version.Parse(r.Tag)
		if err != nil {
			s.log.Log(logging.DebugLevel, "skipping release", "tag", r.Tag, "err", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// LastAvailableVersion implements environment.Updater. It returns the
// highest stable release on after's major line when that release is higher
// than comparedWith.
func (s *Service) LastAvailableVersion(ctx context.Context, after, comparedWith version.Version) (*version.Version, error) {
	versions, err := s.AvailableVersions(ctx)
	if err != nil {
		return nil, err
	}
	latest := version.LatestOnMajor(versions, after.Major, false)
	if latest == nil || !latest.IsVersionHigher(comparedWith) {
		return nil, nil
	}
	return latest, nil
}

// UpdateTo implements environment.Updater.
func (s *Service) UpdateTo(ctx context.Context, v version.Version) error {
	rels, err := s.Releases(ctx)
	if err != nil {
		return err
	}
	rel, ok := findRelease(rels, v)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnavailableVersion, v)
	}

	execPath, err := s.executable()
	if err != nil {
		return fmt.Errorf("locating running binary: %w", err)
	}
	method := DetectInstallMethod(execPath)
	if method.Managed() {
		return &ManagedInstallError{Method: method, Path: execPath}
	}
	if runtime.GOOS == platform.Windows {
		return fmt.Errorf("%w: the running binary is locked on windows", ErrUnsupportedInstall)
	}

	s.log.Log(logging.InfoLevel, "installing release", "version", v.String(), "path", execPath)
	return s.apply(ctx, rel, execPath)
}

// apply downloads rel's archive next to execPath, verifies it and renames
// the extracted binary over execPath.
func (s *Service) apply(ctx context.Context, rel Release, execPath string) error {
	archive := archiveName(rel.Tag)
	archiveAsset, ok := findAsset(rel.Assets, archive)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoAsset, archive)
	}
	sumsAsset, ok := findAsset(rel.Assets, checksumsAsset)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoAsset, checksumsAsset)
	}

	sums, err := s.fetchChecksums(ctx, sumsAsset.URL)
	if err != nil {
		return err
	}
	want, err := sums.Lookup(archive)
	if err != nil {
		return err
	}

	dir := filepath.Dir(execPath)
	archivePath, err := s.download(ctx, archiveAsset.URL, dir)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(archivePath) }()

	if err := VerifyFile(archivePath, want); err != nil {
		return err
	}

	binPath, err := extractBinary(archivePath, dir, maxBinaryBytes)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(binPath) }()

	info, err := os.Stat(execPath)
	if err != nil {
		return fmt.Errorf("reading current binary: %w", err)
	}
	if err := os.Chmod(binPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting binary mode: %w", err)
	}
	if err := os.Rename(binPath, execPath); err != nil {
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

func (s *Service) fetchChecksums(ctx context.Context, assetURL string) (Checksums, error) {
	body, err := s.client.Download(ctx, assetURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	return ParseChecksums(body)
}

func (s *Service) download(ctx context.Context, assetURL, dir string) (string, error) {
	body, err := s.client.Download(ctx, assetURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	return writeTemp(dir, "conjure-download-*", body)
}

// extractBinary copies the conjure binary out of a tar.gz archive. Entries
// are matched by base name so nested layouts work. A binary larger than
// limit bytes is rejected.
func extractBinary(archivePath, dir string, limit int64) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("reading archive: %w", err)
	}
	defer func() { _ = gz.Close() }()

	want := binaryName()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %s in %s", ErrNoAsset, want, filepath.Base(archivePath))
		}
		if err != nil {
			return "", fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && filepath.Base(hdr.Name) == want {
			if hdr.Size > limit {
				return "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrBinaryTooLarge, hdr.Name, hdr.Size, limit)
			}
			return writeTemp(dir, "conjure-upgrade-*", io.LimitReader(tr, limit))
		}
	}
}

func writeTemp(dir, pattern string, r io.Reader) (_ string, err error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if cerr := tmp.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	return tmp.Name(), nil
}

func findRelease(rels []Release, v version.Version) (Release, bool) {
	for _, r := range rels {
		if rv, err := version.Parse(r.Tag); err == nil && rv.SameRelease(v) {
			return r, true
		}
	}
	return Release{}, false
}

func findAsset(assets []Asset, name string) (Asset, bool) {
	for _, a := range assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// archiveName follows the GoReleaser layout: conjure_1.2.3_linux_amd64.tar.gz.
func archiveName(tag string) string {
	v := tag
	if len(v) > 0 && v[0] == 'v' {
		v = v[1:]
	}
	return fmt.Sprintf("conjure_%s_%s_%s.tar.gz", v, runtime.GOOS, runtime.GOARCH)
}

func binaryName() string {
	if runtime.GOOS == platform.Windows {
		return "conjure.exe"
	}
	return "conjure"
}

func runningExecutable() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(p)
}
