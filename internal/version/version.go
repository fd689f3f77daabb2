// Package version reports what was built and whether a newer release exists.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Set with -ldflags on release builds. Unset values fall back to the
// module's embedded build info.
//
//nolint:gochecknoglobals // linker-set build metadata
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

const (
	// DefaultReleaseURL is the GitHub API root.
	DefaultReleaseURL = "https://api.github.com"
	// Repository is the owner/name releases are published under.
	Repository = "mrz1836/nopewallet"

	devVersion       = "dev"
	maxReleaseBody   = 64 << 10
	shortCommitChars = 7
)

// Info describes the running build.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
	Dirty   bool   `json:"dirty,omitempty"`
	Go      string `json:"go"`
}

// Current returns the running build's version info.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date, Dirty: versioninfo.DirtyBuild, Go: runtime.Version()}
	if info.Version == "" {
		info.Version = moduleVersion()
	}
	if info.Commit == "" && versioninfo.Revision != "unknown" {
		info.Commit = versioninfo.Revision
	}
	if info.Date == "" && !versioninfo.LastCommit.IsZero() {
		info.Date = versioninfo.LastCommit.UTC().Format(time.RFC3339)
	}
	return info
}

func moduleVersion() string {
	v := versioninfo.Version
	if v == "" || v == "unknown" || v == "(devel)" {
		return devVersion
	}
	return v
}

// String renders the one-line form shown by "nope version".
func (i Info) String() string {
	var extra []string
	if i.Commit != "" {
		c := i.Commit
		if len(c) > shortCommitChars {
			c = c[:shortCommitChars]
		}
		if i.Dirty {
			c += "-dirty"
		}
		extra = append(extra, c)
	}
	if i.Date != "" {
		extra = append(extra, i.Date)
	}
	extra = append(extra, i.Go)
	return fmt.Sprintf("nope %s (%s)", i.Version, strings.Join(extra, ", "))
}

// ReleaseClient asks GitHub for the latest published release.
type ReleaseClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewReleaseClient creates a client. An empty baseURL uses DefaultReleaseURL.
func NewReleaseClient(baseURL string, httpClient *http.Client) *ReleaseClient {
	if baseURL == "" {
		baseURL = DefaultReleaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ReleaseClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Latest returns the tag of the newest release.
func (c *ReleaseClient) Latest(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, Repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", fmt.Sprintf("nope/%s (%s/%s)", Current().Version, runtime.GOOS, runtime.GOARCH))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", chain.TransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReleaseBody))
	if err != nil {
		return "", chain.TransportError(err)
	}
	if err := chain.StatusError(resp.StatusCode, body); err != nil {
		return "", err
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.Unmarshal(body, &release); err != nil {
		return "", walleterr.WithCause(walleterr.ErrNetworkError, fmt.Errorf("decoding release: %w", err))
	}
	if release.TagName == "" {
		return "", walleterr.WithCause(walleterr.ErrNetworkError, &chain.RemoteError{Message: "release has no tag"})
	}
	return release.TagName, nil
}

// IsNewer reports whether latest is a higher release than current. A
// development build is older than any release.
func IsNewer(current, latest string) bool {
	l, ok := parse(latest)
	if !ok {
		return false
	}
	c, ok := parse(current)
	if !ok {
		return true
	}
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

// parse reads "v1.2.3" with optional -pre or +build suffixes ignored.
// Missing minor and patch parts read as zero.
func parse(v string) ([3]int, bool) {
	var out [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" || v == devVersion {
		return out, false
	}
	parts := strings.Split(v, ".")
	if len(parts) > len(out) {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return out, false
		}
		out[i] = n
	}
	return out, true
}
