package adapters

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/prgate/internal/gitctx"
)

var (
	httpsRemoteRe = regexp.MustCompile(`^https?://(?:[^@/]+@)?([^/]+)/(.+?)/([^/\s]+)$`)
	sshRemoteRe   = regexp.MustCompile(`^(?:ssh://)?[^@]+@([^:/]+)[:/](?:\d+/)?(.+?)/([^/\s]+)$`)
)

// Remote is a parsed git remote.
type Remote struct {
	Host  string
	Owner string
	Name  string
}

// Repo returns "owner/name".
func (r Remote) Repo() string { return r.Owner + "/" + r.Name }

// Type guesses the host type from the remote's host name. It returns "" for
// hosts it does not recognize.
func (r Remote) Type() string {
	switch h := strings.ToLower(r.Host); {
	case strings.Contains(h, "github"):
		return "github"
	case strings.Contains(h, "gitlab"):
		return "gitlab"
	case strings.Contains(h, "bitbucket"):
		return "bitbucket"
	default:
		return ""
	}
}

// ParseRemoteURL parses an HTTPS or SSH remote URL. Nested groups stay in
// Owner.
func ParseRemoteURL(url string) (Remote, error) {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")
	url = strings.TrimSuffix(url, ".git")
	for _, re := range []*regexp.Regexp{httpsRemoteRe, sshRemoteRe} {
		if m := re.FindStringSubmatch(url); m != nil {
			return Remote{Host: m[1], Owner: m[2], Name: m[3]}, nil
		}
	}
	return Remote{}, fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}

// DetectRepo parses the origin remote of the repository at dir.
func DetectRepo(ctx context.Context, dir string) (Remote, error) {
	repo, err := gitctx.Open(ctx, dir)
	if err != nil {
		return Remote{}, fmt.Errorf("cannot detect repo: %w", err)
	}
	url, err := repo.RemoteURL(ctx, "origin")
	if err != nil {
		return Remote{}, fmt.Errorf("cannot detect repo: %w", err)
	}
	return ParseRemoteURL(url)
}
