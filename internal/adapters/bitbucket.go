package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/prgate/internal/gitctx"
	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

const defaultBitbucketURL = "https://api.bitbucket.org/2.0"

// Bitbucket talks to the Bitbucket Cloud REST 2.0 API. Repositories are
// "workspace/slug".
type Bitbucket struct {
	rest *restClient
}

// NewBitbucket creates a Bitbucket adapter. The token falls back to
// BITBUCKET_TOKEN. With a Username the token is sent as an app password.
func NewBitbucket(cfg Config) (*Bitbucket, error) {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("BITBUCKET_TOKEN")
	}
	if token == "" {
		return nil, review.Errorf(review.KindAuth, "bitbucket: no token configured (set BITBUCKET_TOKEN)")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBitbucketURL
	} else if !strings.HasSuffix(base, "/2.0") {
		base += "/2.0"
	}
	auth := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	if cfg.Username != "" {
		user := cfg.Username
		auth = func(r *http.Request) { r.SetBasicAuth(user, token) }
	}
	return &Bitbucket{rest: &restClient{host: "bitbucket", base: base, hc: cfg.httpClient(), auth: auth}}, nil
}

func (b *Bitbucket) Name() string { return "bitbucket" }

type bitbucketPR struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      struct {
		DisplayName string `json:"display_name"`
		Nickname    string `json:"nickname"`
	} `json:"author"`
	Source struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
		Commit struct {
			Hash string `json:"hash"`
		} `json:"commit"`
	} `json:"source"`
	Destination struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"destination"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

type bitbucketDiffstat struct {
	Status       string `json:"status"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	Old          *struct {
		Path string `json:"path"`
	} `json:"old"`
	New *struct {
		Path string `json:"path"`
	} `json:"new"`
}

func (d bitbucketDiffstat) path() string {
	if d.New != nil {
		return d.New.Path
	}
	if d.Old != nil {
		return d.Old.Path
	}
	return ""
}

func (b *Bitbucket) prPath(repo string, number int) string {
	return fmt.Sprintf("/repositories/%s/pullrequests/%d", strings.Trim(repo, "/"), number)
}

// FetchPR returns pull request metadata.
func (b *Bitbucket) FetchPR(ctx context.Context, repo string, number int) (review.PRInfo, error) {
	if _, _, err := splitRepo(repo); err != nil {
		return review.PRInfo{}, err
	}
	var pr bitbucketPR
	if err := b.rest.do(ctx, http.MethodGet, b.prPath(repo, number), nil, &pr, fmt.Sprintf("fetching PR #%d", number)); err != nil {
		return review.PRInfo{}, err
	}
	stats, err := b.diffstat(ctx, repo, number)
	if err != nil {
		return review.PRInfo{}, err
	}
	author := pr.Author.Nickname
	if author == "" {
		author = pr.Author.DisplayName
	}
	info := review.PRInfo{
		ID:          strconv.Itoa(pr.ID),
		Number:      pr.ID,
		Title:       pr.Title,
		Description: pr.Description,
		Author:      author,
		BaseRef:     pr.Destination.Branch.Name,
		HeadRef:     pr.Source.Branch.Name,
		HeadSHA:     pr.Source.Commit.Hash,
		URL:         pr.Links.HTML.Href,
		Repository:  repo,
		Files:       make([]string, 0, len(stats)),
	}
	for _, s := range stats {
		info.Files = append(info.Files, s.path())
		info.Additions += s.LinesAdded
		info.Deletions += s.LinesRemoved
	}
	return info, nil
}

func (b *Bitbucket) diffstat(ctx context.Context, repo string, number int) ([]bitbucketDiffstat, error) {
	var all []bitbucketDiffstat
	next := b.prPath(repo, number) + "/diffstat?pagelen=100"
	for next != "" {
		var page struct {
			Values []bitbucketDiffstat `json:"values"`
			Next   string              `json:"next"`
		}
		if err := b.rest.do(ctx, http.MethodGet, next, nil, &page, fmt.Sprintf("fetching diffstat of PR #%d", number)); err != nil {
			return nil, err
		}
		all = append(all, page.Values...)
		next = page.Next
	}
	return all, nil
}

// FetchDiffs combines the diffstat with the raw unified diff.
func (b *Bitbucket) FetchDiffs(ctx context.Context, repo string, number int) ([]review.FileChange, error) {
	stats, err := b.diffstat(ctx, repo, number)
	if err != nil {
		return nil, err
	}
	var raw string
	if err := b.rest.do(ctx, http.MethodGet, b.prPath(repo, number)+"/diff", nil, &raw, fmt.Sprintf("fetching diff of PR #%d", number)); err != nil {
		return nil, err
	}
	sections := map[string]string{}
	for _, sec := range gitctx.SplitSections(raw) {
		if p, _ := gitctx.PathFromSection(sec); p != "" {
			sections[p] = sec
		}
	}

	out := make([]review.FileChange, 0, len(stats))
	for _, s := range stats {
		p := s.path()
		out = append(out, review.FileChange{
			Path:      p,
			Kind:      bitbucketKind(s.Status),
			Diff:      sections[p],
			Language:  patch.Language(p),
			Additions: s.LinesAdded,
			Deletions: s.LinesRemoved,
		})
	}
	return out, nil
}

// PostReview posts the summary comment, inline comments, then approves or
// requests changes to match the recommendation.
func (b *Bitbucket) PostReview(ctx context.Context, repo string, number int, sub Submission) error {
	base := b.prPath(repo, number)
	summary := map[string]any{"content": map[string]string{"raw": sub.Summary}}
	if err := b.rest.do(ctx, http.MethodPost, base+"/comments", summary, nil, "posting summary comment"); err != nil {
		return postError(err)
	}

	var rejected int
	for _, c := range sub.Comments {
		payload := map[string]any{
			"content": map[string]string{"raw": c.Body},
			"inline":  map[string]any{"path": c.Path, "to": c.Line},
		}
		if err := b.rest.do(ctx, http.MethodPost, base+"/comments", payload, nil, "posting inline comment"); err != nil {
			if abortsPost(err) {
				return postError(err)
			}
			rejected++
		}
	}

	switch sub.Recommendation {
	case review.RecommendApprove:
		if err := b.rest.do(ctx, http.MethodPost, base+"/approve", nil, nil, "approving PR"); err != nil {
			return postError(err)
		}
	case review.RecommendRequestChanges:
		if err := b.rest.do(ctx, http.MethodPost, base+"/request-changes", nil, nil, "requesting changes"); err != nil {
			return postError(err)
		}
	}

	if rejected > 0 {
		return review.NewError(review.KindPost, "posting review", errors.New(strconv.Itoa(rejected)+" inline comment(s) rejected by bitbucket"))
	}
	return nil
}

// CheckConnection verifies the credentials against /user.
func (b *Bitbucket) CheckConnection(ctx context.Context) error {
	return b.rest.do(ctx, http.MethodGet, "/user", nil, nil, "checking connection")
}

func bitbucketKind(status string) review.ChangeKind {
	switch status {
	case "added":
		return review.ChangeAdded
	case "removed":
		return review.ChangeDeleted
	default:
		return review.ChangeModified
	}
}
