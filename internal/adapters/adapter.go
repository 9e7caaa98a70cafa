package adapters

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dshills/prgate/internal/review"
)

// DefaultTimeout bounds each host request when a server sets none.
const DefaultTimeout = 30 * time.Second

// Comment is an inline review comment on the new side of a file.
type Comment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// Submission is what gets posted back to the host.
type Submission struct {
	Summary        string                `json:"summary"`
	Comments       []Comment             `json:"comments"`
	Recommendation review.Recommendation `json:"recommendation"`
}

// Adapter is the contract every git host implements.
type Adapter interface {
	Name() string
	FetchPR(ctx context.Context, repo string, number int) (review.PRInfo, error)
	FetchDiffs(ctx context.Context, repo string, number int) ([]review.FileChange, error)
	PostReview(ctx context.Context, repo string, number int, sub Submission) error
}

// Checker is implemented by adapters that can verify their credentials.
type Checker interface {
	CheckConnection(ctx context.Context) error
}

// Config describes one configured server.
type Config struct {
	Type    string
	BaseURL string
	Token   string
	// Username switches Bitbucket to app-password basic auth.
	Username string
	Timeout  time.Duration
	// Dir is the repository directory for the local adapter.
	Dir string
	// Base is the local adapter's base ref when the range names only a head.
	Base string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.timeout()}
}

// Constructor builds an adapter from its configuration.
type Constructor func(Config) (Adapter, error)

// Factory maps host types to constructors. It is not modified after
// construction and is safe for concurrent use.
type Factory struct {
	ctors map[string]Constructor
}

// NewFactory returns a factory over ctors.
func NewFactory(ctors map[string]Constructor) *Factory {
	f := &Factory{ctors: make(map[string]Constructor, len(ctors))}
	for name, c := range ctors {
		f.ctors[strings.ToLower(name)] = c
	}
	return f
}

// DefaultFactory knows every built-in host type.
func DefaultFactory() *Factory {
	return NewFactory(map[string]Constructor{
		"github":    func(c Config) (Adapter, error) { return NewGitHub(c) },
		"gitlab":    func(c Config) (Adapter, error) { return NewGitLab(c) },
		"bitbucket": func(c Config) (Adapter, error) { return NewBitbucket(c) },
		"local":     func(c Config) (Adapter, error) { return NewLocal(c) },
	})
}

// Types returns the supported host types, sorted.
func (f *Factory) Types() []string {
	names := make([]string, 0, len(f.ctors))
	for n := range f.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds an adapter for cfg.Type.
func (f *Factory) New(cfg Config) (Adapter, error) {
	ctor, ok := f.ctors[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, fmt.Errorf("unsupported server type %q (supported: %s)", cfg.Type, strings.Join(f.Types(), ", "))
	}
	return ctor(cfg)
}

// splitRepo splits "owner/name". Nested GitLab groups keep every segment but
// the last in owner.
func splitRepo(repo string) (owner, name string, err error) {
	repo = strings.Trim(repo, "/")
	i := strings.LastIndex(repo, "/")
	if i <= 0 || i == len(repo)-1 {
		return "", "", review.Errorf(review.KindInvalidRequest, "repository %q must be owner/name", repo)
	}
	return repo[:i], repo[i+1:], nil
}
