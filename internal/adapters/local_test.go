package adapters

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prgate/internal/review"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	write := func(name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	run("init")
	run("checkout", "-b", "main")
	write("main.go", "package main\n\nfunc main() {}\n")
	write("old.txt", "bye\n")
	run("add", ".")
	run("commit", "-m", "initial")

	run("checkout", "-b", "feature")
	write("config.py", "API_KEY = \"sk-live-abcdefghijklmnop1234\"\n")
	write("main.go", "package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(1) }\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "old.txt")))
	run("add", "-A")
	run("commit", "-m", "Add config")
	return dir
}

func TestLocalAdapter(t *testing.T) {
	dir := initRepo(t)
	l, err := NewLocal(Config{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	pr, err := l.FetchPR(ctx, "main...feature", 0)
	require.NoError(t, err)
	assert.Equal(t, "Add config", pr.Title)
	assert.Equal(t, "test", pr.Author)
	assert.Equal(t, "main", pr.BaseRef)
	assert.Equal(t, 1, pr.Commits)
	assert.ElementsMatch(t, []string{"config.py", "main.go", "old.txt"}, pr.Files)
	assert.NotEmpty(t, pr.HeadSHA)

	files, err := l.FetchDiffs(ctx, "feature", 0)
	require.NoError(t, err)
	byPath := map[string]review.FileChange{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	assert.Equal(t, review.ChangeAdded, byPath["config.py"].Kind)
	assert.Contains(t, byPath["config.py"].Content, "API_KEY")
	assert.Contains(t, byPath["main.go"].Content, "fmt.Println")
	assert.Equal(t, review.ChangeDeleted, byPath["old.txt"].Kind)
	assert.Empty(t, byPath["old.txt"].Content)

	assert.NoError(t, l.CheckConnection(ctx))
	assert.Equal(t, review.KindPost, review.KindOf(l.PostReview(ctx, "feature", 0, Submission{})))

	_, err = l.FetchPR(ctx, "main...nope", 0)
	assert.Equal(t, review.KindNotFound, review.KindOf(err))
}

func TestLocalNotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	l, err := NewLocal(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, review.KindNotFound, review.KindOf(l.CheckConnection(context.Background())))
}

func TestLocalSplit(t *testing.T) {
	l := &Local{base: "develop"}
	b, h := l.split("a...b")
	assert.Equal(t, []string{"a", "b"}, []string{b, h})
	b, h = l.split("a..b")
	assert.Equal(t, []string{"a", "b"}, []string{b, h})
	b, h = l.split("topic")
	assert.Equal(t, []string{"develop", "topic"}, []string{b, h})
	b, h = l.split("")
	assert.Equal(t, []string{"develop", "HEAD"}, []string{b, h})
}
