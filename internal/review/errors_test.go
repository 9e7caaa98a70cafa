package review

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(KindNotFound, "pull request 7", errors.New("404"))
	assert.Equal(t, "not-found: pull request 7: 404", err.Error())

	staged := WithStage(err, StageFetching)
	assert.Equal(t, "fetching (not-found): pull request 7: 404", staged.Error())
	assert.Equal(t, Stage(""), err.Stage, "WithStage must not mutate the original")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed", Errorf(KindAuth, "bad token"), KindAuth},
		{"wrapped", fmt.Errorf("outer: %w", Errorf(KindRateLimited, "slow down")), KindRateLimited},
		{"canceled", context.Canceled, KindCanceled},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"plain", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithStage(t *testing.T) {
	plain := WithStage(errors.New("boom"), StageAnalyzing)
	assert.Equal(t, KindTransient, plain.Kind)
	assert.Equal(t, StageAnalyzing, plain.Stage)

	canceled := WithStage(fmt.Errorf("wrap: %w", context.Canceled), StageScoring)
	assert.Equal(t, KindCanceled, canceled.Kind)

	first := WithStage(Errorf(KindPost, "x"), StagePosting)
	again := WithStage(first, StageFetching)
	assert.Equal(t, StagePosting, again.Stage)

	assert.Nil(t, WithStage(nil, StageFetching))
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("ctx: %w", WithStage(Errorf(KindAuth, "denied"), StageFetching))
	assert.True(t, errors.Is(err, &Error{Kind: KindAuth}))
	assert.True(t, errors.Is(err, &Error{Kind: KindAuth, Stage: StageFetching}))
	assert.False(t, errors.Is(err, &Error{Kind: KindAuth, Stage: StagePosting}))
	assert.False(t, errors.Is(err, &Error{Kind: KindNotFound}))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Errorf(KindTransient, "x")))
	assert.True(t, IsRetryable(Errorf(KindRateLimited, "x")))
	assert.False(t, IsRetryable(Errorf(KindAuth, "x")))
	assert.False(t, IsRetryable(Errorf(KindQuotaExceeded, "x")))
	assert.True(t, IsAuth(Errorf(KindAuth, "x")))
}

func TestPublicError(t *testing.T) {
	p := PublicError(WithStage(NewError(KindNotFound, "pull request 9", nil), StageFetching))
	assert.Equal(t, Public{Kind: KindNotFound, Message: "pull request 9", Stage: StageFetching}, p)

	p = PublicError(errors.New("disk full"))
	assert.Equal(t, KindTransient, p.Kind)
	assert.Equal(t, "disk full", p.Message)
}
