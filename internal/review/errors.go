package review

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a review failure.
type Kind string

const (
	KindNotFound        Kind = "not-found"
	KindAuth            Kind = "auth"
	KindRateLimited     Kind = "rate-limited"
	KindTransient       Kind = "transient"
	KindQuotaExceeded   Kind = "quota-exceeded"
	KindAnalyzer        Kind = "analyzer"
	KindScoringContract Kind = "scoring-contract"
	KindPost            Kind = "post"
	KindCanceled        Kind = "canceled"
	KindInvalidRequest  Kind = "invalid-request"
)

// Stage names a step of the review pipeline.
type Stage string

const (
	StageFetching           Stage = "fetching"
	StageAnalyzing          Stage = "analyzing"
	StageScoring            Stage = "scoring"
	StageGeneratingFeedback Stage = "generating-feedback"
	StagePosting            Stage = "posting"
)

// Error is the typed error shared by adapters, providers, scoring and the
// orchestrator. Stage is empty until the orchestrator annotates it.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

// NewError returns an *Error of the given kind.
func NewError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Errorf returns an *Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s (%s): %s", e.Stage, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindAuth})
// works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Stage == "" || t.Stage == e.Stage)
}

// WithStage returns err annotated with stage. Untyped errors become transient,
// context cancellation becomes canceled. An existing stage is kept.
func WithStage(err error, stage Stage) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		if re.Stage != "" {
			return re
		}
		cp := *re
		cp.Stage = stage
		return &cp
	}
	kind := KindTransient
	if errors.Is(err, context.Canceled) {
		kind = KindCanceled
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return ""
}

// StageOf returns the stage recorded on err, if any.
func StageOf(err error) Stage {
	var re *Error
	if errors.As(err, &re) {
		return re.Stage
	}
	return ""
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsRetryable reports whether a later attempt could succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindRateLimited:
		return true
	}
	return false
}

// Public is the user-visible form of a failure.
type Public struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Stage   Stage  `json:"stage,omitempty"`
}

// PublicError converts err into its user-visible form.
func PublicError(err error) Public {
	var re *Error
	if errors.As(err, &re) {
		msg := re.Message
		if msg == "" && re.Err != nil {
			msg = re.Err.Error()
		} else if re.Err != nil {
			msg = msg + ": " + re.Err.Error()
		}
		return Public{Kind: re.Kind, Message: msg, Stage: re.Stage}
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindTransient
	}
	return Public{Kind: kind, Message: err.Error()}
}
