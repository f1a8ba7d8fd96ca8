package ai

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestRetryableErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		recoverable bool
		fatal       bool
	}{
		{"recoverable", NewRecoverableError(io.ErrUnexpectedEOF, "stream cut"), true, false},
		{"fatal", NewFatalError(ErrSynthesisFailed, "bad voice"), false, true},
		{"wrapped recoverable", errors.Join(errors.New("outer"), NewRecoverableError(nil, "rate limited")), true, false},
		{"plain", errors.New("plain"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverable(tt.err); got != tt.recoverable {
				t.Errorf("IsRecoverable() = %v, want %v", got, tt.recoverable)
			}
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestRetryableErrorUnwrapsUnderlying(t *testing.T) {
	is := is.New(t)

	err := NewFatalError(ErrTranscriptionFailed, "whisper rejected audio")
	is.True(errors.Is(err, ErrTranscriptionFailed))
	is.True(errors.Is(err, ErrFatal))
	is.Equal(err.Error(), "whisper rejected audio: transcription failed")
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestRetryRecoversAfterTransientFailures(t *testing.T) {
	is := is.New(t)

	calls := 0
	err := Retry(context.Background(), fastRetry(), nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return NewRecoverableError(nil, "busy")
		}
		return nil
	})
	is.NoErr(err)
	is.Equal(calls, 3)
}

func TestRetryStopsOnFatal(t *testing.T) {
	is := is.New(t)

	calls := 0
	err := Retry(context.Background(), fastRetry(), nil, func(context.Context) error {
		calls++
		return NewFatalError(nil, "invalid api key")
	})
	is.True(IsFatal(err))
	is.Equal(calls, 1)
}

func TestRetryExhaustsBudget(t *testing.T) {
	is := is.New(t)

	calls := 0
	err := Retry(context.Background(), fastRetry(), nil, func(context.Context) error {
		calls++
		return NewRecoverableError(nil, "busy")
	})
	is.True(IsRecoverable(err))
	is.Equal(calls, 4)
}

func TestRetryHonoursCancellation(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Second, BackoffFactor: 1}
	calls := 0
	err := Retry(ctx, cfg, nil, func(context.Context) error {
		calls++
		cancel()
		return NewRecoverableError(nil, "busy")
	})
	is.True(err != nil)
	is.Equal(calls, 1)
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}
	if d := cfg.Backoff(10); d != 300*time.Millisecond {
		t.Errorf("Backoff(10) = %v, want 300ms", d)
	}
	if d := cfg.Backoff(1); d != 100*time.Millisecond {
		t.Errorf("Backoff(1) = %v, want 100ms", d)
	}
}
