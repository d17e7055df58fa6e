package federation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRetriesOnceOnExpiredSession(t *testing.T) {
	ex := &fakeExchanger{fn: func(int) (Credentials, error) {
		return testCreds(time.Now().Add(time.Hour)), nil
	}}
	c := newTestCache(ex)

	var attempts int
	var seen []*Session
	out, err := Execute(context.Background(), c, "job-A", testRequest(), func(_ context.Context, s *Session) (string, error) {
		attempts++
		seen = append(seen, s)
		if attempts == 1 {
			return "", expiredErr("ExpiredToken")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, attempts, "operation retried exactly once")
	assert.Equal(t, 2, ex.callCount(), "initial population plus one forced refresh")
	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1], "retry must run on the refreshed handle")
}

func TestExecutePropagatesSecondExpiry(t *testing.T) {
	ex := &fakeExchanger{fn: func(int) (Credentials, error) {
		return testCreds(time.Now().Add(time.Hour)), nil
	}}
	c := newTestCache(ex)

	failure := expiredErr("ExpiredToken")
	var attempts int
	_, err := Execute(context.Background(), c, "job-A", testRequest(), func(context.Context, *Session) (string, error) {
		attempts++
		return "", failure
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 2, attempts, "no retry loop beyond the single attempt")
	assert.Equal(t, 2, ex.callCount())
}

func TestExecutePropagatesUnrelatedFailures(t *testing.T) {
	ex := &fakeExchanger{fn: func(int) (Credentials, error) {
		return testCreds(time.Now().Add(time.Hour)), nil
	}}
	c := newTestCache(ex)

	boom := errors.New("throttled")
	var attempts int
	_, err := Execute(context.Background(), c, "job-A", testRequest(), func(context.Context, *Session) (string, error) {
		attempts++
		return "", boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts, "unrelated failures are not retried")
	assert.Equal(t, 1, ex.callCount(), "no extra exchange on unrelated failure")
}

func TestExecuteSurfacesAcquireFailure(t *testing.T) {
	ex := &fakeExchanger{fn: func(int) (Credentials, error) {
		return Credentials{}, errors.New("sts unreachable")
	}}
	c := newTestCache(ex)

	ran := false
	_, err := Execute(context.Background(), c, "job-A", testRequest(), func(context.Context, *Session) (string, error) {
		ran = true
		return "", nil
	})

	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.False(t, ran, "operation must not run without a session")
}

func TestDo(t *testing.T) {
	ex := &fakeExchanger{fn: func(int) (Credentials, error) {
		return testCreds(time.Now().Add(time.Hour)), nil
	}}
	c := newTestCache(ex)

	var attempts int
	err := Do(context.Background(), c, "job-A", testRequest(), func(context.Context, *Session) error {
		attempts++
		if attempts == 1 {
			return expiredErr("ExpiredTokenException")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, ex.callCount())
}
