package federation

import (
	"context"
	"log/slog"
)

// Execute runs op through a valid session for identity, refreshing and
// retrying exactly once if the session turns out to be expired or
// revoked server-side. This is the uniform policy every higher-level
// remote call goes through; expiry handling lives here and nowhere else.
//
// Recovery is deliberately bounded: one forced refresh, one retry. A
// second expiry failure (or any unrelated failure, before or after the
// refresh) propagates to the caller untouched.
func Execute[T any](ctx context.Context, c *Cache, identity string, req ExchangeRequest, op func(ctx context.Context, s *Session) (T, error)) (T, error) {
	var zero T

	s, err := c.Acquire(ctx, identity, req)
	if err != nil {
		return zero, err
	}

	out, err := op(ctx, s)
	if err == nil || !IsExpiredCredentials(err) {
		return out, err
	}

	c.logger.Warn("session credentials expired mid-use, refreshing",
		slog.String("identity", identity),
		slog.String("session", s.Name()),
	)

	c.invalidate(identity, s)
	s, err = c.Acquire(ctx, identity, req)
	if err != nil {
		return zero, err
	}

	return op(ctx, s)
}

// Do is Execute for operations that only return an error.
func Do(ctx context.Context, c *Cache, identity string, req ExchangeRequest, op func(ctx context.Context, s *Session) error) error {
	_, err := Execute(ctx, c, identity, req, func(ctx context.Context, s *Session) (struct{}, error) {
		return struct{}{}, op(ctx, s)
	})
	return err
}
