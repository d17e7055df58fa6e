// Package federation keeps a process-wide pool of AWS sessions obtained
// by exchanging web identity tokens through STS. It exists to solve one
// problem well: hand out valid session handles without re-exchanging
// tokens on every call, without duplicate concurrent exchanges for the
// same identity, and with transparent recovery when a session turns out
// to be expired mid-use.
//
// The two entry points are Cache.Acquire (get a valid session handle)
// and Execute (run a remote operation through a session, refreshing and
// retrying exactly once on credential expiry).
package federation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// maxExchangeAttempts bounds the re-exchange loop when STS reports the
// presented token itself was expired. The token file is re-read on the
// second attempt; if it is still stale the failure is terminal.
const maxExchangeAttempts = 2

// CacheOptions configure a Cache.
type CacheOptions struct {
	// ExpiryWindow treats a session as expired this long before its
	// declared expiration, so callers never start work on a credential
	// about to lapse. Zero means sessions are valid until the instant
	// they expire.
	ExpiryWindow time.Duration
	// Logger receives debug/warn records. Nil means slog.Default().
	Logger *slog.Logger
}

// Cache is a keyed store of live sessions. It is constructed once at
// service start and shared by reference; all methods are safe for
// concurrent use. Entries are replaced, never mutated, so readers can
// never observe a torn session.
type Cache struct {
	exchanger Exchanger
	window    time.Duration
	logger    *slog.Logger

	// now is the clock. Tests replace it to drive expiry.
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	guards   map[string]*sync.Mutex
}

// NewCache returns a cache that refreshes through ex.
func NewCache(ex Exchanger, opts CacheOptions) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		exchanger: ex,
		window:    opts.ExpiryWindow,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		guards:    make(map[string]*sync.Mutex),
	}
}

// Acquire returns a valid session for identity, exchanging the token in
// req only when no live cached session exists. Concurrent calls for the
// same identity perform at most one exchange between them; unrelated
// identities never block each other.
func (c *Cache) Acquire(ctx context.Context, identity string, req ExchangeRequest) (*Session, error) {
	// Fast path: valid cached entry, read lock only.
	if s := c.lookup(identity); s != nil {
		return s, nil
	}

	guard := c.guard(identity)
	guard.Lock()
	defer guard.Unlock()

	// Double-check: another caller may have refreshed while we waited.
	if s := c.lookup(identity); s != nil {
		return s, nil
	}

	s, err := c.refresh(ctx, identity, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sessions[identity] = s
	c.mu.Unlock()

	return s, nil
}

// lookup returns the cached session for identity if it is still inside
// its validity window, else nil.
func (c *Cache) lookup(identity string) *Session {
	c.mu.RLock()
	s := c.sessions[identity]
	c.mu.RUnlock()

	if s == nil {
		return nil
	}
	if !c.now().Add(c.window).Before(s.expiresAt) {
		return nil
	}
	return s
}

// guard returns the refresh mutex for identity, creating it on first
// use. Guards are per identity so a slow exchange for one role does not
// serialize refreshes of every other.
func (c *Cache) guard(identity string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.guards[identity]
	if !ok {
		g = &sync.Mutex{}
		c.guards[identity] = g
	}
	return g
}

// refresh performs the token exchange and builds a session handle from
// the returned credentials. Called only while holding the identity's
// refresh guard.
func (c *Cache) refresh(ctx context.Context, identity string, req ExchangeRequest) (*Session, error) {
	var creds Credentials
	var err error

	for attempt := 1; ; attempt++ {
		creds, err = c.exchanger.Exchange(ctx, req)
		if err == nil {
			break
		}
		if IsExpiredCredentials(err) && attempt < maxExchangeAttempts {
			// The presented token was stale, not the session. The token
			// file may have been rotated underneath us; read it again.
			c.logger.Warn("presented token expired, retrying exchange",
				slog.String("identity", identity),
				slog.Int("attempt", attempt),
			)
			continue
		}
		return nil, &InitError{Identity: identity, Err: err}
	}

	if creds.Expires.IsZero() {
		return nil, &InitError{Identity: identity, Err: ErrNoExpiration}
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(req.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			creds.SessionToken,
		)),
	)
	if err != nil {
		return nil, &InitError{Identity: identity, Err: err}
	}

	c.logger.Debug("exchanged session credentials",
		slog.String("identity", identity),
		slog.String("session", creds.SessionName),
		slog.Time("expires", creds.Expires),
	)

	return &Session{
		cfg:       cfg,
		name:      creds.SessionName,
		expiresAt: creds.Expires.UTC(),
	}, nil
}

// invalidate drops the entry for identity, but only if it is still the
// session the caller was holding. When several executors hit expiry on
// the same session concurrently, the first one evicts it and the rest
// find the replacement already in place.
func (c *Cache) invalidate(identity string, stale *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.sessions[identity]; ok && cur == stale {
		delete(c.sessions, identity)
	}
}
