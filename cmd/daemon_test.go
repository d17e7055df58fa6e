package cmd

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chukul/fedctl/federation"
	"github.com/chukul/fedctl/internal/config"
	"github.com/chukul/fedctl/internal/store"
)

type tickExchanger struct {
	mu    sync.Mutex
	calls int
	ttl   time.Duration
}

func (e *tickExchanger) Exchange(ctx context.Context, req federation.ExchangeRequest) (federation.Credentials, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return federation.Credentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		SessionToken:    "token",
		SessionName:     req.SessionName,
		Expires:         time.Now().Add(e.ttl).UTC(),
	}, nil
}

func (e *tickExchanger) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newDaemonTestCache(ex federation.Exchanger) *federation.Cache {
	return federation.NewCache(ex, federation.CacheOptions{
		ExpiryWindow: daemonRefreshWindow,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func daemonTestConfig() *config.Config {
	return &config.Config{
		DefaultRegion: "us-east-1",
		Identities: map[string]config.Identity{
			"ci": {
				RoleARN:   "arn:aws:iam::123456789012:role/ci",
				TokenFile: "/var/run/secrets/tokens/token",
			},
		},
	}
}

// A session inside the refresh window must be re-exchanged on every
// pass, even when the previous pass left a still-valid session in the
// daemon's cache.
func TestRefreshExpiringReExchangesOnConsecutivePasses(t *testing.T) {
	ex := &tickExchanger{ttl: 10 * time.Minute}
	cache := newDaemonTestCache(ex)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := daemonTestConfig()

	var saved *store.Record
	save := func(r *store.Record) error {
		saved = r
		return nil
	}

	records := []*store.Record{{Identity: "ci", Expiration: time.Now().Add(5 * time.Minute)}}
	refreshExpiring(context.Background(), logger, cache, cfg, records, save)

	if got := ex.callCount(); got != 1 {
		t.Fatalf("expected 1 exchange on the first pass, got %d", got)
	}
	if saved == nil {
		t.Fatal("expected the refreshed record to be saved")
	}
	firstExpiration := saved.Expiration

	// The saved record still expires inside the window, so the next
	// pass must mint again instead of serving the cached session.
	refreshExpiring(context.Background(), logger, cache, cfg, []*store.Record{saved}, save)

	if got := ex.callCount(); got != 2 {
		t.Fatalf("expected a second exchange on the next pass, got %d", got)
	}
	if !saved.Expiration.After(firstExpiration) {
		t.Fatalf("expected the stored expiration to advance, got %s then %s", firstExpiration, saved.Expiration)
	}
}

func TestRefreshExpiringSkipsDistantAndExpiredSessions(t *testing.T) {
	ex := &tickExchanger{ttl: time.Hour}
	cache := newDaemonTestCache(ex)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var saves int
	save := func(r *store.Record) error {
		saves++
		return nil
	}

	records := []*store.Record{
		{Identity: "ci", Expiration: time.Now().Add(time.Hour)},
		{Identity: "ci", Expiration: time.Now().Add(-time.Minute)},
	}
	refreshExpiring(context.Background(), logger, cache, daemonTestConfig(), records, save)

	if got := ex.callCount(); got != 0 {
		t.Fatalf("expected no exchanges, got %d", got)
	}
	if saves != 0 {
		t.Fatalf("expected no saves, got %d", saves)
	}
}
