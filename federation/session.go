package federation

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Session is a live exchanged credential: an AWS client configuration
// carrying the temporary credentials, plus the expiration declared by
// the exchange endpoint. Sessions are immutable; the cache replaces
// them wholesale on refresh and never mutates one in place.
type Session struct {
	cfg       aws.Config
	name      string
	expiresAt time.Time
}

// Config returns the client configuration for this session. Service
// clients (SQS, STS, ...) are constructed from it per call.
func (s *Session) Config() aws.Config {
	return s.cfg
}

// Name returns the role session name this session was exchanged under.
func (s *Session) Name() string {
	return s.name
}

// ExpiresAt returns the declared expiration, in UTC. The cache stops
// handing the session out once this passes, but a session may still be
// revoked server-side earlier; Execute covers that case.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}
