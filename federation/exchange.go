package federation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// roleSessionNameMaxLen is the STS limit on RoleSessionName.
const roleSessionNameMaxLen = 64

// ExchangeRequest fully determines one token exchange call. It is never
// persisted; the token file is read fresh at exchange time.
type ExchangeRequest struct {
	// TokenFile is the path to the web identity (OIDC) token to present.
	TokenFile string
	// RoleARN is the IAM role to assume with the presented token.
	RoleARN string
	// SessionName is the base session name. Each exchange derives a
	// globally unique name from it, so concurrent callers sharing a
	// naming convention never collide.
	SessionName string
	// Region the temporary credentials will be used in.
	Region string
	// Duration of the requested session. Zero means DefaultDuration.
	Duration time.Duration
}

// DefaultDuration is requested when ExchangeRequest.Duration is zero.
const DefaultDuration = time.Hour

// Credentials is the raw result of a token exchange.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// SessionName is the derived name the exchange ran under.
	SessionName string
	Expires     time.Time
}

// Exchanger trades a presented identity token for temporary session
// credentials. Implementations must return the credential expiration;
// the cache treats a missing one as a contract violation.
type Exchanger interface {
	Exchange(ctx context.Context, req ExchangeRequest) (Credentials, error)
}

// stsAPI is the subset of the STS client used by STSExchanger.
type stsAPI interface {
	AssumeRoleWithWebIdentity(ctx context.Context, params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithWebIdentityOutput, error)
}

// STSExchanger exchanges a web identity token file for temporary AWS
// credentials via sts:AssumeRoleWithWebIdentity. The call is unsigned,
// so no base credentials are needed.
type STSExchanger struct {
	// newClient builds the STS client for a request. Tests replace it.
	newClient func(cfg aws.Config) stsAPI
}

// NewSTSExchanger returns an Exchanger backed by the real STS endpoint.
func NewSTSExchanger() *STSExchanger {
	return &STSExchanger{
		newClient: func(cfg aws.Config) stsAPI {
			return sts.NewFromConfig(cfg)
		},
	}
}

func (e *STSExchanger) Exchange(ctx context.Context, req ExchangeRequest) (Credentials, error) {
	// Read the token at exchange time, never cached: a refreshed token
	// file must be picked up by the retry after ExpiredTokenException.
	token, err := os.ReadFile(req.TokenFile)
	if err != nil {
		return Credentials{}, fmt.Errorf("read web identity token: %w", err)
	}

	duration := req.Duration
	if duration == 0 {
		duration = DefaultDuration
	}
	seconds := int32(duration / time.Second)

	cfg := aws.Config{
		Region:      req.Region,
		Credentials: aws.AnonymousCredentials{},
	}
	sessionName := uniqueSessionName(req.SessionName)

	out, err := e.newClient(cfg).AssumeRoleWithWebIdentity(ctx, &sts.AssumeRoleWithWebIdentityInput{
		RoleArn:          aws.String(req.RoleARN),
		RoleSessionName:  aws.String(sessionName),
		WebIdentityToken: aws.String(strings.TrimSpace(string(token))),
		DurationSeconds:  aws.Int32(seconds),
	})
	if err != nil {
		// Returned as-is so callers can classify ExpiredTokenException.
		return Credentials{}, err
	}

	c := out.Credentials
	if c == nil || c.AccessKeyId == nil || c.SecretAccessKey == nil || c.SessionToken == nil {
		return Credentials{}, fmt.Errorf("sts returned incomplete credentials for role %s", req.RoleARN)
	}

	creds := Credentials{
		AccessKeyID:     *c.AccessKeyId,
		SecretAccessKey: *c.SecretAccessKey,
		SessionToken:    *c.SessionToken,
		SessionName:     sessionName,
	}
	if c.Expiration != nil {
		creds.Expires = c.Expiration.UTC()
	}
	return creds, nil
}

// uniqueSessionName derives a fresh session name for a single exchange:
// the base name plus a nanosecond suffix, truncated to the STS limit.
// Overlapping assumptions of the same nominal role must not share a name.
func uniqueSessionName(base string) string {
	if base == "" {
		base = "fedctl"
	}
	name := fmt.Sprintf("%s-%d", base, time.Now().UTC().UnixNano())
	if len(name) > roleSessionNameMaxLen {
		name = name[:roleSessionNameMaxLen]
	}
	return name
}
