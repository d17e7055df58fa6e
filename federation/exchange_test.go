package federation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTS struct {
	input *sts.AssumeRoleWithWebIdentityInput
	out   *sts.AssumeRoleWithWebIdentityOutput
	err   error
}

func (f *fakeSTS) AssumeRoleWithWebIdentity(_ context.Context, params *sts.AssumeRoleWithWebIdentityInput, _ ...func(*sts.Options)) (*sts.AssumeRoleWithWebIdentityOutput, error) {
	f.input = params
	return f.out, f.err
}

func writeTokenFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestUniqueSessionName(t *testing.T) {
	a := uniqueSessionName("worker")
	b := uniqueSessionName("worker")

	assert.True(t, strings.HasPrefix(a, "worker-"))
	assert.NotEqual(t, a, b, "every exchange gets a fresh name")
	assert.LessOrEqual(t, len(a), roleSessionNameMaxLen)
}

func TestUniqueSessionNameTruncation(t *testing.T) {
	long := strings.Repeat("x", 80)
	name := uniqueSessionName(long)
	assert.Len(t, name, roleSessionNameMaxLen)
	assert.True(t, strings.HasPrefix(name, "xxxx"))
}

func TestUniqueSessionNameEmptyBase(t *testing.T) {
	assert.True(t, strings.HasPrefix(uniqueSessionName(""), "fedctl-"))
}

func TestSTSExchange(t *testing.T) {
	expires := time.Date(2026, 8, 28, 13, 0, 0, 0, time.FixedZone("x", 3600))
	fake := &fakeSTS{out: &sts.AssumeRoleWithWebIdentityOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("AKIAFAKE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("token"),
			Expiration:      aws.Time(expires),
		},
	}}
	e := &STSExchanger{newClient: func(aws.Config) stsAPI { return fake }}

	req := ExchangeRequest{
		TokenFile:   writeTokenFile(t, "oidc-token\n"),
		RoleARN:     "arn:aws:iam::123456789012:role/worker",
		SessionName: "worker",
		Region:      "us-west-2",
		Duration:    30 * time.Minute,
	}

	creds, err := e.Exchange(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "AKIAFAKE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
	assert.Equal(t, "token", creds.SessionToken)
	assert.Equal(t, expires.UTC(), creds.Expires)
	assert.Equal(t, time.UTC, creds.Expires.Location(), "expiration is normalized to UTC")

	require.NotNil(t, fake.input)
	assert.Equal(t, "oidc-token", *fake.input.WebIdentityToken, "token is trimmed")
	assert.Equal(t, req.RoleARN, *fake.input.RoleArn)
	assert.Equal(t, int32(1800), *fake.input.DurationSeconds)
	assert.True(t, strings.HasPrefix(*fake.input.RoleSessionName, "worker-"))
	assert.Equal(t, *fake.input.RoleSessionName, creds.SessionName)
}

func TestSTSExchangeDefaultDuration(t *testing.T) {
	fake := &fakeSTS{out: &sts.AssumeRoleWithWebIdentityOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("AKIAFAKE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("token"),
			Expiration:      aws.Time(time.Now().Add(time.Hour)),
		},
	}}
	e := &STSExchanger{newClient: func(aws.Config) stsAPI { return fake }}

	_, err := e.Exchange(context.Background(), ExchangeRequest{
		TokenFile: writeTokenFile(t, "tok"),
		RoleARN:   "arn:aws:iam::123456789012:role/worker",
		Region:    "us-west-2",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(DefaultDuration/time.Second), *fake.input.DurationSeconds)
}

func TestSTSExchangeMissingExpiration(t *testing.T) {
	fake := &fakeSTS{out: &sts.AssumeRoleWithWebIdentityOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("AKIAFAKE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("token"),
		},
	}}
	e := &STSExchanger{newClient: func(aws.Config) stsAPI { return fake }}

	creds, err := e.Exchange(context.Background(), ExchangeRequest{
		TokenFile: writeTokenFile(t, "tok"),
		RoleARN:   "arn:aws:iam::123456789012:role/worker",
		Region:    "us-west-2",
	})
	require.NoError(t, err)
	assert.True(t, creds.Expires.IsZero(), "missing expiration is surfaced to the cache to reject")
}

func TestSTSExchangeIncompleteCredentials(t *testing.T) {
	fake := &fakeSTS{out: &sts.AssumeRoleWithWebIdentityOutput{}}
	e := &STSExchanger{newClient: func(aws.Config) stsAPI { return fake }}

	_, err := e.Exchange(context.Background(), ExchangeRequest{
		TokenFile: writeTokenFile(t, "tok"),
		RoleARN:   "arn:aws:iam::123456789012:role/worker",
		Region:    "us-west-2",
	})
	assert.Error(t, err)
}

func TestSTSExchangeUnreadableTokenFile(t *testing.T) {
	e := NewSTSExchanger()
	_, err := e.Exchange(context.Background(), ExchangeRequest{
		TokenFile: filepath.Join(t.TempDir(), "does-not-exist"),
		RoleARN:   "arn:aws:iam::123456789012:role/worker",
		Region:    "us-west-2",
	})
	assert.Error(t, err)
}
