package federation

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrNoExpiration is returned (wrapped in an InitError) when the exchange
// endpoint hands back credentials without an expiration. The exchange
// contract requires one; a session with no expiry can never be refreshed
// correctly, so this is fatal rather than worked around.
var ErrNoExpiration = errors.New("exchange response missing credential expiration")

// InitError is the terminal "credential initialization failed"
// classification: the token exchange failed for a reason that a retry
// will not fix, or the response was malformed. The original cause is
// preserved and can be inspected with errors.Is/As.
type InitError struct {
	Identity string
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("credential initialization failed for %q: %v", e.Identity, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// expiredCodes are the machine-readable AWS error codes that mean a
// credential (either a presented web identity token or an issued session
// credential) is no longer valid. STS reports ExpiredTokenException,
// most data-plane services report ExpiredToken, EC2-style APIs report
// RequestExpired.
var expiredCodes = map[string]bool{
	"ExpiredToken":          true,
	"ExpiredTokenException": true,
	"TokenRefreshRequired":  true,
	"RequestExpired":        true,
}

// IsExpiredCredentials reports whether err is an AWS API error caused by
// an expired or revoked credential. This is the single failure class the
// cache and executor recover from; every other error propagates untouched.
func IsExpiredCredentials(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return expiredCodes[apiErr.ErrorCode()]
	}
	return false
}
