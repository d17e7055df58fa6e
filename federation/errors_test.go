package federation

import (
	"errors"
	"fmt"
	"testing"

	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestIsExpiredCredentials(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"expired token", &smithy.GenericAPIError{Code: "ExpiredToken"}, true},
		{"expired token exception", &smithy.GenericAPIError{Code: "ExpiredTokenException"}, true},
		{"token refresh required", &smithy.GenericAPIError{Code: "TokenRefreshRequired"}, true},
		{"request expired", &smithy.GenericAPIError{Code: "RequestExpired"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"typed sts error", &ststypes.ExpiredTokenException{}, true},
		{"wrapped", fmt.Errorf("send message: %w", &smithy.GenericAPIError{Code: "ExpiredToken"}), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsExpiredCredentials(tc.err))
		})
	}
}

func TestInitErrorUnwrap(t *testing.T) {
	cause := errors.New("sts unreachable")
	err := fmt.Errorf("mint: %w", &InitError{Identity: "job-A", Err: cause})

	var initErr *InitError
	assert.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, initErr.Error(), "job-A")
}
