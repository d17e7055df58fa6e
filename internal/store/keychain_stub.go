//go:build !darwin

package store

import (
	"fmt"
	"os"
)

// ResolveSecret stub for non-macOS: flag and environment only.
func ResolveSecret(explicitSecret string) (string, error) {
	if explicitSecret != "" {
		return explicitSecret, nil
	}
	if envSecret := os.Getenv("FEDCTL_SECRET"); envSecret != "" {
		return envSecret, nil
	}
	return "", fmt.Errorf("no secret found and keychain is only supported on macOS (use --secret or FEDCTL_SECRET)")
}

// SetupKeychain stub for non-macOS.
func SetupKeychain() (string, error) {
	return "", fmt.Errorf("keychain integration is only supported on macOS")
}
