package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/chukul/fedctl/federation"
	"github.com/chukul/fedctl/internal/config"
	"github.com/chukul/fedctl/internal/store"
)

// readSecret reads a masked line from the terminal in raw mode.
func readSecret(prompt string) string {
	fmt.Print(prompt)
	var secret string
	var char byte
	buf := make([]byte, 1)

	oldState, err := term.MakeRaw(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to set terminal mode: %v", err)
	}
	defer term.Restore(int(syscall.Stdin), oldState)

	for {
		_, err := syscall.Read(syscall.Stdin, buf)
		if err != nil {
			log.Fatalf("Failed to read input: %v", err)
		}
		char = buf[0]

		if char == 13 || char == 10 { // Enter
			fmt.Print("\r\n")
			break
		} else if char == 127 || char == 8 { // Backspace
			if len(secret) > 0 {
				secret = secret[:len(secret)-1]
				fmt.Print("\b \b")
			}
		} else if char >= 32 && char <= 126 { // Printable characters
			secret += string(char)
			fmt.Print("*")
		}
	}

	return strings.TrimSpace(secret)
}

// resolveSecret finds the store encryption secret via flag, env or
// keychain, falling back to an interactive prompt.
func resolveSecret(flagValue string) (string, error) {
	secret, err := store.ResolveSecret(flagValue)
	if err == nil {
		return secret, nil
	}

	secret = readSecret("Enter store encryption secret: ")
	if len(secret) < 32 {
		return "", fmt.Errorf("secret must be at least 32 characters")
	}
	return secret, nil
}

// loadIdentity resolves one named identity from the config file.
func loadIdentity(name string) (config.Identity, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Identity{}, err
	}
	return cfg.Identity(name)
}

// mintSession exchanges the identity's token for a fresh session and
// returns it as a storable record.
func mintSession(ctx context.Context, cache *federation.Cache, name string, id config.Identity) (*store.Record, error) {
	s, err := cache.Acquire(ctx, name, id.ExchangeRequest())
	if err != nil {
		return nil, err
	}

	creds, err := s.Config().Credentials.Retrieve(ctx)
	if err != nil {
		return nil, err
	}

	return &store.Record{
		Identity:     name,
		RoleARN:      id.RoleARN,
		Region:       id.Region,
		SessionName:  s.Name(),
		AccessKey:    creds.AccessKeyID,
		SecretKey:    creds.SecretAccessKey,
		SessionToken: creds.SessionToken,
		Expiration:   s.ExpiresAt(),
	}, nil
}

func newCache() *federation.Cache {
	return federation.NewCache(federation.NewSTSExchanger(), federation.CacheOptions{})
}
