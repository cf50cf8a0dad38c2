package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/secrets"
)

// AuthKind distinguishes between API key and Bearer token auth.
type AuthKind int

const (
	AuthAPIKey AuthKind = iota
	AuthBearerToken
)

// ResolvedAuth holds the resolved credentials and their kind.
type ResolvedAuth struct {
	Kind  AuthKind
	Value string
}

// ResolveAuth resolves the credentials for a provider.
// Resolution order: direct token, direct api_key, then the driver's default env var.
// Values may be literal, ${VAR} env references, or ENC[age:...] blobs encrypted
// with the local age key.
func ResolveAuth(cfg config.ProviderConfig) (ResolvedAuth, error) {
	token, err := resolveValue(cfg.Auth.Token)
	if err != nil {
		return ResolvedAuth{}, err
	}
	if token != "" {
		return ResolvedAuth{Kind: AuthBearerToken, Value: token}, nil
	}

	apiKey, err := resolveValue(cfg.Auth.APIKey)
	if err != nil {
		return ResolvedAuth{}, err
	}
	if apiKey != "" {
		return ResolvedAuth{Kind: AuthAPIKey, Value: apiKey}, nil
	}

	// Default env vars per driver
	switch strings.ToLower(cfg.Driver) {
	case "anthropic":
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			return ResolvedAuth{Kind: AuthAPIKey, Value: key}, nil
		}
		return ResolvedAuth{}, fmt.Errorf("ANTHROPIC_API_KEY not set")
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return ResolvedAuth{Kind: AuthAPIKey, Value: key}, nil
		}
		return ResolvedAuth{}, fmt.Errorf("OPENAI_API_KEY not set")
	default:
		return ResolvedAuth{}, fmt.Errorf("unknown driver %q: cannot resolve auth", cfg.Driver)
	}
}

func resolveValue(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		return os.Getenv(trimmed[2 : len(trimmed)-1]), nil
	}
	if secrets.IsEncrypted(trimmed) {
		identity, err := secrets.LoadIdentity(secrets.KeyPath())
		if err != nil {
			return "", fmt.Errorf("load age key: %w", err)
		}
		plain, err := secrets.Decrypt(trimmed, identity)
		if err != nil {
			return "", fmt.Errorf("decrypt credential: %w", err)
		}
		return plain, nil
	}
	return trimmed, nil
}
