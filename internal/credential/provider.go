// Package credential supplies the bearer token used for REST calls and the
// push channel handshake.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"notify_client/internal/config"
)

var ErrNoCredential = errors.New("no credential available")

type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

type Static struct {
	token string
}

func NewStatic(token string) *Static {
	return &Static{token: strings.TrimSpace(token)}
}

func (s *Static) Token(_ context.Context) (string, error) {
	if s.token == "" {
		return "", ErrNoCredential
	}
	return s.token, nil
}

// NewProvider picks the token source from config and wraps it in a cache.
func NewProvider(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	var source Provider
	switch cfg.CredentialSource {
	case "", config.CredentialEnv:
		source = NewStatic(cfg.AuthToken)
	case config.CredentialKeyring:
		ring, err := OpenKeyring(cfg.KeyringService, cfg.KeyringDir)
		if err != nil {
			logger.Error("keyring open failed", zap.String("service", cfg.KeyringService), zap.Error(err))
			return nil, err
		}
		source = NewKeyring(ring, cfg.KeyringKey)
	default:
		return nil, fmt.Errorf("unknown credential source %q", cfg.CredentialSource)
	}
	logger.Info("credential provider ready", zap.String("source", cfg.CredentialSource))
	return NewCached(source), nil
}
