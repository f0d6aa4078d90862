package secret

import (
	"context"
	"fmt"
	"strings"

	"bilisum/pkg/bilisum"
)

// EnvProvider reads secrets from the process environment, for local runs
// without a vault. Secret names are mapped to environment variable names by
// uppercasing and replacing the "--" separator and dashes with underscores,
// so "Bili--Sessdata" resolves from BILI_SESSDATA.
type EnvProvider struct {
	lookup func(key string) (string, bool)
}

// NewEnvProvider creates an environment-backed secret provider.
func NewEnvProvider(lookup func(key string) (string, bool)) *EnvProvider {
	return &EnvProvider{lookup: lookup}
}

// GetSecret returns the environment value mapped from the secret name.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	if p == nil || p.lookup == nil {
		return "", fmt.Errorf("get secret %s: nil provider", name)
	}

	key := EnvKey(name)
	value, exists := p.lookup(key)
	if !exists || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("get secret %s: environment variable %s is not set", name, key)
	}

	return value, nil
}

// EnvKey maps a vault-style secret name to its environment variable name.
func EnvKey(name string) string {
	key := strings.ReplaceAll(name, "--", "_")
	key = strings.ReplaceAll(key, "-", "_")

	return strings.ToUpper(key)
}

var _ bilisum.SecretProvider = (*EnvProvider)(nil)
