// Package secret retrieves credentials from a secret store behind one small
// interface, keeping the rest of the program unaware of where secrets live.
package secret

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"bilisum/pkg/bilisum"
)

// KeyVaultProvider reads secrets from one Azure Key Vault.
//
// Authentication goes through the default credential chain, which covers
// local CLI logins in development and managed identity in production.
type KeyVaultProvider struct {
	client keyVaultClient
}

type keyVaultClient interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// NewKeyVaultProvider creates a Key Vault secret provider for one vault URL.
func NewKeyVaultProvider(vaultURL string) (*KeyVaultProvider, error) {
	trimmed := strings.TrimSpace(vaultURL)
	if trimmed == "" {
		return nil, fmt.Errorf("new key vault provider: missing vault url")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("new key vault provider: default credential: %w", err)
	}

	client, err := azsecrets.NewClient(trimmed, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("new key vault provider: new client: %w", err)
	}

	return &KeyVaultProvider{client: client}, nil
}

// GetSecret returns the latest version of the named secret. An empty stored
// value is an error: every secret this program reads is a credential that
// must be present.
func (p *KeyVaultProvider) GetSecret(ctx context.Context, name string) (string, error) {
	if p == nil || p.client == nil {
		return "", fmt.Errorf("get secret %s: nil provider", name)
	}

	response, err := p.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if response.Value == nil || *response.Value == "" {
		return "", fmt.Errorf("get secret %s: empty value", name)
	}

	return *response.Value, nil
}

var _ bilisum.SecretProvider = (*KeyVaultProvider)(nil)
