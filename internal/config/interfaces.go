package config

import "context"

// SecretProvider resolves secret references to plaintext. SSMProvider serves
// deployed environments; EnvVarProvider serves local runs and tests.
type SecretProvider interface {
	// GetParametersBatch returns a value for every key it could resolve.
	// Keys it could not resolve are omitted rather than reported as errors.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
