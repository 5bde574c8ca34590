package cfclient

import (
	"context"
	"fmt"
	"net/http"

	"CFPurge/config"
)

// AuthHeaderProvider supplies the authentication headers for one request.
type AuthHeaderProvider interface {
	AuthHeaders(ctx context.Context) (http.Header, error)
}

// AuthHeaderFunc adapts a function to AuthHeaderProvider.
type AuthHeaderFunc func(ctx context.Context) (http.Header, error)

func (f AuthHeaderFunc) AuthHeaders(ctx context.Context) (http.Header, error) {
	return f(ctx)
}

// CredentialProvider is satisfied by config.CredentialSource.
type CredentialProvider interface {
	Credentials() (config.Credentials, error)
}

// CredentialHeaders turns freshly read credentials into X-Auth-Email/X-Auth-Key,
// or a bearer token when one is configured.
type CredentialHeaders struct {
	Source CredentialProvider
}

func (h CredentialHeaders) AuthHeaders(_ context.Context) (http.Header, error) {
	if h.Source == nil {
		return nil, fmt.Errorf("%w: no credential source", ErrConfiguration)
	}
	creds, err := h.Source.Credentials()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	header := http.Header{}
	if creds.Token != "" {
		header.Set("Authorization", "Bearer "+creds.Token)
		return header, nil
	}
	header.Set("X-Auth-Email", creds.Email)
	header.Set("X-Auth-Key", creds.Key)
	return header, nil
}
