package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// ErrMissingCredentials is returned when the environment holds no usable Cloudflare credentials.
var ErrMissingCredentials = errors.New("cloudflare API credentials have not been provided")

// Credentials authenticate against the Cloudflare API. Either Email+Key or Token is set.
type Credentials struct {
	Email string
	Key   string
	Token string
}

// String keeps secrets out of logs and error messages.
func (c Credentials) String() string {
	switch {
	case c.Token != "":
		return "Credentials{Token: [redacted]}"
	case c.Email != "":
		return fmt.Sprintf("Credentials{Email: %s, Key: [redacted]}", c.Email)
	default:
		return "Credentials{}"
	}
}

type productionEnv struct {
	Email string `envconfig:"CLOUDFLARE_AUTH_EMAIL"`
	Key   string `envconfig:"CLOUDFLARE_AUTH_KEY"`
	Token string `envconfig:"CLOUDFLARE_API_TOKEN"`
}

type testEnv struct {
	Email     string `envconfig:"AUTH_EMAIL"`
	Key       string `envconfig:"AUTH_KEY"`
	DummySite string `envconfig:"CLOUDFLARE_DUMMY_SITE"`
}

// CredentialSource reads credentials from the process environment on every call,
// so rotated secrets are picked up without a restart and nothing is cached.
type CredentialSource struct {
	Profile Profile
}

func (s CredentialSource) Credentials() (Credentials, error) {
	if s.Profile == ProfileTest {
		var env testEnv
		if err := envconfig.Process("", &env); err != nil {
			return Credentials{}, fmt.Errorf("failed to read test credentials: %w", err)
		}
		if env.Email == "" || env.Key == "" {
			return Credentials{}, fmt.Errorf("%w: AUTH_EMAIL and AUTH_KEY are required in the test profile", ErrMissingCredentials)
		}
		return Credentials{Email: env.Email, Key: env.Key}, nil
	}

	var env productionEnv
	if err := envconfig.Process("", &env); err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	if env.Token != "" {
		return Credentials{Token: env.Token}, nil
	}
	if env.Email == "" || env.Key == "" {
		return Credentials{}, fmt.Errorf("%w: set CLOUDFLARE_AUTH_EMAIL and CLOUDFLARE_AUTH_KEY", ErrMissingCredentials)
	}
	return Credentials{Email: env.Email, Key: env.Key}, nil
}

// DummySite returns CLOUDFLARE_DUMMY_SITE, the server name used by the test profile.
func DummySite() (string, error) {
	var env testEnv
	if err := envconfig.Process("", &env); err != nil {
		return "", fmt.Errorf("failed to read CLOUDFLARE_DUMMY_SITE: %w", err)
	}
	return env.DummySite, nil
}

// ServerName resolves the site name once at startup: the configured name, or
// CLOUDFLARE_DUMMY_SITE when running under the test profile.
func (c *Config) ServerName() (string, error) {
	if c.Profile != ProfileTest {
		return c.Site.ServerName, nil
	}
	site, err := DummySite()
	if err != nil {
		return "", err
	}
	if site == "" {
		return c.Site.ServerName, nil
	}
	return site, nil
}
