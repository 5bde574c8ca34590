package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"CFPurge/cfclient"
	"CFPurge/zone"
)

var ErrMissingDependencies = errors.New("missing dependencies")

// ZoneResolver is satisfied by *zone.Resolver.
type ZoneResolver interface {
	ResolveCurrent(ctx context.Context) (zone.Resolution, error)
}

// Readiness is what the startup check found.
type Readiness struct {
	CredentialsOK bool
	Zone          zone.Resolution
	Err           error
}

func (r Readiness) Ready() bool {
	return r.CredentialsOK && r.Zone.Ready && r.Err == nil
}

// ReadinessChecker verifies at startup that credentials are present and the site's zone resolves,
// so a misconfiguration is reported before the first purge is attempted.
type ReadinessChecker struct {
	Credentials cfclient.CredentialProvider
	Zones       ZoneResolver
	Logger      *zap.Logger
}

func (c *ReadinessChecker) Check(ctx context.Context) (Readiness, error) {
	if c.Credentials == nil || c.Zones == nil {
		return Readiness{}, ErrMissingDependencies
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var out Readiness
	if _, err := c.Credentials.Credentials(); err != nil {
		out.Err = fmt.Errorf("%w: %w", cfclient.ErrConfiguration, err)
		logger.Warn("Cloudflare credentials missing", zap.Error(err))
		return out, nil
	}
	out.CredentialsOK = true

	res, err := c.Zones.ResolveCurrent(ctx)
	out.Zone = res
	if err != nil {
		out.Err = err
		logger.Warn("Zone lookup failed at startup", zap.String("domain", res.Domain), zap.Error(err))
		return out, nil
	}

	logger.Info("Ready to purge",
		zap.String("domain", res.Domain),
		zap.String("zone_id", res.ZoneID),
		zap.Bool("cached", res.Cached))
	return out, nil
}
