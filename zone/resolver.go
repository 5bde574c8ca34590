package zone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"

	"CFPurge/cfclient"
	"CFPurge/metrics"
	"CFPurge/notify"
	"CFPurge/site"
)

// Resolution is the outcome of a zone lookup. Ready is true only when ZoneID is usable.
type Resolution struct {
	Domain    string
	ZoneID    string
	Ready     bool
	Cached    bool
	FetchedAt time.Time
}

type ResolverConfig struct {
	Client       cfclient.Client
	Cache        Cache
	CacheEnabled bool
	ServerName   site.ServerNameResolver
	Sink         notify.Sink
	Metrics      metrics.Recorder
	Logger       *zap.Logger
}

type Resolver struct {
	client       cfclient.Client
	cache        Cache
	cacheEnabled bool
	serverName   site.ServerNameResolver
	sink         notify.Sink
	metrics      metrics.Recorder
	logger       *zap.Logger
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: cloudflare client is required", cfclient.ErrConfiguration)
	}
	if cfg.CacheEnabled && cfg.Cache == nil {
		return nil, fmt.Errorf("%w: cache is required when caching is enabled", cfclient.ErrConfiguration)
	}

	r := &Resolver{
		client:       cfg.Client,
		cache:        cfg.Cache,
		cacheEnabled: cfg.CacheEnabled,
		serverName:   cfg.ServerName,
		sink:         cfg.Sink,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
	if r.sink == nil {
		r.sink = notify.Noop{}
	}
	if r.metrics == nil {
		r.metrics = metrics.Noop{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r, nil
}

// ResolveCurrent resolves the zone of the configured server name.
func (r *Resolver) ResolveCurrent(ctx context.Context) (Resolution, error) {
	if r.serverName == nil {
		return Resolution{}, fmt.Errorf("%w: no server name resolver configured", cfclient.ErrConfiguration)
	}
	return r.Resolve(ctx, r.serverName.ServerName())
}

// Resolve returns the zone id for domain, from the cache when enabled, otherwise from the API.
// Every failure is also reported to the notification sink.
func (r *Resolver) Resolve(ctx context.Context, domain string) (Resolution, error) {
	domain = site.NormalizeServerName(domain)
	res := Resolution{Domain: domain}

	if domain == "" {
		err := fmt.Errorf("%w: server name is empty", cfclient.ErrConfiguration)
		r.notify(ctx, "Unable to detect a Zone ID: the server name is not configured.")
		return res, err
	}
	if domain == "localhost" {
		r.notify(ctx, "This module does not operate under localhost. "+
			"Please ensure your website has a resolvable DNS and access the website via the domain.")
		return res, fmt.Errorf("%w: refusing to resolve localhost", cfclient.ErrConfiguration)
	}

	if r.cacheEnabled {
		if rec, ok := r.cached(ctx, domain); ok {
			r.metrics.RecordZoneLookup(metrics.SourceCache, metrics.OutcomeSuccess)
			return Resolution{
				Domain:    domain,
				ZoneID:    rec.ZoneID,
				Ready:     true,
				Cached:    true,
				FetchedAt: rec.FetchedAt,
			}, nil
		}
	}

	raw, err := r.client.ListZones(ctx, domain)
	if err != nil {
		r.metrics.RecordZoneLookup(metrics.SourceAPI, metrics.OutcomeFailure)
		r.logger.Error("Zone lookup request failed", zap.String("domain", domain), zap.Error(err))
		r.notify(ctx, fmt.Sprintf("Unable to detect a Zone ID for %s: %v", domain, err))
		return res, fmt.Errorf("zone lookup for %s failed: %w", domain, err)
	}

	zoneID, err := parseZoneID(raw)
	if err != nil {
		r.metrics.RecordZoneLookup(metrics.SourceAPI, metrics.OutcomeFailure)
		r.logger.Warn("No zone found", zap.String("domain", domain), zap.Error(err))
		r.notify(ctx, fmt.Sprintf("Unable to detect a Zone ID for %s under the defined CloudFlare user. "+
			"Please create a new zone under this account to use this module on this domain.", domain))
		return res, fmt.Errorf("%w: %s: %w", cfclient.ErrZoneNotFound, domain, err)
	}
	r.metrics.RecordZoneLookup(metrics.SourceAPI, metrics.OutcomeSuccess)

	rec := Record{Domain: domain, ZoneID: zoneID, FetchedAt: time.Now().UTC()}
	if r.cacheEnabled {
		r.store(ctx, rec)
	}

	r.logger.Debug("Resolved zone", zap.String("domain", domain), zap.String("zone_id", zoneID))

	return Resolution{
		Domain:    domain,
		ZoneID:    zoneID,
		Ready:     true,
		FetchedAt: rec.FetchedAt,
	}, nil
}

// Invalidate drops the cached record for domain so the next Resolve asks the API again.
func (r *Resolver) Invalidate(ctx context.Context, domain string) error {
	if r.cache == nil {
		return nil
	}
	domain = site.NormalizeServerName(domain)
	if err := r.cache.Delete(ctx, Key(domain)); err != nil {
		return fmt.Errorf("failed to invalidate zone for %s: %w", domain, err)
	}
	r.logger.Info("Zone cache invalidated", zap.String("domain", domain))
	return nil
}

// InvalidateCurrent invalidates the configured server name.
func (r *Resolver) InvalidateCurrent(ctx context.Context) error {
	if r.serverName == nil {
		return fmt.Errorf("%w: no server name resolver configured", cfclient.ErrConfiguration)
	}
	return r.Invalidate(ctx, r.serverName.ServerName())
}

func (r *Resolver) cached(ctx context.Context, domain string) (Record, bool) {
	value, ok, err := r.cache.Get(ctx, Key(domain))
	if err != nil {
		r.logger.Warn("Zone cache read failed, falling back to API", zap.String("domain", domain), zap.Error(err))
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}

	rec, err := decodeRecord(value)
	if err != nil || rec.ZoneID == "" || rec.Domain != domain {
		r.logger.Warn("Ignoring unusable cached zone record", zap.String("domain", domain), zap.Error(err))
		return Record{}, false
	}
	return rec, true
}

func (r *Resolver) store(ctx context.Context, rec Record) {
	value, err := rec.encode()
	if err == nil {
		err = r.cache.Set(ctx, Key(rec.Domain), value)
	}
	if err != nil {
		r.logger.Warn("Zone cache write failed", zap.String("domain", rec.Domain), zap.Error(err))
	}
}

func (r *Resolver) notify(ctx context.Context, message string) {
	if err := r.sink.Notify(ctx, message, notify.SeverityError); err != nil {
		r.logger.Warn("Failed to deliver notification", zap.Error(err))
	}
}

func parseZoneID(raw []byte) (string, error) {
	var resp cloudflare.ZonesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", cfclient.ErrMalformedResponse, err)
	}
	if len(resp.Result) == 0 {
		if len(resp.Errors) > 0 {
			return "", errors.New(resp.Errors[0].Message)
		}
		return "", errors.New("empty result")
	}
	if resp.Result[0].ID == "" {
		return "", errors.New("zone has no id")
	}
	return resp.Result[0].ID, nil
}
