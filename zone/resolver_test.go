package zone

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CFPurge/cfclient"
	"CFPurge/notify"
	"CFPurge/site"
)

type fakeClient struct {
	mu    sync.Mutex
	body  string
	err   error
	names []string
}

func (f *fakeClient) ListZones(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func (f *fakeClient) PurgeCache(context.Context, string, cloudflare.PurgeCacheRequest) ([]byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.names)
}

type notification struct {
	message  string
	severity notify.Severity
}

type recordingSink struct {
	mu   sync.Mutex
	sent []notification
}

func (s *recordingSink) Notify(_ context.Context, message string, severity notify.Severity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, notification{message: message, severity: severity})
	return nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, string) error { return errors.New("cache down") }
func (failingCache) Delete(context.Context, string) error      { return errors.New("cache down") }

const zonesBody = `{"success":true,"errors":[],"messages":[],"result":[{"id":"zone123","name":"example.com"}]}`

func newTestResolver(t *testing.T, client *fakeClient, cache Cache, enabled bool, sink notify.Sink) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverConfig{
		Client:       client,
		Cache:        cache,
		CacheEnabled: enabled,
		ServerName:   site.StaticServerName("example.com"),
		Sink:         sink,
	})
	require.NoError(t, err)
	return r
}

func TestResolveFromAPIAndCache(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{body: zonesBody}
	cache := NewMemoryCache(0)
	r := newTestResolver(t, client, cache, true, nil)

	res, err := r.Resolve(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "zone123", res.ZoneID)
	assert.True(t, res.Ready)
	assert.False(t, res.Cached)
	assert.Equal(t, []string{"example.com"}, client.names)

	value, ok, err := cache.Get(ctx, Key("example.com"))
	require.NoError(t, err)
	require.True(t, ok)
	rec, err := decodeRecord(value)
	require.NoError(t, err)
	assert.Equal(t, "example.com", rec.Domain)
	assert.Equal(t, "zone123", rec.ZoneID)

	res, err = r.Resolve(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "zone123", res.ZoneID)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, client.calls())
}

func TestResolvePrepopulatedCacheMakesNoRequest(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{body: zonesBody}
	cache := NewMemoryCache(0)
	value, err := Record{Domain: "example.com", ZoneID: "zone123", FetchedAt: time.Now()}.encode()
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, Key("example.com"), value))

	r := newTestResolver(t, client, cache, true, nil)
	res, err := r.ResolveCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "zone123", res.ZoneID)
	assert.True(t, res.Cached)
	assert.Zero(t, client.calls())
}

func TestResolveCacheDisabledAlwaysAsks(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{body: zonesBody}
	cache := NewMemoryCache(0)
	r := newTestResolver(t, client, cache, false, nil)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(ctx, "example.com")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, client.calls())

	_, ok, _ := cache.Get(ctx, Key("example.com"))
	assert.False(t, ok)
}

func TestResolveRecordsDoNotMixAcrossDomains(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{body: zonesBody}
	cache := NewMemoryCache(0)
	r := newTestResolver(t, client, cache, true, nil)

	_, err := r.Resolve(ctx, "example.com")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "example.org")
	require.NoError(t, err)

	assert.Equal(t, []string{"example.com", "example.org"}, client.names)
}

func TestResolveNormalizesDomain(t *testing.T) {
	client := &fakeClient{body: zonesBody}
	r := newTestResolver(t, client, NewMemoryCache(0), true, nil)

	res, err := r.Resolve(context.Background(), "https://www.Example.com/")
	require.NoError(t, err)
	assert.Equal(t, "example.com", res.Domain)
	assert.Equal(t, []string{"example.com"}, client.names)
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name      string
		domain    string
		body      string
		clientErr error
		wantErr   error
		wantCalls int
		wantText  string
	}{
		{
			name:      "localhost",
			domain:    "localhost",
			wantErr:   cfclient.ErrConfiguration,
			wantCalls: 0,
			wantText:  "localhost",
		},
		{
			name:      "empty server name",
			domain:    "",
			wantErr:   cfclient.ErrConfiguration,
			wantCalls: 0,
			wantText:  "server name",
		},
		{
			name:      "empty result",
			domain:    "example.com",
			body:      `{"success":true,"errors":[],"messages":[],"result":[]}`,
			wantErr:   cfclient.ErrZoneNotFound,
			wantCalls: 1,
			wantText:  "example.com",
		},
		{
			name:      "malformed json",
			domain:    "example.com",
			body:      `not json`,
			wantErr:   cfclient.ErrZoneNotFound,
			wantCalls: 1,
			wantText:  "example.com",
		},
		{
			name:      "provider error",
			domain:    "example.com",
			body:      `{"success":false,"errors":[{"code":9103,"message":"Unknown X-Auth-Key or X-Auth-Email"}],"messages":[],"result":null}`,
			wantErr:   cfclient.ErrZoneNotFound,
			wantCalls: 1,
			wantText:  "example.com",
		},
		{
			name:      "transport failure",
			domain:    "example.com",
			clientErr: cfclient.ErrTransport,
			wantErr:   cfclient.ErrTransport,
			wantCalls: 1,
			wantText:  "example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{body: tt.body, err: tt.clientErr}
			sink := &recordingSink{}
			cache := NewMemoryCache(0)
			r := newTestResolver(t, client, cache, true, sink)

			res, err := r.Resolve(context.Background(), tt.domain)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.False(t, res.Ready)
			assert.Empty(t, res.ZoneID)
			assert.Equal(t, tt.wantCalls, client.calls())

			require.Len(t, sink.sent, 1)
			assert.Equal(t, notify.SeverityError, sink.sent[0].severity)
			assert.Contains(t, sink.sent[0].message, tt.wantText)

			_, ok, _ := cache.Get(context.Background(), Key(tt.domain))
			assert.False(t, ok)
		})
	}
}

func TestResolveFallsBackWhenCacheFails(t *testing.T) {
	client := &fakeClient{body: zonesBody}
	r := newTestResolver(t, client, failingCache{}, true, nil)

	res, err := r.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "zone123", res.ZoneID)
	assert.Equal(t, 1, client.calls())
}

func TestResolveIgnoresForeignCachedRecord(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{body: zonesBody}
	cache := NewMemoryCache(0)
	value, err := Record{Domain: "other.com", ZoneID: "zone999"}.encode()
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, Key("example.com"), value))

	r := newTestResolver(t, client, cache, true, nil)
	res, err := r.Resolve(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "zone123", res.ZoneID)
	assert.Equal(t, 1, client.calls())
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{body: zonesBody}
	cache := NewMemoryCache(0)
	r := newTestResolver(t, client, cache, true, nil)

	_, err := r.Resolve(ctx, "example.com")
	require.NoError(t, err)
	require.NoError(t, r.InvalidateCurrent(ctx))

	_, ok, _ := cache.Get(ctx, Key("example.com"))
	assert.False(t, ok)

	_, err = r.Resolve(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls())
}

func TestRedisBackedResolver(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupRedisCache(t, 0)
	client := &fakeClient{body: zonesBody}
	r := newTestResolver(t, client, cache, true, nil)

	_, err := r.Resolve(ctx, "example.com")
	require.NoError(t, err)
	assert.True(t, mr.Exists(Key("example.com")))

	other := newTestResolver(t, client, cache, true, nil)
	res, err := other.Resolve(ctx, "example.com")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, client.calls())
}

func TestNewResolverValidation(t *testing.T) {
	_, err := NewResolver(ResolverConfig{})
	assert.ErrorIs(t, err, cfclient.ErrConfiguration)

	_, err = NewResolver(ResolverConfig{Client: &fakeClient{}, CacheEnabled: true})
	assert.ErrorIs(t, err, cfclient.ErrConfiguration)
}
