package purge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CFPurge/cfclient"
	"CFPurge/config"
	"CFPurge/site"
)

type fakeLister struct {
	files   []string
	err     error
	gotExts []string
}

func (f *fakeLister) FindFiles(_ context.Context, extensions []string) ([]string, error) {
	f.gotExts = extensions
	return f.files, f.err
}

func newTestExpander(t *testing.T, cfg ExpanderConfig) *Expander {
	t.Helper()
	if cfg.ServerName == nil {
		cfg.ServerName = site.StaticServerName("example.com")
	}
	if cfg.DocumentRoot == "" {
		cfg.DocumentRoot = "/var/www/html"
	}
	e, err := NewExpander(cfg)
	require.NoError(t, err)
	return e
}

func TestExpandPaths(t *testing.T) {
	e := newTestExpander(t, ExpanderConfig{})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "document root path", input: "/var/www/html/path/to/file.js", want: "http://example.com/path/to/file.js"},
		{name: "https url", input: "https://example.com/about", want: "http://example.com/about"},
		{name: "http url", input: "http://example.com/about", want: "http://example.com/about"},
		{name: "bare host path", input: "example.com/about", want: "http://example.com/about"},
		{name: "www host kept", input: "https://www.example.com/about", want: "http://www.example.com/about"},
		{name: "relative path", input: "assets/site.css", want: "http://example.com/assets/site.css"},
		{name: "absolute path outside root", input: "/assets/site.css", want: "http://example.com/assets/site.css"},
		{name: "repeated slashes", input: "/var/www/html//assets///site.css", want: "http://example.com/assets/site.css"},
		{name: "query kept", input: "https://example.com/search?q=a//b", want: "http://example.com/search?q=a//b"},
		{name: "host only", input: "https://example.com", want: "http://example.com/"},
		{name: "surrounding space", input: "  /about  ", want: "http://example.com/about"},
		{name: "foreign host treated as path", input: "https://cdn.other.com/x.js", want: "http://example.com/cdn.other.com/x.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExpandPaths([]string{tt.input})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, got)
		})
	}
}

func TestExpandPathsIsIdempotent(t *testing.T) {
	e := newTestExpander(t, ExpanderConfig{})
	inputs := []string{"/var/www/html/a.css", "https://example.com/about", "b//c.js"}

	first, err := e.ExpandPaths(inputs)
	require.NoError(t, err)
	second, err := e.ExpandPaths(first)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, u := range first {
		assert.Regexp(t, `^http://example\.com/`, u)
	}
}

func TestExpandPathsPreservesOrderAndEmpty(t *testing.T) {
	e := newTestExpander(t, ExpanderConfig{})

	got, err := e.ExpandPaths([]string{"/c", "", "/a", "/b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.com/c", "http://example.com/a", "http://example.com/b"}, got)

	got, err = e.ExpandPaths(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandPathsVariants(t *testing.T) {
	tests := []struct {
		name     string
		variants config.Variants
		input    string
		want     []string
	}{
		{
			name:     "https",
			variants: config.Variants{HTTPS: true},
			input:    "/a.css",
			want:     []string{"http://example.com/a.css", "https://example.com/a.css"},
		},
		{
			name:     "www",
			variants: config.Variants{WWW: true},
			input:    "/a.css",
			want:     []string{"http://example.com/a.css", "http://www.example.com/a.css"},
		},
		{
			name:     "both",
			variants: config.Variants{HTTPS: true, WWW: true},
			input:    "/a.css",
			want: []string{
				"http://example.com/a.css",
				"https://example.com/a.css",
				"http://www.example.com/a.css",
				"https://www.example.com/a.css",
			},
		},
		{
			name:     "www not added to sub-domain",
			variants: config.Variants{WWW: true},
			input:    "http://shop.example.com/a.css",
			want:     []string{"http://shop.example.com/a.css"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExpander(t, ExpanderConfig{Variants: tt.variants})
			got, err := e.ExpandPaths([]string{tt.input})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandServerNameFromResolver(t *testing.T) {
	name := "first.test"
	e := newTestExpander(t, ExpanderConfig{
		ServerName: site.ServerNameFunc(func() string { return name }),
	})

	got, err := e.Expand(context.Background(), SingleFile("/x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://first.test/x"}, got)

	name = "https://www.second.test"
	got, err = e.Expand(context.Background(), SingleFile("/x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://second.test/x"}, got)

	name = ""
	_, err = e.Expand(context.Background(), SingleFile("/x"))
	assert.ErrorIs(t, err, cfclient.ErrConfiguration)
}

func TestExpandPage(t *testing.T) {
	e := newTestExpander(t, ExpanderConfig{
		Pages: site.PageMap{"7": "https://example.com/contact-us"},
	})

	got, err := e.Expand(context.Background(), Page("7"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.com/contact-us"}, got)

	_, err = e.Expand(context.Background(), Page("8"))
	assert.ErrorIs(t, err, site.ErrPageNotFound)

	noPages := newTestExpander(t, ExpanderConfig{})
	_, err = noPages.Expand(context.Background(), Page("7"))
	assert.ErrorIs(t, err, cfclient.ErrConfiguration)
}

func TestExpandCategories(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		wantExts []string
	}{
		{name: "css", target: CSS(), wantExts: []string{"css"}},
		{name: "javascript", target: JavaScript(), wantExts: []string{"js"}},
		{name: "images", target: Images(), wantExts: []string{"jpg", "jpeg", "png", "gif", "svg", "webp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{files: []string{"/var/www/html/b/x", "/var/www/html/a/y"}}
			e := newTestExpander(t, ExpanderConfig{Files: lister})

			got, err := e.Expand(context.Background(), tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExts, lister.gotExts)
			assert.Equal(t, []string{"http://example.com/b/x", "http://example.com/a/y"}, got)
		})
	}
}

func TestExpandCategoryErrors(t *testing.T) {
	lister := &fakeLister{err: errors.New("disk gone")}
	e := newTestExpander(t, ExpanderConfig{Files: lister})
	_, err := e.Expand(context.Background(), CSS())
	assert.ErrorContains(t, err, "disk gone")

	noFiles := newTestExpander(t, ExpanderConfig{})
	_, err = noFiles.Expand(context.Background(), Images())
	assert.ErrorIs(t, err, cfclient.ErrConfiguration)
}

func TestExpandAllHasNoURLs(t *testing.T) {
	e := newTestExpander(t, ExpanderConfig{})
	got, err := e.Expand(context.Background(), All())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewExpanderRequiresServerName(t *testing.T) {
	_, err := NewExpander(ExpanderConfig{})
	assert.ErrorIs(t, err, cfclient.ErrConfiguration)
}

func TestTargetConstructors(t *testing.T) {
	paths := []string{"/a", "/b"}
	many := ManyFiles(paths...)
	paths[0] = "/changed"

	assert.Equal(t, KindManyFiles, many.Kind())
	assert.Equal(t, []string{"/a", "/b"}, many.Paths())

	got := many.Paths()
	got[1] = "/changed"
	assert.Equal(t, []string{"/a", "/b"}, many.Paths())

	assert.Equal(t, KindSingleFile, SingleFile("/a").Kind())
	assert.Equal(t, "42", Page("42").PageID())
	assert.Equal(t, "all", All().Kind().String())
	assert.Equal(t, "images", Images().Kind().String())
}
