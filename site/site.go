// Package site holds the collaborators the purge pipeline asks about the website:
// its public host name, its published pages and the static files under its document root.
package site

import (
	"context"
	"errors"
	"strings"
)

// ErrPageNotFound is returned when a page id has no published URL.
var ErrPageNotFound = errors.New("page not found")

// ServerNameResolver reports the host the site is served from.
type ServerNameResolver interface {
	ServerName() string
}

// StaticServerName is a host name fixed at startup.
type StaticServerName string

func (s StaticServerName) ServerName() string {
	return NormalizeServerName(string(s))
}

// ServerNameFunc adapts a function to ServerNameResolver.
type ServerNameFunc func() string

func (f ServerNameFunc) ServerName() string {
	return NormalizeServerName(f())
}

// NormalizeServerName strips the scheme, a leading "www." and any trailing slash.
func NormalizeServerName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "http://")
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "www.")
	return strings.TrimRight(name, "/")
}

// PageLookup resolves a page identifier to the URL it is published under.
type PageLookup interface {
	PageURL(ctx context.Context, id string) (string, error)
}

// PageMap is an in-memory PageLookup keyed by page id.
type PageMap map[string]string

func (m PageMap) PageURL(_ context.Context, id string) (string, error) {
	link, ok := m[strings.TrimSpace(id)]
	if !ok || link == "" {
		return "", ErrPageNotFound
	}
	return link, nil
}

// FileLister finds files below the document root by extension.
type FileLister interface {
	FindFiles(ctx context.Context, extensions []string) ([]string, error)
}
