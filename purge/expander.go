package purge

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"CFPurge/cfclient"
	"CFPurge/config"
	"CFPurge/site"
)

type ExpanderConfig struct {
	ServerName   site.ServerNameResolver
	DocumentRoot string
	Pages        site.PageLookup
	Files        site.FileLister
	Variants     config.Variants
}

// Expander turns targets into absolute URLs on the site's host.
type Expander struct {
	serverName   site.ServerNameResolver
	documentRoot string
	pages        site.PageLookup
	files        site.FileLister
	variants     config.Variants
}

func NewExpander(cfg ExpanderConfig) (*Expander, error) {
	if cfg.ServerName == nil {
		return nil, fmt.Errorf("%w: server name resolver is required", cfclient.ErrConfiguration)
	}

	root := ""
	if cfg.DocumentRoot != "" {
		root = filepath.ToSlash(filepath.Clean(cfg.DocumentRoot))
	}
	return &Expander{
		serverName:   cfg.ServerName,
		documentRoot: root,
		pages:        cfg.Pages,
		files:        cfg.Files,
		variants:     cfg.Variants,
	}, nil
}

// Expand returns the URLs for t in input order. All has no URLs and yields nil.
func (e *Expander) Expand(ctx context.Context, t Target) ([]string, error) {
	switch t.kind {
	case KindSingleFile, KindManyFiles:
		return e.ExpandPaths(t.paths)

	case KindPage:
		if e.pages == nil {
			return nil, fmt.Errorf("%w: no page lookup configured", cfclient.ErrConfiguration)
		}
		link, err := e.pages.PageURL(ctx, t.pageID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up page %s: %w", t.pageID, err)
		}
		return e.ExpandPaths([]string{link})

	case KindCSS, KindJavaScript, KindImages:
		if e.files == nil {
			return nil, fmt.Errorf("%w: no file lister configured", cfclient.ErrConfiguration)
		}
		paths, err := e.files.FindFiles(ctx, t.extensions())
		if err != nil {
			return nil, fmt.Errorf("failed to list %s files: %w", t.kind, err)
		}
		return e.ExpandPaths(paths)

	case KindAll:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown target kind %d", t.kind)
	}
}

// ExpandPaths qualifies each path or URL against the current server name.
func (e *Expander) ExpandPaths(paths []string) ([]string, error) {
	server := e.serverName.ServerName()
	if server == "" {
		return nil, fmt.Errorf("%w: server name is empty", cfclient.ErrConfiguration)
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, e.qualify(server, p)...)
	}
	return out, nil
}

func (e *Expander) qualify(server, input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	host, path := server, ""
	switch {
	case e.underDocumentRoot(input):
		path = strings.TrimPrefix(filepath.ToSlash(input), e.documentRoot)
	default:
		rest := stripScheme(input)
		if h, p, ok := splitSiteHost(rest, server); ok {
			host, path = h, p
		} else {
			path = rest
		}
	}
	path = collapseSlashes("/" + path)

	urls := []string{"http://" + host + path}
	if e.variants.HTTPS {
		urls = append(urls, "https://"+host+path)
	}
	if e.variants.WWW && host == server {
		urls = append(urls, "http://www."+host+path)
		if e.variants.HTTPS {
			urls = append(urls, "https://www."+host+path)
		}
	}
	return urls
}

func (e *Expander) underDocumentRoot(input string) bool {
	if e.documentRoot == "" || e.documentRoot == "/" {
		return false
	}
	input = filepath.ToSlash(input)
	return input == e.documentRoot || strings.HasPrefix(input, e.documentRoot+"/")
}

func stripScheme(input string) string {
	lower := strings.ToLower(input)
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, scheme) {
			return input[len(scheme):]
		}
	}
	return input
}

// splitSiteHost splits rest into host and path when its host is server or a sub-domain of it.
func splitSiteHost(rest, server string) (string, string, bool) {
	host, path := rest, ""
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		host, path = rest[:i], rest[i:]
	}
	host = strings.ToLower(host)
	if host == server || strings.HasSuffix(host, "."+server) {
		return host, path, true
	}
	return "", "", false
}

// collapseSlashes squeezes repeated slashes in the path part, leaving any query untouched.
func collapseSlashes(path string) string {
	query := ""
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path, query = path[:i], path[i:]
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path + query
}
