package site

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// FSLister walks the document root on disk.
type FSLister struct {
	root    string
	exclude []glob.Glob
	logger  *zap.Logger
}

// NewFSLister compiles the exclude patterns, which are matched against slash-separated
// paths relative to root (e.g. "node_modules/**").
func NewFSLister(root string, exclude []string, logger *zap.Logger) (*FSLister, error) {
	if root == "" {
		return nil, fmt.Errorf("document root is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &FSLister{root: filepath.Clean(root), logger: logger}
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		l.exclude = append(l.exclude, g)
	}
	return l, nil
}

// FindFiles returns every file under root whose extension is in extensions,
// case-insensitively, in lexical walk order.
func (l *FSLister) FindFiles(ctx context.Context, extensions []string) ([]string, error) {
	match, err := extensionGlob(extensions)
	if err != nil {
		return nil, err
	}

	var out []string
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if l.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if match.Match(strings.ToLower(rel)) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files under %s: %w", l.root, err)
	}

	l.logger.Debug("Listed files by extension",
		zap.String("root", l.root),
		zap.Strings("extensions", extensions),
		zap.Int("count", len(out)))
	return out, nil
}

func (l *FSLister) excluded(rel string) bool {
	for _, g := range l.exclude {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func extensionGlob(extensions []string) (glob.Glob, error) {
	var exts []string
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		return nil, fmt.Errorf("at least one extension is required")
	}

	pattern := "**." + exts[0]
	if len(exts) > 1 {
		pattern = "**.{" + strings.Join(exts, ",") + "}"
	}
	return glob.Compile(pattern, '/')
}
