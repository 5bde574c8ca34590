package site

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// PageEntry is one line of a pages file: id|url|title.
type PageEntry struct {
	ID    string
	URL   string
	Title string
}

// FilePageRepository reads published page URLs from a pipe-separated file that the CMS exports.
type FilePageRepository struct {
	path string
}

func NewFilePageRepository(path string) *FilePageRepository {
	return &FilePageRepository{path: path}
}

// LoadPages reads the file, one page per line; blank lines and lines starting with # are skipped.
func (r *FilePageRepository) LoadPages() ([]PageEntry, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pages file %s: %w", r.path, err)
	}
	defer file.Close()

	var out []PageEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}
		id := strings.TrimSpace(parts[0])
		link := strings.TrimSpace(parts[1])
		if id == "" || link == "" {
			continue
		}

		title := ""
		if len(parts) >= 3 {
			title = strings.TrimSpace(parts[2])
		}
		out = append(out, PageEntry{ID: id, URL: link, Title: title})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pages file %s: %w", r.path, err)
	}
	return out, nil
}

// PageURL re-reads the file on every call so a fresh CMS export is picked up without a restart.
func (r *FilePageRepository) PageURL(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pages, err := r.LoadPages()
	if err != nil {
		return "", err
	}
	id = strings.TrimSpace(id)
	for _, p := range pages {
		if p.ID == id {
			return p.URL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPageNotFound, id)
}
