package report

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/webscrape/internal/model"
)

// ErrInvalidFolderName is returned for result folder names that would
// escape the destination directory.
var ErrInvalidFolderName = errors.New("invalid result folder name")

// FolderName returns the default result folder for seed: its host, with
// the port separator replaced so the name is valid on every platform.
func FolderName(seed string) string {
	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return "scrape"
	}
	return strings.ReplaceAll(strings.ToLower(u.Host), ":", "_")
}

// PrepareOutput creates <dest>/<name> and the media folders enabled by
// opts, and returns the run folder path. The crawl must not start when it
// fails.
func PrepareOutput(dest, name string, opts model.CrawlOptions) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFolderName, name)
	}

	dir := filepath.Join(dest, name)
	if err := os.MkdirAll(dir, folderPermission); err != nil {
		return "", fmt.Errorf("failed to create result folder: %w", err)
	}

	for kind, enabled := range map[model.MediaKind]bool{
		model.MediaImage: opts.DownloadImages,
		model.MediaVideo: opts.DownloadVideos,
	} {
		if !enabled {
			continue
		}
		if err := os.MkdirAll(filepath.Join(dir, kind.Dir()), folderPermission); err != nil {
			return "", fmt.Errorf("failed to create %s folder: %w", kind, err)
		}
	}
	return dir, nil
}
