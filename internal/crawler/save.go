package crawler

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

const filePermission = 0o640

var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// pageSlug turns the URL path into a flat file stem: slashes become
// underscores and the root page is "index".
func pageSlug(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "index"
	}
	slug := strings.ReplaceAll(strings.Trim(u.Path, "/"), "/", "_")
	if slug == "" {
		return "index"
	}
	return slug
}

// snapshotName is "<slug>_<HHMMSS><ext>".
func snapshotName(pageURL, ext string, now time.Time) string {
	return pageSlug(pageURL) + "_" + now.Format("150405") + ext
}

// writeSnapshot creates a new file named after the page in dir. When the
// second-resolution name is taken, a microsecond suffix is added.
func writeSnapshot(dir, pageURL, ext string, now time.Time, data []byte) (string, error) {
	name := snapshotName(pageURL, ext, now)
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermission)
	if errors.Is(err, fs.ErrExist) {
		name = strings.TrimSuffix(name, ext) + "_" + strings.TrimPrefix(now.Format(".000000"), ".") + ext
		f, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermission)
	}
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(filepath.Join(dir, name))
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// toMarkdown converts a page to Markdown, resolving links against the
// page's origin.
func toMarkdown(pageURL string, body []byte) ([]byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	md, err := markdownConverter.ConvertString(string(body), converter.WithDomain(u.Scheme+"://"+u.Host))
	if err != nil {
		return nil, fmt.Errorf("markdown conversion: %w", err)
	}
	return []byte(md), nil
}
