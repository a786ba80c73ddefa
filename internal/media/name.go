package media

import (
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/nao1215/webscrape/internal/model"
)

// allowedExtension returns the allow-listed extension rawURL ends with,
// compared on the Unicode case folding of the whole address. A Caser
// holds state, so each call builds its own.
func allowedExtension(rawURL string, kind model.MediaKind) (string, bool) {
	folded := cases.Fold().String(rawURL)
	for _, ext := range kind.Extensions() {
		if strings.HasSuffix(folded, ext) {
			return ext, true
		}
	}
	return "", false
}

// baseName is the last path segment of rawURL, or "" when the path has none.
func baseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	switch name {
	case ".", "/", "..":
		return ""
	}
	return name
}

// syntheticName builds "<kind>_<YYYYMMDDhhmmssffffff><ext>".
func syntheticName(kind model.MediaKind, ext string, now time.Time) string {
	if ext == "" {
		ext = "." + kind.String()
	}
	stamp := now.Format("20060102150405.000000")
	return kind.String() + "_" + strings.Replace(stamp, ".", "", 1) + ext
}
