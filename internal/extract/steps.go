package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/webscrape/internal/model"
)

var (
	titleSel       = cascadia.MustCompile("title")
	descriptionSel = cascadia.MustCompile(`meta[name="description"]`)
	keywordsSel    = cascadia.MustCompile(`meta[name="keywords"]`)
	anchorSel      = cascadia.MustCompile("a[href]")
	imageSel       = cascadia.MustCompile("img[src]")
	videoSel       = cascadia.MustCompile("video")
	sourceSel      = cascadia.MustCompile("source[src]")
)

// errNoDocument is reported when a step is handed an empty page.
var errNoDocument = errors.New("no document")

// PageMetadata is the head metadata of a page. Missing values are empty
// strings so every record with metadata has all three columns.
type PageMetadata struct {
	Title       string
	Description string
	Keywords    string
}

// Metadata reads <title> and the description/keywords meta tags.
func Metadata(p *Page) StepResult[PageMetadata] {
	if p == nil || p.Doc == nil {
		return degrade(PageMetadata{}, errNoDocument)
	}
	return succeed(PageMetadata{
		Title:       strings.TrimSpace(p.Doc.FindMatcher(titleSel).First().Text()),
		Description: metaContent(p.Doc, descriptionSel),
		Keywords:    metaContent(p.Doc, keywordsSel),
	})
}

func metaContent(doc *goquery.Document, sel cascadia.Selector) string {
	return strings.TrimSpace(doc.FindMatcher(sel).First().AttrOr("content", ""))
}

// Text flattens the visible text of the page: every text node outside
// <script> and <style>, trimmed, empty ones dropped, joined by newlines.
func Text(p *Page) StepResult[string] {
	if p == nil || p.Doc == nil {
		return degrade("", errNoDocument)
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range p.Doc.Nodes {
		walk(n)
	}
	return succeed(strings.Join(parts, "\n"))
}

// Links resolves every <a href> against the page address and keeps the
// http and https results in document order. Unparsable references are
// skipped and reported in the error; the value still holds the rest.
func Links(p *Page) StepResult[[]string] {
	links := make([]string, 0)
	if p == nil || p.Doc == nil {
		return degrade(links, errNoDocument)
	}

	var errs []error
	p.Doc.FindMatcher(anchorSel).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := Resolve(p.URL, href)
		if err != nil {
			errs = append(errs, err)
			return
		}
		if !IsHTTP(u) {
			return
		}
		links = append(links, u.String())
	})
	return StepResult[[]string]{Value: links, Err: errors.Join(errs...)}
}

// Media collects image and video references. Images come from <img src>;
// a <video> contributes each <source src> child, or its own src when it
// has no sources. Only absolute http(s) references are returned.
func Media(p *Page, images, videos bool) StepResult[[]model.MediaReference] {
	refs := make([]model.MediaReference, 0)
	if p == nil || p.Doc == nil {
		return degrade(refs, errNoDocument)
	}

	var errs []error
	add := func(raw string, kind model.MediaKind) {
		u, err := Resolve(p.URL, raw)
		if err != nil {
			errs = append(errs, err)
			return
		}
		if !IsHTTP(u) {
			return
		}
		refs = append(refs, model.MediaReference{URL: u.String(), Kind: kind})
	}

	if images {
		p.Doc.FindMatcher(imageSel).Each(func(_ int, s *goquery.Selection) {
			add(s.AttrOr("src", ""), model.MediaImage)
		})
	}

	if videos {
		p.Doc.FindMatcher(videoSel).Each(func(_ int, v *goquery.Selection) {
			sources := v.FindMatcher(sourceSel)
			if sources.Length() > 0 {
				sources.Each(func(_ int, s *goquery.Selection) {
					add(s.AttrOr("src", ""), model.MediaVideo)
				})
				return
			}
			if src := v.AttrOr("src", ""); src != "" {
				add(src, model.MediaVideo)
			}
		})
	}

	return StepResult[[]model.MediaReference]{Value: refs, Err: errors.Join(errs...)}
}

// Resolve turns ref into an absolute URL relative to base.
func Resolve(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %q: %w", ref, err)
	}
	if base == nil {
		return u, nil
	}
	return base.ResolveReference(u), nil
}

// IsHTTP reports whether u uses the http or https scheme.
func IsHTTP(u *url.URL) bool {
	return u != nil && (u.Scheme == "http" || u.Scheme == "https")
}
