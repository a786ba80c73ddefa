package extract

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/webscrape/internal/model"
)

// ErrInvalidPageURL is returned when the page address cannot be parsed.
var ErrInvalidPageURL = errors.New("invalid page URL")

// Result is everything extracted from one page.
type Result struct {
	// Record is the exported page record. Only fields whose option is
	// enabled are set.
	Record model.PageRecord

	// Candidates are the resolved http(s) anchor targets in document
	// order, computed whether or not links are exported.
	Candidates []string

	// Media are the resolved image and video references to download.
	Media []model.MediaReference

	// Problems lists steps that failed or partially failed.
	Problems []StepError
}

// Pipeline runs the extraction steps selected by a CrawlOptions.
// It holds no per-page state and is safe for concurrent use.
type Pipeline struct {
	opts model.CrawlOptions
}

// New creates a Pipeline for the given options.
func New(opts model.CrawlOptions) *Pipeline {
	return &Pipeline{opts: opts}
}

// Page is a parsed HTML document together with the address used to resolve
// its relative references.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

// Parse reads an HTML document. The x/net/html parser accepts malformed
// markup, so an error here means the body could not be read.
func Parse(pageURL *url.URL, body io.Reader) (*Page, error) {
	root, err := html.Parse(body)
	if err != nil {
		return nil, err
	}
	return &Page{URL: pageURL, Doc: goquery.NewDocumentFromNode(root)}, nil
}

// Extract parses body and runs every enabled step. The returned error is
// non-nil only for an unusable page address; any other failure degrades
// the affected fields and is listed in Result.Problems.
func (p *Pipeline) Extract(pageURL string, body io.Reader) (*Result, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPageURL, err)
	}

	res := &Result{Record: model.NewPageRecord(pageURL)}

	page, err := Parse(base, body)
	if err != nil {
		res.problem(StepParse, pageURL, err)
		p.degradeAll(res)
		return res, nil
	}

	if p.opts.ExtractMetadata {
		meta := Metadata(page)
		res.problem(StepMetadata, pageURL, meta.Err)
		res.Record.SetMetadata(meta.Value.Title, meta.Value.Description, meta.Value.Keywords)
	}

	links := Links(page)
	res.problem(StepLinks, pageURL, links.Err)
	res.Candidates = links.Value
	if p.opts.ExtractLinks {
		res.Record.SetLinks(links.Value)
	}

	if p.opts.DownloadsMedia() {
		media := Media(page, p.opts.DownloadImages, p.opts.DownloadVideos)
		res.problem(StepMedia, pageURL, media.Err)
		res.Media = media.Value
	}

	// Text runs last; it only reads the tree but is the most expensive step.
	if p.opts.ExtractText {
		text := Text(page)
		res.problem(StepText, pageURL, text.Err)
		res.Record.SetText(text.Value)
	}

	return res, nil
}

// degradeAll fills every enabled field with its empty default.
func (p *Pipeline) degradeAll(res *Result) {
	if p.opts.ExtractMetadata {
		res.Record.SetMetadata("", "", "")
	}
	if p.opts.ExtractText {
		res.Record.SetText("")
	}
	if p.opts.ExtractLinks {
		res.Record.SetLinks(nil)
	}
}

func (r *Result) problem(step, pageURL string, err error) {
	if err == nil {
		return
	}
	r.Problems = append(r.Problems, StepError{Step: step, URL: pageURL, Err: err})
}
