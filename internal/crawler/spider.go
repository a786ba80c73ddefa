package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nao1215/webscrape/internal/extract"
	"github.com/nao1215/webscrape/internal/model"
	"github.com/nao1215/webscrape/internal/progress"
	"github.com/nao1215/webscrape/internal/report"
)

// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
var ErrInvalidSeed = errors.New("seed must be an absolute http or https URL")

const (
	// DefaultMaxDepth is the hop limit from the seed.
	DefaultMaxDepth = 3

	// DefaultPageTimeout bounds a single page fetch.
	DefaultPageTimeout = 15 * time.Second

	// DefaultUserAgent is sent with every page request.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxBodySize caps the bytes read from one page.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024
)

// Downloader fetches the media references of one page into root.
type Downloader interface {
	Download(ctx context.Context, refs []model.MediaReference, root string) []model.DownloadResult
}

// ExportFunc serializes a finished dataset into dir.
type ExportFunc func(ds *model.Dataset, opts model.CrawlOptions, dir string, sink progress.Sink) error

// Spider crawls a site breadth-first from one seed. A Spider is meant for
// one Run at a time; Stats may be read concurrently.
type Spider struct {
	// client performs page requests.
	client *http.Client

	// maxDepth limits how deep to crawl from the seed.
	// 0 means only the seed page, 1 means one level of links, etc.
	maxDepth int

	pageTimeout time.Duration
	userAgent   string
	maxBodySize int64

	sink   progress.Sink
	logger *slog.Logger

	// downloader receives media references; nil disables downloads.
	downloader Downloader

	// outputDir is the run folder for snapshots, media and data files.
	outputDir string

	// markdownPages writes a Markdown rendition next to each raw snapshot.
	markdownPages bool

	exporter ExportFunc
	now      func() time.Time

	mutex     sync.Mutex
	stats     SpiderStats
	downloads []model.DownloadResult
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth. Negative values are ignored.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithPageTimeout sets the per-page fetch timeout.
func WithPageTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d > 0 {
			s.pageTimeout = d
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithProgress sets the sink for observer events.
func WithProgress(sink progress.Sink) SpiderOption {
	return func(s *Spider) {
		s.sink = sink
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = l
	}
}

// WithAcquirer sets the media downloader.
func WithAcquirer(d Downloader) SpiderOption {
	return func(s *Spider) {
		s.downloader = d
	}
}

// WithOutput sets the run folder. It must exist before Run.
func WithOutput(dir string) SpiderOption {
	return func(s *Spider) {
		s.outputDir = dir
	}
}

// WithMarkdownPages also saves each raw snapshot converted to Markdown.
func WithMarkdownPages(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.markdownPages = enabled
	}
}

// WithExporter replaces the function that writes the dataset at the end
// of a run.
func WithExporter(fn ExportFunc) SpiderOption {
	return func(s *Spider) {
		s.exporter = fn
	}
}

// NewSpider creates a Spider that fetches through client.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		maxDepth:    DefaultMaxDepth,
		pageTimeout: DefaultPageTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		sink:        progress.Discard,
		logger:      slog.New(slog.DiscardHandler),
		exporter:    report.Finalize,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}
	if s.sink == nil {
		s.sink = progress.Discard
	}

	return s
}

// ParseSeed checks that seed is an absolute http(s) URL with a host.
func ParseSeed(seed string) (*url.URL, error) {
	u, err := url.Parse(seed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	return u, nil
}

// Run crawls from seed and returns the records of every page that was
// fetched. The only error is ErrInvalidSeed; fetch, extraction and save
// failures are reported on the progress sink and the crawl goes on.
//
// When ctx is cancelled the loop stops before the next entry, the dataset
// collected so far is returned and nothing is exported. A Completed event
// is emitted last in every case.
func (s *Spider) Run(ctx context.Context, seed string, opts model.CrawlOptions) (*model.Dataset, error) {
	defer s.sink.Emit(progress.Completed{})

	start, err := ParseSeed(seed)
	if err != nil {
		progress.Errorf(s.sink, "Invalid URL: %s", seed)
		return nil, err
	}

	s.reset()
	ds := model.NewDataset()
	pipeline := extract.New(opts)
	frontier := NewFrontier()
	frontier.Push(model.FrontierEntry{URL: seed, Depth: 0})

	progress.Logf(s.sink, "Starting scrape on: %s", seed)
	s.logger.Debug("crawl started", "seed", seed, "max_depth", s.maxDepth)

	for frontier.Len() > 0 {
		if ctx.Err() != nil {
			break
		}

		entry, _ := frontier.Pop()
		if entry.Depth > s.maxDepth || !frontier.Visit(entry.URL) {
			continue
		}

		if rec, ok := s.processEntry(ctx, pipeline, frontier, entry, start.Host, opts); ok {
			ds.Append(rec)
		}
		s.setFrontierStats(frontier)
	}
	s.setFrontierStats(frontier)

	if ctx.Err() != nil {
		s.setCancelled()
		progress.Logf(s.sink, "Scraping stopped.")
	} else if ds.Len() > 0 && s.outputDir != "" && s.exporter != nil {
		if err := s.exporter(ds, opts, s.outputDir, s.sink); err != nil {
			s.logger.Debug("export finished with errors", "error", err)
		}
	}

	progress.Logf(s.sink, "Scraping completed.")
	return ds, nil
}

// processEntry fetches and extracts one page, saves its snapshots and
// media, and pushes the followable links. Nothing here aborts the run.
func (s *Spider) processEntry(
	ctx context.Context,
	pipeline *extract.Pipeline,
	frontier *Frontier,
	entry model.FrontierEntry,
	seedHost string,
	opts model.CrawlOptions,
) (model.PageRecord, bool) {
	progress.Logf(s.sink, "Scraping %s (depth %d)...", entry.URL, entry.Depth)

	page, err := s.fetchPage(ctx, entry.URL)
	if err != nil {
		progress.Errorf(s.sink, "Error scraping %s: %v", entry.URL, err)
		s.logger.Debug("fetch failed", "url", entry.URL, "error", err)
		s.addFailed()
		return model.PageRecord{}, false
	}

	res, err := pipeline.Extract(entry.URL, bytes.NewReader(page.text()))
	if err != nil {
		progress.Errorf(s.sink, "Error scraping %s: %v", entry.URL, err)
		s.addFailed()
		return model.PageRecord{}, false
	}
	for _, p := range res.Problems {
		progress.Errorf(s.sink, "%v", p)
	}

	if opts.SaveRawHTML {
		s.saveSnapshots(entry.URL, page)
	}

	if len(res.Media) > 0 && s.downloader != nil && s.outputDir != "" {
		results := s.downloader.Download(ctx, res.Media, s.outputDir)
		s.addDownloads(results)
	}

	if opts.Follows() {
		s.enqueue(frontier, res.Candidates, entry.Depth, seedHost, opts)
	}

	s.addVisited()
	return res.Record, true
}

// enqueue pushes every candidate that the classifier and follow policy
// accept and that stays within the depth limit.
func (s *Spider) enqueue(frontier *Frontier, candidates []string, depth int, seedHost string, opts model.CrawlOptions) {
	if depth+1 > s.maxDepth {
		return
	}
	for _, link := range candidates {
		v := Classify(link, seedHost)
		if !v.Followable {
			continue
		}
		if (v.Internal && opts.FollowInternal) || (!v.Internal && opts.FollowExternal) {
			frontier.Push(model.FrontierEntry{URL: link, Depth: depth + 1})
		}
	}
}

// saveSnapshots writes the page bytes verbatim and, when enabled, its
// Markdown form.
func (s *Spider) saveSnapshots(pageURL string, page fetchedPage) {
	if s.outputDir == "" {
		return
	}
	now := s.now()

	name, err := writeSnapshot(s.outputDir, pageURL, ".html", now, page.raw)
	if err != nil {
		progress.Errorf(s.sink, "Error saving HTML for %s: %v", pageURL, err)
		return
	}
	progress.Logf(s.sink, "Saved HTML: %s", name)
	progress.Inc(s.sink, 1)
	s.addFiles(1)

	if !s.markdownPages {
		return
	}
	md, err := toMarkdown(pageURL, page.text())
	if err == nil {
		name, err = writeSnapshot(s.outputDir, pageURL, ".md", now, md)
	}
	if err != nil {
		progress.Errorf(s.sink, "Error saving Markdown for %s: %v", pageURL, err)
		return
	}
	progress.Logf(s.sink, "Saved Markdown: %s", name)
	progress.Inc(s.sink, 1)
	s.addFiles(1)
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesVisited is the number of pages fetched and extracted.
	PagesVisited int

	// PagesFailed is the number of pages whose fetch failed.
	PagesFailed int

	// URLsQueued is the number of pending frontier entries.
	URLsQueued int

	// URLsVisited is the number of distinct addresses dequeued, including
	// pages whose fetch failed.
	URLsVisited int

	// FilesSaved counts snapshots and media files written.
	FilesSaved int

	// Cancelled is true when the run stopped on context cancellation.
	Cancelled bool
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stats
}

// Downloads returns the results of every media download of the last run.
func (s *Spider) Downloads() []model.DownloadResult {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]model.DownloadResult, len(s.downloads))
	copy(out, s.downloads)
	return out
}

func (s *Spider) reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats = SpiderStats{}
	s.downloads = nil
}

func (s *Spider) addVisited() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.PagesVisited++
}

func (s *Spider) addFailed() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.PagesFailed++
}

func (s *Spider) addFiles(n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.FilesSaved += n
}

func (s *Spider) setFrontierStats(f *Frontier) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.URLsQueued = f.Len()
	s.stats.URLsVisited = f.VisitedCount()
}

func (s *Spider) setCancelled() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.Cancelled = true
}

func (s *Spider) addDownloads(results []model.DownloadResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.downloads = append(s.downloads, results...)
	for _, r := range results {
		if r.OK {
			s.stats.FilesSaved++
		}
	}
}
