package model

import "errors"

// ErrNoOptionsEnabled is returned by CrawlOptions.Validate when no switch
// would make a run produce anything.
var ErrNoOptionsEnabled = errors.New("no crawl options enabled: select at least one extraction, download, or save option")

// CrawlOptions holds the switches that control a single run.
// A value is copied into the traversal controller at start and never
// mutated afterwards.
type CrawlOptions struct {
	// ExtractLinks exports the resolved <a href> list as the "links" field.
	ExtractLinks bool `yaml:"extractLinks" json:"extractLinks"`

	// DownloadImages downloads every <img src> on each page.
	DownloadImages bool `yaml:"downloadImages" json:"downloadImages"`

	// DownloadVideos downloads every <video> source on each page.
	DownloadVideos bool `yaml:"downloadVideos" json:"downloadVideos"`

	// ExtractText exports the visible page text as the "text" field.
	ExtractText bool `yaml:"extractText" json:"extractText"`

	// ExtractMetadata exports title, description and keywords.
	ExtractMetadata bool `yaml:"extractMetadata" json:"extractMetadata"`

	// FollowInternal enqueues links whose host equals the seed host.
	FollowInternal bool `yaml:"followInternal" json:"followInternal"`

	// FollowExternal enqueues links to any other host.
	FollowExternal bool `yaml:"followExternal" json:"followExternal"`

	// SaveJSON writes data.json at the end of the run.
	SaveJSON bool `yaml:"saveJSON" json:"saveJSON"`

	// SaveCSV writes data.csv at the end of the run.
	SaveCSV bool `yaml:"saveCSV" json:"saveCSV"`

	// SaveRawHTML stores each fetched payload verbatim.
	SaveRawHTML bool `yaml:"saveRawHTML" json:"saveRawHTML"`
}

// Option sets one switch on CrawlOptions.
type Option func(*CrawlOptions)

// WithExtractLinks enables the links field.
func WithExtractLinks() Option { return func(o *CrawlOptions) { o.ExtractLinks = true } }

// WithDownloadImages enables image downloads.
func WithDownloadImages() Option { return func(o *CrawlOptions) { o.DownloadImages = true } }

// WithDownloadVideos enables video downloads.
func WithDownloadVideos() Option { return func(o *CrawlOptions) { o.DownloadVideos = true } }

// WithExtractText enables the text field.
func WithExtractText() Option { return func(o *CrawlOptions) { o.ExtractText = true } }

// WithExtractMetadata enables title, description and keywords.
func WithExtractMetadata() Option { return func(o *CrawlOptions) { o.ExtractMetadata = true } }

// WithFollowInternal enables recursion into same-host links.
func WithFollowInternal() Option { return func(o *CrawlOptions) { o.FollowInternal = true } }

// WithFollowExternal enables recursion into other hosts.
func WithFollowExternal() Option { return func(o *CrawlOptions) { o.FollowExternal = true } }

// WithSaveJSON enables data.json.
func WithSaveJSON() Option { return func(o *CrawlOptions) { o.SaveJSON = true } }

// WithSaveCSV enables data.csv.
func WithSaveCSV() Option { return func(o *CrawlOptions) { o.SaveCSV = true } }

// WithSaveRawHTML enables raw payload files.
func WithSaveRawHTML() Option { return func(o *CrawlOptions) { o.SaveRawHTML = true } }

// NewCrawlOptions builds a CrawlOptions with the given switches turned on.
func NewCrawlOptions(opts ...Option) CrawlOptions {
	var o CrawlOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AllOptions returns a CrawlOptions with every switch enabled.
func AllOptions() CrawlOptions {
	return CrawlOptions{
		ExtractLinks:    true,
		DownloadImages:  true,
		DownloadVideos:  true,
		ExtractText:     true,
		ExtractMetadata: true,
		FollowInternal:  true,
		FollowExternal:  true,
		SaveJSON:        true,
		SaveCSV:         true,
		SaveRawHTML:     true,
	}
}

// Follows reports whether any follow policy is enabled.
func (o CrawlOptions) Follows() bool {
	return o.FollowInternal || o.FollowExternal
}

// DownloadsMedia reports whether any media download is enabled.
func (o CrawlOptions) DownloadsMedia() bool {
	return o.DownloadImages || o.DownloadVideos
}

// Validate rejects option sets that cannot produce any output.
// Following links alone is not enough: nothing would be recorded.
func (o CrawlOptions) Validate() error {
	produces := o.ExtractLinks || o.ExtractText || o.ExtractMetadata ||
		o.DownloadImages || o.DownloadVideos ||
		o.SaveJSON || o.SaveCSV || o.SaveRawHTML
	if !produces {
		return ErrNoOptionsEnabled
	}
	return nil
}

// Merge returns o with every switch that is set in other turned on.
// Switches are never turned off by a merge.
func (o CrawlOptions) Merge(other CrawlOptions) CrawlOptions {
	o.ExtractLinks = o.ExtractLinks || other.ExtractLinks
	o.DownloadImages = o.DownloadImages || other.DownloadImages
	o.DownloadVideos = o.DownloadVideos || other.DownloadVideos
	o.ExtractText = o.ExtractText || other.ExtractText
	o.ExtractMetadata = o.ExtractMetadata || other.ExtractMetadata
	o.FollowInternal = o.FollowInternal || other.FollowInternal
	o.FollowExternal = o.FollowExternal || other.FollowExternal
	o.SaveJSON = o.SaveJSON || other.SaveJSON
	o.SaveCSV = o.SaveCSV || other.SaveCSV
	o.SaveRawHTML = o.SaveRawHTML || other.SaveRawHTML
	return o
}
