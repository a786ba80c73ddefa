package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/webscrape/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "webscrape"

	// DefaultMaxDepth is the hop limit from the seed.
	DefaultMaxDepth = 3

	// DefaultPageTimeout bounds a single page fetch.
	DefaultPageTimeout = 15 * time.Second

	// DefaultImageTimeout and DefaultVideoTimeout bound how long a media
	// download may stall.
	DefaultImageTimeout = 5 * time.Second
	DefaultVideoTimeout = 10 * time.Second

	// DefaultMediaWorkers is the number of concurrent downloads per page.
	DefaultMediaWorkers = 4

	// DefaultBatchSize is the number of seeds crawled at the same time.
	DefaultBatchSize = 1

	// DefaultUserAgent is a desktop browser User-Agent; many sites serve
	// reduced pages to unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxBodySize limits the bytes read from one page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all options of one invocation. It is populated from CLI
// flags and the config file and passed down explicitly.
type Config struct {
	// Seeds are the start addresses. Each seed is an independent run with
	// its own folder.
	Seeds []string

	// Destination is the parent directory of the run folders.
	Destination string

	// FolderName overrides the run folder name. Empty means the seed host.
	// Only valid with a single seed.
	FolderName string

	// MaxDepth is the hop limit. 0 fetches only the seed.
	MaxDepth int

	// Options are the crawl switches.
	Options model.CrawlOptions

	PageTimeout  time.Duration
	ImageTimeout time.Duration
	VideoTimeout time.Duration

	// MediaWorkers is the number of concurrent downloads per page.
	MediaWorkers int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	UserAgent   string
	MaxBodySize int64

	// SaveMarkdown writes a Markdown rendition next to each raw snapshot.
	SaveMarkdown bool

	// InspectEXIF reports notable EXIF tags of downloaded JPEG files.
	InspectEXIF bool

	// WriteSummary writes summary.md into each run folder.
	WriteSummary bool

	// ProxyAddress routes traffic through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes traffic through it.
	UseTor bool

	TorStartupTimeout time.Duration

	// ConfigFilePath is the explicit config file. Empty means search for
	// .webscrape in the working and home directories.
	ConfigFilePath string

	// SiteConfigs holds the loaded config file, if any.
	SiteConfigs *File

	// LogFile, when set, receives diagnostic logs through a rotating writer.
	LogFile string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveHistory records each run in the history database.
	SaveHistory bool

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Destination:       ".",
		MaxDepth:          DefaultMaxDepth,
		PageTimeout:       DefaultPageTimeout,
		ImageTimeout:      DefaultImageTimeout,
		VideoTimeout:      DefaultVideoTimeout,
		MediaWorkers:      DefaultMediaWorkers,
		BatchSize:         DefaultBatchSize,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveHistory:       true,
	}
}

// XDGDataDir returns the XDG data directory for webscrape, which holds
// the history database.
// On Linux: ~/.local/share/webscrape
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory searched for
// config.yaml.
// On Linux: ~/.config/webscrape
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.FolderName != "" && len(c.Seeds) > 1 {
		return ErrNameWithManySeeds
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.PageTimeout <= 0 || c.ImageTimeout <= 0 || c.VideoTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MediaWorkers <= 0 {
		return ErrInvalidMediaWorkers
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	if err := c.Options.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrNoOptions, err)
	}
	return nil
}

// ForHost returns the options and depth to use for a seed on host after
// applying the config file. Site options are added to the CLI switches;
// a site depth replaces the global one.
func (c *Config) ForHost(host string) (model.CrawlOptions, int, SiteConfig) {
	opts := c.Options
	depth := c.MaxDepth
	if c.SiteConfigs == nil {
		return opts, depth, SiteConfig{}
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	opts = opts.Merge(site.Options)
	if site.Depth != nil {
		depth = *site.Depth
	}
	return opts, depth, site
}
