package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webscrape/internal/config"
	"github.com/nao1215/webscrape/internal/crawler"
	"github.com/nao1215/webscrape/internal/database"
	wslog "github.com/nao1215/webscrape/internal/log"
	"github.com/nao1215/webscrape/internal/media"
	"github.com/nao1215/webscrape/internal/model"
	"github.com/nao1215/webscrape/internal/progress"
	"github.com/nao1215/webscrape/internal/report"
	"github.com/nao1215/webscrape/internal/transport"
)

// optionFlags maps each crawl switch to its flag.
var optionFlags = []struct {
	name  string
	usage string
	set   func(*model.CrawlOptions)
}{
	{"links", "Extract links", func(o *model.CrawlOptions) { o.ExtractLinks = true }},
	{"images", "Download images", func(o *model.CrawlOptions) { o.DownloadImages = true }},
	{"videos", "Download videos", func(o *model.CrawlOptions) { o.DownloadVideos = true }},
	{"text", "Extract visible text", func(o *model.CrawlOptions) { o.ExtractText = true }},
	{"metadata", "Extract title, description and keywords", func(o *model.CrawlOptions) { o.ExtractMetadata = true }},
	{"follow-internal", "Follow links on the seed host", func(o *model.CrawlOptions) { o.FollowInternal = true }},
	{"follow-external", "Follow links to other hosts", func(o *model.CrawlOptions) { o.FollowExternal = true }},
	{"json", "Save data.json", func(o *model.CrawlOptions) { o.SaveJSON = true }},
	{"csv", "Save data.csv", func(o *model.CrawlOptions) { o.SaveCSV = true }},
	{"raw-html", "Save a raw HTML snapshot of every page", func(o *model.CrawlOptions) { o.SaveRawHTML = true }},
}

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <url> [url...]",
		Short: "Crawl a website and collect its content",
		Long: `Scrape crawls a website breadth-first, starting at the given URL.

Every page up to --depth hops from the seed is fetched once. Depending on
the switches, its metadata, text and links are recorded and its images
and videos downloaded. Results go to <dest>/<name>/: the media folders,
raw snapshots, data.json and data.csv.

Press Ctrl+C to stop: the page being fetched completes, nothing else is
fetched and no data files are written.

Examples:
  # Everything, three levels deep
  webscrape scrape https://example.com/ --all

  # Titles and links of the seed and its direct children
  webscrape scrape https://example.com/ --metadata --links --follow-internal --depth 1 --json

  # Images only, through a SOCKS5 proxy
  webscrape scrape https://example.com/gallery --images --proxy 127.0.0.1:1080

  # Two sites at the same time
  webscrape scrape https://a.example/ https://b.example/ --all --batch 2

Configuration file (.webscrape) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScrapeCmd,
	}

	f := cmd.Flags()
	f.StringP("dest", "o", ".", "Directory that receives the result folder")
	f.StringP("name", "n", "", "Result folder name (default: the seed host)")
	f.IntP("depth", "d", config.DefaultMaxDepth, "Maximum number of hops from the seed")

	for _, of := range optionFlags {
		f.Bool(of.name, false, of.usage)
	}
	f.BoolP("all", "a", false, "Enable every crawl switch")

	f.DurationP("timeout", "t", config.DefaultPageTimeout, "Timeout for each page request")
	f.Duration("image-timeout", config.DefaultImageTimeout, "Idle timeout for image downloads")
	f.Duration("video-timeout", config.DefaultVideoTimeout, "Idle timeout for video downloads")
	f.Int("media-workers", config.DefaultMediaWorkers, "Concurrent media downloads per page")
	f.IntP("batch", "b", config.DefaultBatchSize, "Number of seeds crawled concurrently")
	f.String("user-agent", config.DefaultUserAgent, "User-Agent header for every request")
	f.Int64("max-body-size", config.DefaultMaxBodySize, "Maximum bytes read from one page")

	f.Bool("save-markdown", false, "Also save each raw snapshot converted to Markdown")
	f.Bool("exif", false, "Report notable EXIF tags of downloaded JPEG images")
	f.Bool("summary", false, "Write summary.md into the result folder")

	f.String("proxy", "", "Route traffic through a SOCKS5 proxy (host:port)")
	f.Bool("tor", false, "Start an embedded Tor daemon and route traffic through it")
	f.Duration("tor-timeout", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")

	f.StringP("config", "c", "", "Configuration file path (default: .webscrape in current or home directory, then the XDG config dir)")
	f.String("log-file", "", "Write diagnostic logs to a rotating file instead of stderr")
	f.String("db-dir", config.XDGDataDir(), "Directory of the run history database")
	f.Bool("no-history", false, "Do not record the run in the history database")

	return cmd
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logWriter := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		fw := wslog.NewFileWriter(cfg.LogFile)
		defer fw.Close()
		logWriter = fw
	}
	logger := wslog.NewSecureLogger(logWriter, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping after the current page")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScrape(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag reads --verbose from the command or the root.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	f := cmd.Flags()
	var err error

	if cfg.Destination, err = f.GetString("dest"); err != nil {
		return nil, err
	}
	if cfg.FolderName, err = f.GetString("name"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = f.GetInt("depth"); err != nil {
		return nil, err
	}

	all, err := f.GetBool("all")
	if err != nil {
		return nil, err
	}
	if all {
		cfg.Options = model.AllOptions()
	}
	for _, of := range optionFlags {
		on, err := f.GetBool(of.name)
		if err != nil {
			return nil, err
		}
		if on {
			of.set(&cfg.Options)
		}
	}

	if cfg.PageTimeout, err = f.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ImageTimeout, err = f.GetDuration("image-timeout"); err != nil {
		return nil, err
	}
	if cfg.VideoTimeout, err = f.GetDuration("video-timeout"); err != nil {
		return nil, err
	}
	if cfg.MediaWorkers, err = f.GetInt("media-workers"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = f.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = f.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = f.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.SaveMarkdown, err = f.GetBool("save-markdown"); err != nil {
		return nil, err
	}
	if cfg.InspectEXIF, err = f.GetBool("exif"); err != nil {
		return nil, err
	}
	if cfg.WriteSummary, err = f.GetBool("summary"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = f.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = f.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = f.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = f.GetString("log-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = f.GetString("db-dir"); err != nil {
		return nil, err
	}
	noHistory, err := f.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = f.GetString("config"); err != nil {
		return nil, err
	}
	// An explicit --config must exist; the implicit search may find nothing.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Options = cfg.Options.Merge(cfg.SiteConfigs.Defaults.Options)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Seeds = args
	return cfg, nil
}

// runScrape crawls every seed. Seeds run one after another unless
// BatchSize allows more at once; a failing seed does not stop the others.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting scrape",
		"seeds", cfg.Seeds,
		"depth", cfg.MaxDepth,
		"batch", cfg.BatchSize,
		"proxy", cfg.ProxyAddress,
		"tor", cfg.UseTor,
	)

	var db *database.HistoryDB
	if cfg.SaveHistory {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			// History is optional; the crawl itself does not depend on it.
			logger.Warn("history disabled", "dir", cfg.DBDir, "error", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	newClient, stop, err := clientFactory(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer stop()

	batch := len(cfg.Seeds) > 1 && cfg.BatchSize > 1
	var outMu sync.Mutex
	var errs []error
	var errsMu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(max(cfg.BatchSize, 1))
	for _, seed := range cfg.Seeds {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r := &seedRun{
				cfg:       cfg,
				seed:      seed,
				logger:    logger.With("seed", seed),
				out:       out,
				outMu:     &outMu,
				batch:     batch,
				newClient: newClient,
				db:        db,
			}
			if err := r.run(ctx); err != nil {
				errsMu.Lock()
				errs = append(errs, err)
				errsMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// clientFactory returns a constructor for per-seed transport clients and a
// cleanup function. With --tor the embedded daemon is started once and
// shared by every seed.
func clientFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (func(...transport.Option) (*transport.Client, error), func(), error) {
	// No client-level timeout: pages and media bound their own requests
	// and a video may stream for longer than any fixed limit.
	var base []transport.Option

	switch {
	case cfg.UseTor:
		tor, err := startEmbeddedTor(ctx, cfg, logger, out)
		if err != nil {
			return nil, nil, err
		}
		stop := func() {
			logger.Info("stopping embedded Tor daemon")
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		return func(opts ...transport.Option) (*transport.Client, error) {
			return tor.NewClient(slices.Concat(base, opts)...)
		}, stop, nil

	case cfg.ProxyAddress != "":
		checker, err := transport.New(transport.WithProxy(cfg.ProxyAddress))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create proxy client: %w", err)
		}
		if status := checker.CheckConnection(ctx); status != transport.ProxyStatusOK {
			return nil, nil, fmt.Errorf("proxy check failed: %w (is a SOCKS5 proxy running at %s?)", status.Error(), cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		base = append(base, transport.WithProxy(cfg.ProxyAddress))
	}

	return func(opts ...transport.Option) (*transport.Client, error) {
		return transport.New(slices.Concat(base, opts)...)
	}, func() {}, nil
}

func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*transport.EmbeddedTor, error) {
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps.\n\n")

	tor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := tor.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	logger.Info("embedded Tor daemon started",
		"socksAddr", tor.SocksAddr(),
		"controlAddr", tor.ControlAddr(),
	)

	checker, err := tor.NewClient()
	if err == nil {
		if status := checker.CheckConnection(ctx); status != transport.ProxyStatusOK {
			err = fmt.Errorf("embedded Tor proxy check failed: %w", status.Error())
		}
	}
	if err != nil {
		_ = tor.Stop() //nolint:errcheck // best effort cleanup
		return nil, err
	}

	fmt.Fprintf(out, "Tor SOCKS proxy: %s\n\n", tor.SocksAddr())
	return tor, nil
}

// seedRun is one crawl: its folder, transport, spider and observer.
type seedRun struct {
	cfg       *config.Config
	seed      string
	logger    *slog.Logger
	out       io.Writer
	outMu     *sync.Mutex
	batch     bool
	newClient func(...transport.Option) (*transport.Client, error)
	db        *database.HistoryDB
}

func (r *seedRun) run(ctx context.Context) error {
	start, err := crawler.ParseSeed(r.seed)
	if err != nil {
		r.printf("Invalid URL: %s\n", r.seed)
		return err
	}

	opts, depth, site := r.cfg.ForHost(start.Hostname())

	name := r.cfg.FolderName
	if name == "" {
		name = report.FolderName(r.seed)
	}
	dir, err := report.PrepareOutput(r.cfg.Destination, name, opts)
	if err != nil {
		r.printf("Error creating result folder: %v\n", err)
		return fmt.Errorf("%s: %w", r.seed, err)
	}

	var clientOpts []transport.Option
	if site.Cookie != "" || len(site.Headers) > 0 {
		clientOpts = append(clientOpts, transport.WithCredentials(transport.Credentials{
			Host:    start.Hostname(),
			Cookie:  site.Cookie,
			Headers: site.Headers,
		}))
	}
	tc, err := r.newClient(clientOpts...)
	if err != nil {
		return fmt.Errorf("%s: failed to create HTTP client: %w", r.seed, err)
	}
	httpClient := tc.HTTPClient()

	ch := progress.NewChannel()

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(depth),
		crawler.WithPageTimeout(r.cfg.PageTimeout),
		crawler.WithUserAgent(r.cfg.UserAgent),
		crawler.WithMaxBodySize(r.cfg.MaxBodySize),
		crawler.WithProgress(ch),
		crawler.WithLogger(r.logger),
		crawler.WithOutput(dir),
		crawler.WithMarkdownPages(r.cfg.SaveMarkdown),
	}
	if opts.DownloadsMedia() {
		acq := media.NewAcquirer(httpClient,
			media.WithProgress(ch),
			media.WithLogger(r.logger),
			media.WithUserAgent(r.cfg.UserAgent),
			media.WithTimeouts(r.cfg.ImageTimeout, r.cfg.VideoTimeout),
			media.WithEXIF(r.cfg.InspectEXIF),
		)
		spiderOpts = append(spiderOpts, crawler.WithAcquirer(media.NewPool(acq, r.cfg.MediaWorkers)))
	}
	spider := crawler.NewSpider(httpClient, spiderOpts...)

	summary := model.NewRunSummary(r.seed, dir, opts, depth)

	var (
		ds     *model.Dataset
		runErr error
		wg     sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ch.Close()
		ds, runErr = spider.Run(ctx, r.seed, opts)
	}()

	prefix := ""
	if r.batch {
		prefix = r.seed
	}
	obs := newObserver(r.out, r.outMu, prefix, !r.batch && isTerminal(r.out))
	obs.consume(ch.Events())
	wg.Wait()

	if runErr != nil {
		return runErr
	}

	r.finish(ctx, summary, spider, ds, obs)
	return nil
}

// finish fills the summary, writes summary.md and the history row, and
// prints the collected errors.
func (r *seedRun) finish(ctx context.Context, summary *model.RunSummary, spider *crawler.Spider, ds *model.Dataset, obs *observer) {
	stats := spider.Stats()
	summary.FinishedAt = time.Now()
	summary.Pages = stats.PagesVisited
	summary.Failed = stats.PagesFailed
	summary.Files = obs.Files()
	summary.Cancelled = stats.Cancelled
	summary.Errors = obs.Errors()
	summary.Records = ds.Records()
	for _, d := range spider.Downloads() {
		if !d.OK {
			continue
		}
		summary.Downloads = append(summary.Downloads, model.DownloadLog{
			URL:      d.Ref.URL,
			Kind:     d.Ref.Kind,
			FileName: d.FileName,
			Bytes:    d.Bytes,
			Checksum: d.Checksum,
		})
		if len(d.EXIF) > 0 {
			r.printf("EXIF %s: %v\n", d.FileName, d.EXIF)
		}
	}

	if r.cfg.WriteSummary {
		if err := report.WriteSummary(summary, summary.OutputDir); err != nil {
			r.printf("Error saving summary: %v\n", err)
		}
	}

	if r.db != nil {
		// The run is over; record it even when it was interrupted.
		if err := r.db.SaveRun(context.WithoutCancel(ctx), summary); err != nil {
			r.logger.Warn("failed to save run history", "error", err)
		}
	}

	r.printf("%d pages, %d failed, %d files saved in %s (%s)\n",
		summary.Pages, summary.Failed, summary.Files,
		summary.OutputDir, summary.Duration().Round(time.Millisecond))
	if errs := summary.Errors; len(errs) > 0 {
		r.printf("%d errors:\n", len(errs))
		for _, e := range errs {
			r.printf("  %s\n", e)
		}
	}
}

func (r *seedRun) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if r.batch {
		fmt.Fprintf(r.out, "[%s] ", r.seed)
	}
	fmt.Fprintf(r.out, format, args...)
}

// isTerminal reports whether w is a character device such as a TTY.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
