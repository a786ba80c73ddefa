package media

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/webscrape/internal/model"
	"github.com/nao1215/webscrape/internal/progress"
)

const (
	// DefaultImageTimeout bounds how long an image download may stall.
	DefaultImageTimeout = 5 * time.Second

	// DefaultVideoTimeout bounds how long a video download may stall.
	DefaultVideoTimeout = 10 * time.Second

	// chunkSize is the copy buffer used for every download.
	chunkSize = 8 * 1024

	// maxNameAttempts bounds the synthetic-name retries on collision.
	maxNameAttempts = 16
)

// Acquirer downloads one media reference at a time. It is safe for
// concurrent use; every call writes to its own file.
type Acquirer struct {
	client       *http.Client
	sink         progress.Sink
	logger       *slog.Logger
	userAgent    string
	imageTimeout time.Duration
	videoTimeout time.Duration
	inspectEXIF  bool
	now          func() time.Time
}

// AcquirerOption configures an Acquirer.
type AcquirerOption func(*Acquirer)

// WithProgress sets the sink that receives log lines and counts.
func WithProgress(s progress.Sink) AcquirerOption {
	return func(a *Acquirer) {
		a.sink = s
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) AcquirerOption {
	return func(a *Acquirer) {
		a.logger = l
	}
}

// WithUserAgent sets the User-Agent header sent with downloads.
func WithUserAgent(ua string) AcquirerOption {
	return func(a *Acquirer) {
		a.userAgent = ua
	}
}

// WithTimeouts sets the stall timeouts for images and videos.
// Non-positive values keep the defaults.
func WithTimeouts(image, video time.Duration) AcquirerOption {
	return func(a *Acquirer) {
		if image > 0 {
			a.imageTimeout = image
		}
		if video > 0 {
			a.videoTimeout = video
		}
	}
}

// WithEXIF enables EXIF inspection of downloaded JPEG files.
func WithEXIF(enabled bool) AcquirerOption {
	return func(a *Acquirer) {
		a.inspectEXIF = enabled
	}
}

// withClock replaces the time source used for synthetic names.
func withClock(now func() time.Time) AcquirerOption {
	return func(a *Acquirer) {
		a.now = now
	}
}

// NewAcquirer creates an Acquirer that fetches through client.
func NewAcquirer(client *http.Client, opts ...AcquirerOption) *Acquirer {
	a := &Acquirer{
		client:       client,
		sink:         progress.Discard,
		logger:       slog.New(slog.DiscardHandler),
		imageTimeout: DefaultImageTimeout,
		videoTimeout: DefaultVideoTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = http.DefaultClient
	}
	return a
}

// Acquire downloads ref into the kind's subfolder of root. Every failure is
// reported on the sink and in the result; Acquire never returns past it.
// Once ctx is cancelled no new request is started, but a download already
// streaming runs to completion.
func (a *Acquirer) Acquire(ctx context.Context, ref model.MediaReference, root string) model.DownloadResult {
	res := model.DownloadResult{Ref: ref}

	if err := ctx.Err(); err != nil {
		res.Skipped = true
		res.Err = err
		return res
	}

	if ref.Kind.Extensions() == nil {
		res.Skipped = true
		res.Err = fmt.Errorf("%w: %q", ErrUnknownKind, ref.Kind)
		return res
	}

	ext, ok := allowedExtension(ref.URL, ref.Kind)
	if !ok {
		progress.Skipf(a.sink, "Skipping invalid %s URL: %s", strings.ToUpper(ref.Kind.String()), ref.URL)
		res.Skipped = true
		res.Err = ErrInvalidExtension
		return res
	}

	if err := a.download(ctx, &res, ext, filepath.Join(root, ref.Kind.Dir())); err != nil {
		res.Err = err
		progress.Errorf(a.sink, "Error downloading %s %s: %v", ref.Kind, ref.URL, err)
		a.logger.Debug("media download failed", "url", ref.URL, "error", err)
		return res
	}

	res.OK = true
	progress.Logf(a.sink, "Downloaded %s: %s", ref.Kind, res.FileName)
	progress.Inc(a.sink, 1)
	return res
}

func (a *Acquirer) timeout(kind model.MediaKind) time.Duration {
	if kind == model.MediaVideo {
		return a.videoTimeout
	}
	return a.imageTimeout
}

func (a *Acquirer) download(ctx context.Context, res *model.DownloadResult, ext, dir string) error {
	idle := a.timeout(res.Ref.Kind)
	reqCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	defer cancel(nil)
	timer := time.AfterFunc(idle, func() { cancel(ErrIdleTimeout) })
	defer timer.Stop()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, res.Ref.URL, nil)
	if err != nil {
		return err
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return stalled(reqCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	f, name, err := a.create(dir, baseName(res.Ref.URL), res.Ref.Kind, ext)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name)

	hasher := sha3.New256()
	body := &idleReader{r: resp.Body, timer: timer, idle: idle}
	n, err := io.CopyBuffer(io.MultiWriter(f, hasher), body, make([]byte, chunkSize))
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return stalled(reqCtx, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	res.FileName = name
	res.Bytes = n
	res.Checksum = hex.EncodeToString(hasher.Sum(nil))

	if a.inspectEXIF && isJPEG(ext) {
		tags, err := ReadEXIF(path)
		if err != nil {
			a.logger.Debug("no EXIF data", "file", name, "error", err)
		} else if len(tags) > 0 {
			res.EXIF = tags
			progress.Logf(a.sink, "EXIF metadata found in %s (%d tags)", name, len(tags))
		}
	}
	return nil
}

// create opens a new file exclusively. The URL's base name is tried first;
// when it is empty or taken, timestamped names are tried instead.
func (a *Acquirer) create(dir, name string, kind model.MediaKind, ext string) (*os.File, string, error) {
	if name != "" {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create %s: %w", name, err)
		}
	}

	for i := range maxNameAttempts {
		candidate := syntheticName(kind, ext, a.now())
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", candidate[:len(candidate)-len(ext)], i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create %s: %w", candidate, err)
		}
	}
	return nil, "", fmt.Errorf("failed to find a free name for %s in %s", kind, dir)
}

// idleReader pushes the stall deadline forward whenever bytes arrive.
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.idle)
	}
	return n, err
}

// stalled replaces a context error caused by the stall timer with
// ErrIdleTimeout.
func stalled(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrIdleTimeout) {
		return fmt.Errorf("%w: %w", ErrIdleTimeout, err)
	}
	return err
}
