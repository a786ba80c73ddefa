package model

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary describes a finished run. It is rendered into summary.md and
// stored in the history database; it is never used to resume a crawl.
type RunSummary struct {
	ID         string        `json:"id"`
	Seed       string        `json:"seed"`
	OutputDir  string        `json:"output_dir"`
	Options    CrawlOptions  `json:"options"`
	MaxDepth   int           `json:"max_depth"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Pages      int           `json:"pages"`
	Failed     int           `json:"failed"`
	Files      int           `json:"files"`
	Cancelled  bool          `json:"cancelled"`
	Errors     []string      `json:"errors,omitempty"`
	Records    []PageRecord  `json:"-"`
	Downloads  []DownloadLog `json:"-"`
}

// DownloadLog is the persisted trace of one media download.
type DownloadLog struct {
	URL      string
	Kind     MediaKind
	FileName string
	Bytes    int64
	Checksum string
}

// NewRunSummary starts a summary for seed with a fresh run id.
func NewRunSummary(seed, outputDir string, opts CrawlOptions, maxDepth int) *RunSummary {
	return &RunSummary{
		ID:        uuid.NewString(),
		Seed:      seed,
		OutputDir: outputDir,
		Options:   opts,
		MaxDepth:  maxDepth,
		StartedAt: time.Now(),
	}
}

// Duration returns the wall time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
