package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/webscrape/internal/model"
)

func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSummary(seed string, started time.Time) *model.RunSummary {
	s := model.NewRunSummary(seed, "/tmp/out", model.AllOptions(), 2)
	s.StartedAt = started
	s.FinishedAt = started.Add(3 * time.Second)
	s.Pages = 5
	s.Failed = 1
	s.Files = 4
	s.Errors = []string{"Error scraping https://example.com/x: 404"}
	s.Downloads = []model.DownloadLog{
		{URL: "https://example.com/a.png", Kind: model.MediaImage, FileName: "a.png", Bytes: 10, Checksum: "abc"},
		{URL: "https://example.com/v.mp4", Kind: model.MediaVideo, FileName: "v.mp4", Bytes: 20},
	}
	return s
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "new", "dir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("missing database without create", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	want := newSummary("https://example.com/", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))

	if err := db.SaveRun(ctx, want); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	got, err := db.GetRun(ctx, want.ID[:8])
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.ID != want.ID || got.Seed != want.Seed || got.MaxDepth != 2 {
		t.Errorf("run = %+v", got)
	}
	if got.Options != model.AllOptions() {
		t.Errorf("options = %+v", got.Options)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("times = %v..%v", got.StartedAt, got.FinishedAt)
	}
	if got.Pages != 5 || got.Failed != 1 || got.Files != 4 || got.Cancelled {
		t.Errorf("counters = %+v", got)
	}
	if len(got.Errors) != 1 {
		t.Errorf("errors = %v", got.Errors)
	}
	if len(got.Downloads) != 2 || got.Downloads[0].Checksum != "abc" || got.Downloads[1].Kind != model.MediaVideo {
		t.Errorf("downloads = %+v", got.Downloads)
	}
}

func TestSaveRun_Replaces(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	s := newSummary("https://example.com/", time.Now())

	if err := db.SaveRun(ctx, s); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	s.Cancelled = true
	s.Downloads = s.Downloads[:1]
	if err := db.SaveRun(ctx, s); err != nil {
		t.Fatalf("failed to save run again: %v", err)
	}

	got, err := db.GetRun(ctx, s.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if !got.Cancelled {
		t.Error("expected cancelled flag to be updated")
	}
	if len(got.Downloads) != 1 {
		t.Errorf("downloads = %d, want 1", len(got.Downloads))
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, seed := range []string{"https://a.test/", "https://b.test/", "https://c.test/"} {
		if err := db.SaveRun(ctx, newSummary(seed, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	runs, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Seed != "https://c.test/" || runs[1].Seed != "https://b.test/" {
		t.Errorf("order = %s, %s", runs[0].Seed, runs[1].Seed)
	}
	if runs[0].Downloads != nil {
		t.Error("ListRuns should not load downloads")
	}

	all, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs, want 3", len(all))
	}
}

func TestGetRun_NotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	for _, id := range []string{"", "nope", "%"} {
		if _, err := db.GetRun(context.Background(), id); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("GetRun(%q) error = %v, want ErrRunNotFound", id, err)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		zero bool
	}{
		{in: "2024-05-06T07:08:09.123456789Z"},
		{in: "2024-05-06T07:08:09Z"},
		{in: "2024-05-06 07:08:09"},
		{in: "not a time", zero: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.in); got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.in, got)
			}
		})
	}
}
