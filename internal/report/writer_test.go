package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webscrape/internal/model"
	"github.com/nao1215/webscrape/internal/progress"
)

// createTestDataset builds two records with different field sets.
func createTestDataset() *model.Dataset {
	ds := model.NewDataset()

	first := model.NewPageRecord("http://example.com/")
	first.SetMetadata("Home", "Front page", "a, b")
	first.SetLinks([]string{"http://example.com/p1"})
	ds.Append(first)

	second := model.NewPageRecord("http://example.com/p1")
	second.SetText("hello\nworld")
	second.SetLinks(nil)
	ds.Append(second)

	return ds
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("round trip keeps order and present fields", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		ds := createTestDataset()
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(ds); err != nil {
			t.Fatalf("failed to write JSON: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to decode JSON: %v", err)
		}
		if len(decoded) != 2 {
			t.Fatalf("expected 2 records, got %d", len(decoded))
		}
		if decoded[0]["url"] != "http://example.com/" || decoded[1]["url"] != "http://example.com/p1" {
			t.Errorf("unexpected record order: %v", decoded)
		}
		if _, ok := decoded[0]["text"]; ok {
			t.Error("expected text to be absent on the first record")
		}
		if links, ok := decoded[1]["links"].([]any); !ok || len(links) != 0 {
			t.Errorf("expected empty links list on the second record, got %v", decoded[1]["links"])
		}

		var records []model.PageRecord
		if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
			t.Fatalf("failed to decode records: %v", err)
		}
		if !reflect.DeepEqual(records, ds.Records()) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", records, ds.Records())
		}
	})

	t.Run("four space indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestDataset()); err != nil {
			t.Fatalf("failed to write JSON: %v", err)
		}
		if !strings.Contains(buf.String(), "\n    {\n        \"url\"") {
			t.Errorf("expected 4-space indentation, got:\n%s", buf.String())
		}
	})

	t.Run("empty dataset", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(model.NewDataset()); err != nil {
			t.Fatalf("failed to write JSON: %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != "[]" {
			t.Errorf("expected [], got %q", got)
		}
	})
}

func TestCSVWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewCSVWriter(&buf).Write(createTestDataset())
	if err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("expected byte count %d, got %d", buf.Len(), n)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}

	wantHeader := []string{"description", "keywords", "text", "title", "url"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("expected header %v, got %v", wantHeader, rows[0])
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d rows", len(rows))
	}
	for _, row := range rows[1:] {
		if len(row) != len(wantHeader) {
			t.Errorf("expected full row of %d cells, got %v", len(wantHeader), row)
		}
	}
	if rows[1][2] != "" || rows[2][2] != "hello\nworld" {
		t.Errorf("unexpected text column: %q / %q", rows[1][2], rows[2][2])
	}
	if rows[2][3] != "" {
		t.Errorf("expected empty title fill, got %q", rows[2][3])
	}
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	t.Run("writes enabled formats", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		rec := &progress.Recorder{}
		opts := model.NewCrawlOptions(model.WithSaveJSON(), model.WithSaveCSV())

		if err := Finalize(createTestDataset(), opts, dir, rec); err != nil {
			t.Fatalf("failed to finalize: %v", err)
		}
		for _, name := range []string{JSONFileName, CSVFileName} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("expected %s to exist: %v", name, err)
			}
		}
		if rec.Count() != 2 {
			t.Errorf("expected 2 count increments, got %d", rec.Count())
		}
	})

	t.Run("disabled formats are skipped", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		opts := model.NewCrawlOptions(model.WithSaveCSV())
		if err := Finalize(createTestDataset(), opts, dir, progress.Discard); err != nil {
			t.Fatalf("failed to finalize: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, JSONFileName)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected no %s, stat returned %v", JSONFileName, err)
		}
	})

	t.Run("one failure does not stop the other", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		// A directory in place of data.json makes the JSON write fail.
		if err := os.Mkdir(filepath.Join(dir, JSONFileName), 0o750); err != nil {
			t.Fatalf("failed to create blocker: %v", err)
		}
		rec := &progress.Recorder{}
		opts := model.NewCrawlOptions(model.WithSaveJSON(), model.WithSaveCSV())

		if err := Finalize(createTestDataset(), opts, dir, rec); err == nil {
			t.Error("expected an error for the JSON write")
		}
		if _, err := os.Stat(filepath.Join(dir, CSVFileName)); err != nil {
			t.Errorf("expected CSV to be written: %v", err)
		}
		if len(rec.Lines(progress.LevelError)) != 1 {
			t.Errorf("expected one error line, got %v", rec.Lines(progress.LevelError))
		}
		if rec.Count() != 1 {
			t.Errorf("expected 1 count increment, got %d", rec.Count())
		}
	})
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	summary := model.NewRunSummary("http://example.com/", dir, model.AllOptions(), 3)
	summary.FinishedAt = summary.StartedAt.Add(2 * time.Second)
	summary.Pages = 2
	summary.Failed = 1
	summary.Files = 3
	summary.Errors = []string{"Error scraping http://example.com/bad: 404"}
	summary.Records = createTestDataset().Records()
	summary.Downloads = []model.DownloadLog{{URL: "http://example.com/a.png", Kind: model.MediaImage, FileName: "a.png", Bytes: 10, Checksum: strings.Repeat("ab", 32)}}

	if err := WriteSummary(summary, dir); err != nil {
		t.Fatalf("failed to write summary: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, SummaryFileName))
	if err != nil {
		t.Fatalf("failed to read summary: %v", err)
	}
	output := string(data)
	for _, want := range []string{"# Scrape Report", summary.ID, "## Pages", "http://example.com/p1", "## Downloads", "a.png", "## Errors", "Error scraping"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected summary to contain %q", want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
