package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webscrape/internal/database"
	"github.com/nao1215/webscrape/internal/model"
)

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	s := model.NewRunSummary("https://example.com/", "/tmp/example.com", model.AllOptions(), 3)
	s.FinishedAt = s.StartedAt.Add(time.Second)
	s.Pages = 7
	s.Cancelled = true
	if err := db.SaveRun(context.Background(), s); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	_ = db.Close()

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append(args, "--db-dir", dbDir))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("failed to run history: %v", err)
		}
		return out.String()
	}

	list := run()
	for _, want := range []string{s.ID[:8], "https://example.com/", "cancelled"} {
		if !strings.Contains(list, want) {
			t.Errorf("list missing %q:\n%s", want, list)
		}
	}

	detail := run(s.ID[:8])
	if !strings.Contains(detail, "# Scrape Report") || !strings.Contains(detail, s.ID) {
		t.Errorf("unexpected detail output:\n%s", detail)
	}
}

func TestHistoryCmd_NoDatabase(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db-dir", t.TempDir()})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without a history database")
	}
}
