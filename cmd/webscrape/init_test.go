package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/webscrape/internal/config"
)

func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()
	flag := cmd.Flags().Lookup("output")
	if flag == nil {
		t.Fatal("expected output flag")
	}
	if flag.DefValue != config.DefaultConfigFile {
		t.Errorf("expected default %q, got %q", config.DefaultConfigFile, flag.DefValue)
	}
	if cmd.Flags().Lookup("force") == nil {
		t.Error("expected force flag")
	}
}

func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	runInit := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		var out bytes.Buffer
		cmd := NewInitCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	t.Run("writes a loadable template", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "webscrape.yaml")
		out, err := runInit(t, "-o", path)
		if err != nil {
			t.Fatalf("failed to run init: %v", err)
		}
		if !strings.Contains(out, path) {
			t.Errorf("output should name the file: %s", out)
		}

		cf, err := config.LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load generated config: %v", err)
		}
		if !cf.Defaults.Options.ExtractMetadata || !cf.Defaults.Options.SaveJSON {
			t.Errorf("defaults = %+v", cf.Defaults.Options)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat config: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "existing.yaml")
		if err := os.WriteFile(path, []byte("keep"), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := runInit(t, "-o", path); err == nil {
			t.Fatal("expected error for existing file")
		}
		if _, err := runInit(t, "-o", path, "-f"); err != nil {
			t.Fatalf("failed to overwrite with force: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(data) == "keep" {
			t.Error("file was not overwritten")
		}
	})
}
