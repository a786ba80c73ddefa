package extract

import (
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/nao1215/webscrape/internal/model"
)

const samplePage = `<html>
<head>
	<title>  Sample Page </title>
	<meta name="description" content=" A page for tests ">
	<meta name="keywords" content="go, crawl">
	<style>body { color: red; }</style>
	<script>var secret = "hidden";</script>
</head>
<body>
	<h1>Heading</h1>
	<p>First paragraph</p>
	<a href="/p1">one</a>
	<a href="https://other.example/p2#frag">two</a>
	<a href="mailto:a@example.com">mail</a>
	<a href=" javascript:void(0) ">js</a>
	<img src="/img/pic.png">
	<img src="data:image/png;base64,AAAA">
	<video><source src="/v/clip.mp4"><source src="clip.webm"></video>
	<video src="https://cdn.example/solo.mov"></video>
</body>
</html>`

func mustParse(t *testing.T, raw, body string) *Page {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse URL: %v", err)
	}
	page, err := Parse(u, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse page: %v", err)
	}
	return page
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	t.Run("reads title and meta tags", func(t *testing.T) {
		t.Parallel()

		res := Metadata(mustParse(t, "http://example.com/", samplePage))
		if !res.OK() {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Value.Title != "Sample Page" {
			t.Errorf("expected title 'Sample Page', got %q", res.Value.Title)
		}
		if res.Value.Description != "A page for tests" {
			t.Errorf("unexpected description %q", res.Value.Description)
		}
		if res.Value.Keywords != "go, crawl" {
			t.Errorf("unexpected keywords %q", res.Value.Keywords)
		}
	})

	t.Run("missing values are empty", func(t *testing.T) {
		t.Parallel()

		res := Metadata(mustParse(t, "http://example.com/", `<p>no head</p>`))
		if res.Value != (PageMetadata{}) {
			t.Errorf("expected empty metadata, got %+v", res.Value)
		}
	})

	t.Run("nil page degrades", func(t *testing.T) {
		t.Parallel()

		res := Metadata(nil)
		if res.OK() {
			t.Error("expected error for nil page")
		}
	})
}

func TestText(t *testing.T) {
	t.Parallel()

	res := Text(mustParse(t, "http://example.com/", samplePage))
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	if strings.Contains(res.Value, "secret") || strings.Contains(res.Value, "color") {
		t.Errorf("script or style content leaked into text: %q", res.Value)
	}
	for _, want := range []string{"Sample Page", "Heading", "First paragraph", "one"} {
		if !strings.Contains(res.Value, want) {
			t.Errorf("expected text to contain %q, got %q", want, res.Value)
		}
	}
	for _, line := range strings.Split(res.Value, "\n") {
		if line == "" || line != strings.TrimSpace(line) {
			t.Errorf("expected trimmed non-empty lines, got %q", line)
		}
	}
}

func TestLinks(t *testing.T) {
	t.Parallel()

	res := Links(mustParse(t, "http://example.com/dir/page", samplePage))
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	want := []string{"http://example.com/p1", "https://other.example/p2#frag"}
	if len(res.Value) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(res.Value), res.Value)
	}
	for i := range want {
		if res.Value[i] != want[i] {
			t.Errorf("link %d: expected %q, got %q", i, want[i], res.Value[i])
		}
	}

	t.Run("bad href is reported and skipped", func(t *testing.T) {
		t.Parallel()

		res := Links(mustParse(t, "http://example.com/", `<a href="http://[::1">x</a><a href="/ok">ok</a>`))
		if res.OK() {
			t.Error("expected an error for the malformed href")
		}
		if len(res.Value) != 1 || res.Value[0] != "http://example.com/ok" {
			t.Errorf("expected the valid link to survive, got %v", res.Value)
		}
	})
}

func TestMedia(t *testing.T) {
	t.Parallel()

	page := mustParse(t, "http://example.com/dir/", samplePage)

	tests := []struct {
		name   string
		images bool
		videos bool
		want   []model.MediaReference
	}{
		{
			name:   "images only",
			images: true,
			want:   []model.MediaReference{{URL: "http://example.com/img/pic.png", Kind: model.MediaImage}},
		},
		{
			name:   "videos only",
			videos: true,
			want: []model.MediaReference{
				{URL: "http://example.com/v/clip.mp4", Kind: model.MediaVideo},
				{URL: "http://example.com/dir/clip.webm", Kind: model.MediaVideo},
				{URL: "https://cdn.example/solo.mov", Kind: model.MediaVideo},
			},
		},
		{
			name: "neither",
			want: []model.MediaReference{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := Media(page, tt.images, tt.videos)
			if !res.OK() {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if len(res.Value) != len(tt.want) {
				t.Fatalf("expected %d references, got %d: %v", len(tt.want), len(res.Value), res.Value)
			}
			for i := range tt.want {
				if res.Value[i] != tt.want[i] {
					t.Errorf("reference %d: expected %+v, got %+v", i, tt.want[i], res.Value[i])
				}
			}
		})
	}
}

func TestPipelineExtract(t *testing.T) {
	t.Parallel()

	t.Run("only enabled fields are present", func(t *testing.T) {
		t.Parallel()

		p := New(model.NewCrawlOptions(model.WithExtractMetadata()))
		res, err := p.Extract("http://example.com/", strings.NewReader(samplePage))
		if err != nil {
			t.Fatalf("failed to extract: %v", err)
		}

		if res.Record.Title == nil || *res.Record.Title != "Sample Page" {
			t.Errorf("expected title to be set, got %v", res.Record.Title)
		}
		if res.Record.Text != nil {
			t.Error("expected text to be absent")
		}
		if res.Record.Links != nil {
			t.Error("expected links to be absent")
		}
		if len(res.Candidates) != 2 {
			t.Errorf("expected candidates to be computed anyway, got %v", res.Candidates)
		}
		if len(res.Media) != 0 {
			t.Errorf("expected no media, got %v", res.Media)
		}
	})

	t.Run("links enabled but page has none", func(t *testing.T) {
		t.Parallel()

		p := New(model.NewCrawlOptions(model.WithExtractLinks()))
		res, err := p.Extract("http://example.com/", strings.NewReader(`<p>nothing</p>`))
		if err != nil {
			t.Fatalf("failed to extract: %v", err)
		}
		if res.Record.Links == nil || len(res.Record.Links) != 0 {
			t.Errorf("expected empty non-nil links, got %#v", res.Record.Links)
		}
	})

	t.Run("media collected when downloads enabled", func(t *testing.T) {
		t.Parallel()

		p := New(model.NewCrawlOptions(model.WithDownloadImages(), model.WithDownloadVideos()))
		res, err := p.Extract("http://example.com/", strings.NewReader(samplePage))
		if err != nil {
			t.Fatalf("failed to extract: %v", err)
		}
		if len(res.Media) != 4 {
			t.Errorf("expected 4 media references, got %d", len(res.Media))
		}
	})

	t.Run("unreadable body degrades to defaults", func(t *testing.T) {
		t.Parallel()

		p := New(model.AllOptions())
		res, err := p.Extract("http://example.com/", failingReader{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(res.Problems) != 1 || res.Problems[0].Step != StepParse {
			t.Fatalf("expected one parse problem, got %v", res.Problems)
		}
		if res.Record.Title == nil || *res.Record.Title != "" {
			t.Errorf("expected empty title default, got %v", res.Record.Title)
		}
		if res.Record.Text == nil || *res.Record.Text != "" {
			t.Errorf("expected empty text default, got %v", res.Record.Text)
		}
		if res.Record.Links == nil {
			t.Error("expected empty links default")
		}
	})

	t.Run("invalid page URL", func(t *testing.T) {
		t.Parallel()

		_, err := New(model.AllOptions()).Extract("http://[::1", strings.NewReader(""))
		if !errors.Is(err, ErrInvalidPageURL) {
			t.Errorf("expected ErrInvalidPageURL, got %v", err)
		}
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
