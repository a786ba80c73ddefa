package crawler

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// ErrUnexpectedStatus is returned for non-2xx page responses.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// ErrBodyTooLarge is returned when a page exceeds the body size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// fetchedPage is a page body as received, after content decoding.
type fetchedPage struct {
	raw         []byte
	contentType string
}

// text returns the body converted to UTF-8. The charset comes from the
// Content-Type header, a BOM or a meta tag. A body without a declared
// charset that is already valid UTF-8 is returned as is.
func (p fetchedPage) text() []byte {
	enc, name, certain := charset.DetermineEncoding(p.raw, p.contentType)
	if name == "utf-8" || (!certain && utf8.Valid(p.raw)) {
		return p.raw
	}
	out, err := enc.NewDecoder().Bytes(p.raw)
	if err != nil {
		return p.raw
	}
	return out
}

// fetchPage downloads one page. The request runs detached from ctx's
// cancellation and is bounded by the page timeout instead, so stopping a
// run never cuts a fetch short.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (fetchedPage, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fetchedPage{}, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := s.client.Do(req)
	if err != nil {
		return fetchedPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fetchedPage{}, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	body, err := s.readBody(resp)
	if err != nil {
		return fetchedPage{}, err
	}
	return fetchedPage{raw: body, contentType: resp.Header.Get("Content-Type")}, nil
}

// readBody decodes the response according to its Content-Encoding and
// enforces the body size limit.
func (s *Spider) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	var closer io.Closer

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader, closer = gz, gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader, closer = fl, fl
	}
	if closer != nil {
		defer closer.Close()
	}

	body, err := io.ReadAll(io.LimitReader(reader, s.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, s.maxBodySize)
	}
	return body, nil
}
