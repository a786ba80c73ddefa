package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/webscrape/internal/model"
)

// Frontier is the FIFO of pending entries plus the set of visited
// addresses. An address is accepted at most once while queued and never
// after it was visited. Addresses are compared after normalization.
type Frontier struct {
	queue   []model.FrontierEntry
	queued  map[string]struct{}
	visited map[string]struct{}
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queue:   make([]model.FrontierEntry, 0),
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Push appends an entry. It returns false when the address is already
// queued or visited.
func (f *Frontier) Push(e model.FrontierEntry) bool {
	key := normalizeURL(e.URL)
	if _, ok := f.visited[key]; ok {
		return false
	}
	if _, ok := f.queued[key]; ok {
		return false
	}
	f.queued[key] = struct{}{}
	f.queue = append(f.queue, e)
	return true
}

// Pop removes and returns the oldest entry.
func (f *Frontier) Pop() (model.FrontierEntry, bool) {
	if len(f.queue) == 0 {
		return model.FrontierEntry{}, false
	}
	e := f.queue[0]
	f.queue[0] = model.FrontierEntry{}
	f.queue = f.queue[1:]
	delete(f.queued, normalizeURL(e.URL))
	return e, true
}

// Visit marks an address as visited. It returns false if it already was.
func (f *Frontier) Visit(rawURL string) bool {
	key := normalizeURL(rawURL)
	if _, ok := f.visited[key]; ok {
		return false
	}
	f.visited[key] = struct{}{}
	return true
}

// Visited reports whether an address has been visited.
func (f *Frontier) Visited(rawURL string) bool {
	_, ok := f.visited[normalizeURL(rawURL)]
	return ok
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// VisitedCount returns the number of visited addresses.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// Pending returns a copy of the pending entries in dequeue order.
func (f *Frontier) Pending() []model.FrontierEntry {
	out := make([]model.FrontierEntry, len(f.queue))
	copy(out, f.queue)
	return out
}

// normalizeURL normalizes a URL for deduplication: the fragment is
// dropped, scheme and host are lowercased, and an empty path becomes "/".
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
