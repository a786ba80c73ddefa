package crawler

import "net/url"

// Verdict is the classification of one discovered link.
type Verdict struct {
	// Followable is true for http(s) links with a host.
	Followable bool

	// Internal is true when the link's host equals the seed host exactly.
	// It is meaningful only when Followable is true.
	Internal bool
}

// Classify decides whether link may be followed and whether it is internal
// to seedHost. Hosts are compared as written, port included, so
// "example.com" and "www.example.com" are different sites.
func Classify(link, seedHost string) Verdict {
	u, err := url.Parse(link)
	if err != nil {
		return Verdict{}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Verdict{}
	}
	if u.Host == "" {
		return Verdict{}
	}
	return Verdict{Followable: true, Internal: u.Host == seedHost}
}
