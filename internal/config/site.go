package config

import (
	"maps"
	"strings"

	"github.com/nao1215/webscrape/internal/model"
)

// SiteConfig holds the overrides for one host.
type SiteConfig struct {
	// Cookie is sent with every request to the host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to every request to the host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth replaces the global depth for seeds on this host. A pointer so
	// that 0 (seed only) can be configured.
	Depth *int `yaml:"depth,omitempty"`

	// Options are switched on in addition to the CLI switches.
	Options model.CrawlOptions `yaml:"options,omitempty"`
}

// File represents the structure of the .webscrape configuration file.
type File struct {
	// Sites maps host names (without scheme) to their overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless a site entry overrides it.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host, merged over the
// defaults. Host names match case-insensitively.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[host]
	if !ok {
		for name, s := range cf.Sites {
			if strings.EqualFold(name, host) {
				site, ok = s, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.Depth != nil {
		result.Depth = site.Depth
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	result.Options = result.Options.Merge(site.Options)

	return result
}
