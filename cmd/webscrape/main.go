// Package main provides the entry point for the webscrape CLI.
//
// webscrape crawls a website breadth-first from one or more seed URLs,
// extracts page metadata, text and links, downloads embedded images and
// videos, and writes the results as JSON and CSV.
//
// Usage:
//
//	webscrape scrape https://example.com/ --all
//	webscrape scrape https://a.example/ https://b.example/ --links --json --batch 2
//
// See --help for all available options.
package main

func main() {
	Execute()
}
