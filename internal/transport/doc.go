// Package transport builds the HTTP clients used for crawling and media
// downloads.
//
// A Client dials either directly or through a SOCKS5 proxy. The proxy can
// be an external one given as host:port or a Tor daemon started in-process
// with EmbeddedTor. Site credentials (a cookie and extra headers) are
// injected only into requests to the host they belong to.
//
// Create one Client per run and pass its HTTP client to the components
// that need it rather than using global state.
package transport
