// Package transport builds the HTTP clients used by site crawlers.
//
// Connections are dialed either directly, through a small DNS cache that
// keeps resolved addresses of recently crawled hosts, or through a SOCKS5
// proxy when one is configured.
//
// DNS answers are kept in a bounded LRU. Failed lookups are cached too, so
// a dead host is not resolved again for every link to it.
package transport
