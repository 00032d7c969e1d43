package model

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidDomain is returned when a string is not a usable domain name.
var ErrInvalidDomain = errors.New("invalid domain")

const (
	// wwwPrefix is the host prefix treated as an alias of the bare domain.
	wwwPrefix = "www."
	// maxDomainLength is the longest valid DNS name without the trailing dot.
	maxDomainLength = 253
	// maxLabelLength is the longest valid DNS label.
	maxLabelLength = 63
)

// NormalizeDomain converts user input into the canonical domain form.
// It trims spaces and slashes, lower-cases the result, and strips a scheme
// prefix such as "http://". It does not validate.
//
// Examples:
//   - "Example.COM" -> "example.com"
//   - "https://example.com/" -> "example.com"
func NormalizeDomain(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+len("://"):]
	}
	s = strings.Trim(s, " /")
	return strings.ToLower(s)
}

// ValidateDomain returns ErrInvalidDomain unless domain contains a dot and
// is a syntactically valid host name. The domain is expected to be
// normalized already.
func ValidateDomain(domain string) error {
	if !IsValidDomain(domain) {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}
	return nil
}

// IsValidDomain reports whether domain contains a dot and is a
// syntactically valid host name. IP literals are rejected.
func IsValidDomain(domain string) bool {
	if domain == "" || len(domain) > maxDomainLength || !strings.Contains(domain, ".") {
		return false
	}
	if net.ParseIP(domain) != nil {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if !isValidLabel(label) {
			return false
		}
	}
	return true
}

// isValidLabel checks a single DNS label: 1-63 characters of [a-z0-9-]
// without a leading or trailing hyphen.
func isValidLabel(label string) bool {
	if label == "" || len(label) > maxLabelLength {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, c := range label {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// ParseDomain normalizes and validates s in one step.
func ParseDomain(s string) (string, error) {
	domain := NormalizeDomain(s)
	if err := ValidateDomain(domain); err != nil {
		return "", err
	}
	return domain, nil
}

// WWWVariant returns the other spelling of domain: "www.example.com" for
// "example.com" and vice versa.
func WWWVariant(domain string) string {
	if strings.HasPrefix(domain, wwwPrefix) {
		return strings.TrimPrefix(domain, wwwPrefix)
	}
	return wwwPrefix + domain
}

// BareDomain strips a leading "www." from domain.
func BareDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(domain), wwwPrefix)
}

// SameSite reports whether host (optionally with a port) names domain or
// its www variant. Other subdomains are separate sites.
func SameSite(host, domain string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return host != "" && BareDomain(host) == BareDomain(domain)
}
