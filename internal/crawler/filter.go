package crawler

import (
	"path"
	"path/filepath"
	"strings"
)

// binaryExtensions are file extensions that are never enqueued. Links to
// them are dropped before they reach the frontier.
var binaryExtensions = map[string]struct{}{
	"arc": {}, "arj": {}, "bin": {}, "com": {}, "csv": {}, "dll": {}, "exe": {},
	"gz": {}, "pdf": {}, "rar": {}, "tar": {}, "txt": {}, "zip": {}, "bz2": {},
	"cab": {}, "msi": {}, "gif": {}, "jpg": {}, "jpeg": {}, "png": {}, "mpeg": {},
	"mpg": {}, "iso": {}, "js": {}, "css": {},
}

// isBinaryPath reports whether the last segment of urlPath carries one of
// binaryExtensions, compared case-insensitively.
func isBinaryPath(urlPath string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(urlPath)), ".")
	if ext == "" {
		return false
	}
	_, ok := binaryExtensions[ext]
	return ok
}

// Filter decides which paths of a site are enqueued, from the per-site
// ignore and follow glob patterns.
type Filter struct {
	// ignore are path patterns that are never crawled.
	ignore []string

	// follow, when non-empty, restricts crawling to matching paths.
	follow []string
}

// NewFilter builds a filter. Empty patterns are dropped.
func NewFilter(ignore, follow []string) Filter {
	return Filter{ignore: compact(ignore), follow: compact(follow)}
}

// Allows checks if a path should be crawled.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, crawl it
func (f Filter) Allows(urlPath string) bool {
	if urlPath == "" {
		urlPath = "/"
	}
	for _, pattern := range f.ignore {
		if matchGlob(pattern, urlPath) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchGlob(pattern, urlPath) {
			return true
		}
	}
	return false
}

// matchGlob checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match everything below a directory
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users/42"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchGlob(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(urlPath, prefix+"/") || urlPath == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(urlPath, strings.TrimPrefix(pattern, "*")) {
		return true
	}

	if matched, err := filepath.Match(pattern, urlPath); err == nil && matched {
		return true
	}

	// Patterns without a slash are tried against the last segment too.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, path.Base(urlPath)); err == nil && matched {
			return true
		}
	}

	return false
}

func compact(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
