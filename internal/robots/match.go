package robots

import "strings"

// matchPattern reports whether path matches a robots.txt pattern.
//
// The pattern is anchored at the start of the path. "*" matches any run of
// characters, including none, and a trailing "$" anchors the pattern to
// the end of the path. An empty pattern matches nothing.
func matchPattern(pattern, path string) bool {
	if pattern == "" {
		return false
	}

	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	pos := len(parts[0])
	if len(parts) == 1 {
		return !anchored || pos == len(path)
	}

	// Leftmost matching of the inner literals is sufficient because "*"
	// is the only wildcard.
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(path[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}

	last := parts[len(parts)-1]
	if anchored {
		return len(path)-pos >= len(last) && strings.HasSuffix(path, last)
	}
	return strings.Contains(path[pos:], last)
}

// literalLength is the specificity of a pattern: its length without
// wildcards and the end anchor.
func literalLength(pattern string) int {
	pattern = strings.TrimSuffix(pattern, "$")
	return len(pattern) - strings.Count(pattern, "*")
}

// NormalizePath canonicalizes a query path before matching.
//
// The path part (before any "?") is rewritten: backslashes become slashes,
// runs of slashes collapse, "." and ".." segments are resolved, a leading
// slash is added and a trailing slash is kept. The query part and all
// other characters are left untouched, so matching stays case-sensitive.
//
// Examples:
//   - "" -> "/"
//   - "file.html" -> "/file.html"
//   - "//a//file.html" -> "/a/file.html"
//   - "/\\/f.html" -> "/f.html"
//   - "/a/./b/../c/" -> "/a/c/"
func NormalizePath(path string) string {
	query := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, query = path[:i], path[i:]
	}

	path = strings.ReplaceAll(path, `\`, "/")
	trailing := strings.HasSuffix(path, "/")

	segments := strings.Split(path, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}

	normalized := "/" + strings.Join(out, "/")
	if trailing && len(out) > 0 {
		normalized += "/"
	}
	return normalized + query
}
