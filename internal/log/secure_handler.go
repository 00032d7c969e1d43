package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces sensitive attribute values.
const MaskValue = "***REDACTED***"

// queryMask replaces sensitive query values. It survives URL encoding
// unchanged, unlike MaskValue.
const queryMask = "REDACTED"

// sensitiveKeywords mark an attribute key, header name or query parameter
// as secret when any of them appears in it. The bare word "key" is not
// one of them: "cache_key" and "sort_key" are ordinary.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth",
	"credential", "private", "cookie", "session", "sessid", "api_key", "apikey",
}

// sensitiveNames are matched exactly, for names too short to be keywords.
var sensitiveNames = map[string]struct{}{
	"sid":        {},
	"jsessionid": {},
	"x-api-key":  {},
	"api-key":    {},
}

// secretValues match values that are secret whatever their key: HTTP
// auth header values, JWTs and PEM private keys.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)-----BEGIN[A-Z ]*PRIVATE KEY-----`),
}

// SecureHandler is an slog.Handler that redacts secrets before records
// reach the wrapped handler. Crawl logs carry page and proxy URLs, so
// besides secret keys it masks URL passwords and sensitive query values.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next uses the default slog handler.
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled defers to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle redacts the record's attributes and forwards it.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs redacts attrs once, when they are bound.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SecureHandler{next: h.next.WithAttrs(redactAll(attrs))}
}

// WithGroup opens a group on the wrapped handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

func redactAll(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = redact(a)
	}
	return out
}

// redact returns a with its value masked when the key or value is secret.
// Groups are walked recursively.
func redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch {
	case a.Value.Kind() == slog.KindGroup:
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redactAll(a.Value.Group())...)}
	case isSensitiveName(a.Key):
		return slog.String(a.Key, MaskValue)
	case a.Value.Kind() != slog.KindString:
		return a
	}

	value := a.Value.String()
	if isSecretValue(value) {
		return slog.String(a.Key, MaskValue)
	}
	if masked, ok := redactURL(value); ok {
		return slog.String(a.Key, masked)
	}
	return a
}

// isSensitiveName reports whether an attribute key, header or query
// parameter name denotes a secret. It ignores case.
func isSensitiveName(name string) bool {
	name = strings.ToLower(name)
	if _, ok := sensitiveNames[name]; ok {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

func isSecretValue(value string) bool {
	for _, re := range secretValues {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// redactURL masks the userinfo password and the sensitive query values of
// an absolute URL. It reports false when value is not such a URL or has
// nothing to mask.
func redactURL(value string) (string, bool) {
	if !strings.Contains(value, "://") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return "", false
	}

	changed := false
	if u.RawQuery != "" {
		query := u.Query()
		for name := range query {
			if isSensitiveName(name) {
				query.Set(name, queryMask)
				changed = true
			}
		}
		if changed {
			u.RawQuery = query.Encode()
		}
	}

	hasPassword := false
	if u.User != nil {
		_, hasPassword = u.User.Password()
	}
	if hasPassword {
		u.User = url.UserPassword(u.User.Username(), queryMask)
		changed = true
	}
	if !changed {
		return "", false
	}

	s := u.String()
	if hasPassword {
		// url.String escapes '*', so the userinfo mask is swapped in last.
		s = strings.Replace(s, ":"+queryMask+"@", ":"+MaskValue+"@", 1)
	}
	return s, true
}

// NewSecureLogger returns a text logger on w. verbose selects Debug
// instead of Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON records.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
