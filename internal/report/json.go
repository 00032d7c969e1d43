package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/sitemapper/internal/model"
)

// JSONWriter writes sites as one JSON document per call, for scripts and
// other tools. Page URLs are written unescaped, so "&" stays "&".
type JSONWriter struct {
	baseWriter

	prefix string
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values; see json.Encoder.SetIndent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter. Output is compact unless an indent
// option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the site, info and contents.
func (w *JSONWriter) Write(site *model.Site) (int, error) {
	if site == nil {
		return 0, ErrNilSite
	}
	return w.encode(site)
}

// WriteSites outputs the records as a JSON array; nil is written as [].
func (w *JSONWriter) WriteSites(infos []*model.SiteInfo) (int, error) {
	if infos == nil {
		infos = []*model.SiteInfo{}
	}
	return w.encode(infos)
}

// encode buffers the whole document so a marshal error writes nothing.
func (w *JSONWriter) encode(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(w.prefix, w.indent)
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
