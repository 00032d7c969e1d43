package report

import (
	"errors"
	"io"

	"github.com/nao1215/sitemapper/internal/model"
)

// ErrNilSite is returned when a writer is given no site to report.
var ErrNilSite = errors.New("no site to report")

// Writer renders crawl results in one output format.
type Writer interface {
	// Write renders one site, contents included when present, and returns
	// the number of bytes written.
	Write(site *model.Site) (int, error)

	// WriteSites renders a listing of site records.
	WriteSites(infos []*model.SiteInfo) (int, error)
}

// MultiWriter fans a report out to several writers, for example the
// terminal and an -o file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter over writers, used in order.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write calls Write on every writer. It stops at the first error and
// returns the bytes written so far.
func (m *MultiWriter) Write(site *model.Site) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(site) })
}

// WriteSites calls WriteSites on every writer, like Write.
func (m *MultiWriter) WriteSites(infos []*model.SiteInfo) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteSites(infos) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	total := 0
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the destination shared by the concrete writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
