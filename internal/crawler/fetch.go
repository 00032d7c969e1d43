package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// outcome classifies a single page fetch.
type outcome int

const (
	// outcomeTransportError means no HTTP response was received.
	outcomeTransportError outcome = iota
	// outcomeRedirect means a 3xx with the page's only link in Location.
	outcomeRedirect
	// outcomeHTTPError means a non-2xx, non-redirect status.
	outcomeHTTPError
	// outcomeBinary means a 2xx response with a non-HTML content type.
	outcomeBinary
	// outcomeHTML means a 2xx HTML response that was parsed.
	outcomeHTML
	// outcomeParseError means a 2xx HTML response whose body could not be
	// read or parsed.
	outcomeParseError
)

// fetchResult is what a worker learned about one page.
type fetchResult struct {
	outcome    outcome
	httpStatus int
	title      string
	// links are absolute normalized URLs, not yet filtered by site.
	links []string
	err   error
}

// redirectStatuses are the statuses whose Location header is followed as a
// link rather than transparently.
var redirectStatuses = map[int]struct{}{
	http.StatusMovedPermanently:  {},
	http.StatusFound:             {},
	http.StatusSeeOther:          {},
	http.StatusTemporaryRedirect: {},
	http.StatusPermanentRedirect: {},
}

// isHTMLContentType reports whether the media type is text/html or
// application/xhtml+xml.
func isHTMLContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// fetchPage issues one GET for pageURL and classifies the response. The
// client must not follow redirects.
func (c *SiteCrawler) fetchPage(ctx context.Context, pageURL string) fetchResult {
	ctx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	start := time.Now()
	defer func() { fetchDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fetchResult{outcome: outcomeTransportError, err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.pageClient.Do(req)
	if err != nil {
		return fetchResult{outcome: outcomeTransportError, err: err}
	}
	defer resp.Body.Close()

	result := fetchResult{httpStatus: resp.StatusCode}

	if _, ok := redirectStatuses[resp.StatusCode]; ok {
		result.outcome = outcomeRedirect
		if location := resp.Header.Get("Location"); location != "" {
			if base, err := url.Parse(pageURL); err == nil {
				if link, ok := ResolveLink(base, location); ok {
					result.links = []string{link}
				}
			}
		}
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.outcome = outcomeHTTPError
		result.err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return result
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		result.outcome = outcomeBinary
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		result.outcome = outcomeParseError
		result.err = fmt.Errorf("failed to read body: %w", err)
		return result
	}

	parser, err := NewParser(pageURL)
	if err != nil {
		result.outcome = outcomeParseError
		result.err = err
		return result
	}
	parsed, err := parser.Parse(body, contentType)
	if err != nil {
		result.outcome = outcomeParseError
		result.err = fmt.Errorf("failed to parse page: %w", err)
		return result
	}

	result.outcome = outcomeHTML
	result.title = parsed.Title
	result.links = parsed.Links
	return result
}

// fetchRobots downloads robots.txt, following redirects. It returns the
// body and true only for a 200 response; every failure means "no robots".
func (c *SiteCrawler) fetchRobots(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.robotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+c.domain+"/robots.txt", nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Debug("robots.txt not available", "error", err)
		}
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("robots.txt not available", "status", resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		c.logger.Debug("failed to read robots.txt", "error", err)
		return "", false
	}
	return string(body), true
}
