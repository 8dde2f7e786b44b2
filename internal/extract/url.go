package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

// Readability output shorter than this falls back to raw tag stripping.
const minReadableLength = 100

// extractURL fetches a remote resource and branches on its declared content
// type. Non-2xx responses surface as a FetchError carrying the status code.
func (e *Extractor) extractURL(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("url extraction: creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("url extraction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("url extraction: reading response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return extractHTML(body, rawURL)
	case mediaType == "application/pdf":
		return extractPDF(body)
	case mediaType == "application/rss+xml" || mediaType == "application/atom+xml":
		return extractFeed(body, rawURL)
	case mediaType == "text/xml" || mediaType == "application/xml":
		// Many feeds are served as generic XML. Try feed parsing first.
		if r, err := extractFeed(body, rawURL); err == nil {
			return r, nil
		}
		return extractPlainURL(body, rawURL)
	case strings.HasPrefix(mediaType, "text/"):
		return extractPlainURL(body, rawURL)
	default:
		return nil, &UnsupportedContentTypeError{ContentType: contentType}
	}
}

// extractHTML prefers readability's main-content extraction, falling back
// to strict tag stripping when the page is too small or malformed for it.
// The structural flags come from the original markup, before any stripping.
func extractHTML(body []byte, rawURL string) (*Result, error) {
	markup := string(body)
	lower := strings.ToLower(markup)
	hasImages := strings.Contains(lower, "<img")
	hasTables := strings.Contains(lower, "<table")

	method := MethodHTMLStrip
	text := ""

	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err == nil {
		if t := strings.TrimSpace(article.TextContent); len(t) >= minReadableLength {
			text = collapseWhitespace(t)
			method = MethodReadability
		}
	}
	if text == "" {
		text = StripHTML(markup)
	}

	return &Result{
		ExtractedText:    text,
		FileFormat:       FormatText,
		WordCount:        wordCount(text),
		HasImages:        hasImages,
		HasTables:        hasTables,
		ExtractionMethod: method,
		ConfidenceScore:  confHTML,
		RawMetadata:      map[string]any{"source_url": rawURL},
	}, nil
}

// extractFeed normalizes an RSS/Atom feed into one text block, one item per
// section.
func extractFeed(body []byte, rawURL string) (*Result, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed extraction: %w", err)
	}

	var parts []string
	if feed.Title != "" {
		parts = append(parts, feed.Title)
	}
	for _, item := range feed.Items {
		var section []string
		if item.Title != "" {
			section = append(section, item.Title)
		}
		if item.Description != "" {
			section = append(section, StripHTML(item.Description))
		} else if item.Content != "" {
			section = append(section, StripHTML(item.Content))
		}
		if len(section) > 0 {
			parts = append(parts, strings.Join(section, "\n"))
		}
	}
	text := strings.Join(parts, "\n\n")

	return &Result{
		ExtractedText:    text,
		FileFormat:       FormatText,
		WordCount:        wordCount(text),
		ExtractionMethod: MethodFeed,
		ConfidenceScore:  confFeed,
		RawMetadata: map[string]any{
			"source_url": rawURL,
			"feed_title": feed.Title,
			"item_count": len(feed.Items),
		},
	}, nil
}

func extractPlainURL(body []byte, rawURL string) (*Result, error) {
	text := string(body)
	format := FormatText
	if strings.ToLower(path.Ext(rawURL)) == ".md" {
		format = FormatMarkdown
	}
	return &Result{
		ExtractedText:    text,
		FileFormat:       format,
		WordCount:        wordCount(text),
		ExtractionMethod: MethodDirect,
		ConfidenceScore:  confDirect,
		RawMetadata:      map[string]any{"source_url": rawURL},
	}, nil
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
