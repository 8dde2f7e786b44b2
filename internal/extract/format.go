package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileFormat is the closed set of content formats the extractor knows about.
type FileFormat string

const (
	FormatAudio    FileFormat = "audio"
	FormatPDF      FileFormat = "pdf"
	FormatText     FileFormat = "text"
	FormatMarkdown FileFormat = "markdown"
	FormatImage    FileFormat = "image"
	FormatVideo    FileFormat = "video"
	FormatJSON     FileFormat = "json"

	// FormatUnknown is returned alongside an UnrecognizedFileTypeError.
	FormatUnknown FileFormat = ""
)

// UnrecognizedFileTypeError reports a file whose MIME type and extension
// match no known format. Detection never guesses.
type UnrecognizedFileTypeError struct {
	MIMEType string
	Filename string
}

func (e *UnrecognizedFileTypeError) Error() string {
	return fmt.Sprintf("unrecognized file type (mime=%q, name=%q)", e.MIMEType, e.Filename)
}

// UnsupportedFileTypeError reports a recognized format the extractor cannot
// process (currently video).
type UnsupportedFileTypeError struct {
	Format FileFormat
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Format)
}

// UnsupportedContentTypeError reports a URL response content type with no
// extraction branch.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("unsupported content type: %s", e.ContentType)
}

// FetchError reports a non-2xx HTTP response during URL extraction.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: HTTP %d", e.URL, e.StatusCode)
}

var extensionFormats = map[string]FileFormat{
	".pdf":      FormatPDF,
	".mp3":      FormatAudio,
	".wav":      FormatAudio,
	".m4a":      FormatAudio,
	".ogg":      FormatAudio,
	".flac":     FormatAudio,
	".mp4":      FormatVideo,
	".mov":      FormatVideo,
	".avi":      FormatVideo,
	".mkv":      FormatVideo,
	".webm":     FormatVideo,
	".png":      FormatImage,
	".jpg":      FormatImage,
	".jpeg":     FormatImage,
	".gif":      FormatImage,
	".webp":     FormatImage,
	".bmp":      FormatImage,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatText,
	".text":     FormatText,
	".json":     FormatJSON,
}

// DetectFileFormat resolves a declared MIME type and filename to a format.
// MIME type wins; the filename extension is the fallback. The priority order
// is pdf, audio, video, image, markdown, text, json. A pair matching nothing
// yields FormatUnknown and a typed error, never a guess.
func DetectFileFormat(mimeType, filename string) (FileFormat, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case mt == "application/pdf":
		return FormatPDF, nil
	case strings.HasPrefix(mt, "audio/"):
		return FormatAudio, nil
	case strings.HasPrefix(mt, "video/"):
		return FormatVideo, nil
	case strings.HasPrefix(mt, "image/"):
		return FormatImage, nil
	case mt == "text/markdown":
		return FormatMarkdown, nil
	case strings.HasPrefix(mt, "text/"):
		return FormatText, nil
	case mt == "application/json":
		return FormatJSON, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}

	return FormatUnknown, &UnrecognizedFileTypeError{MIMEType: mimeType, Filename: filename}
}
