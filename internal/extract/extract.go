// Package extract normalizes heterogeneous raw input (files, URLs, free
// text) into plain text with format metadata and a per-method confidence
// score.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/merchantlab/curator/internal/llm"
)

const visionInstruction = "Extract all readable text from this image. If the image contains charts, tables, or screenshots, describe their content precisely. Return only the extracted text and descriptions, no commentary."

// Extractor converts a single raw input into a normalized extraction result.
type Extractor struct {
	transcriber llm.Transcriber
	vision      llm.Vision
	client      *http.Client
	userAgent   string
}

// New creates an Extractor. The transcriber and vision clients may be nil;
// the corresponding file formats then fail with a descriptive error.
func New(transcriber llm.Transcriber, vision llm.Vision, timeout time.Duration, userAgent string) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "Curator/1.0 (best-practice ingestion)"
	}
	return &Extractor{
		transcriber: transcriber,
		vision:      vision,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Extract dispatches on the input's source type. It returns a typed error
// for unsupported or unrecognized input; it never retries internally.
func (e *Extractor) Extract(ctx context.Context, in Input) (*Result, error) {
	switch in.Source {
	case SourceText:
		if in.Text == nil {
			return nil, fmt.Errorf("text extraction: no text input provided")
		}
		return extractText(in.Text), nil
	case SourceFile:
		if in.File == nil {
			return nil, fmt.Errorf("file extraction: no file input provided")
		}
		return e.extractFile(ctx, in.File)
	case SourceURL:
		if in.URL == "" {
			return nil, fmt.Errorf("url extraction: no URL provided")
		}
		return e.extractURL(ctx, in.URL)
	default:
		return nil, fmt.Errorf("unknown source type: %q", in.Source)
	}
}

// extractText concatenates title, description, and body with blank-line
// separators, skipping absent fields.
func extractText(in *TextInput) *Result {
	var parts []string
	for _, s := range []string{in.Title, in.Description, in.Text} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	text := strings.Join(parts, "\n\n")

	return &Result{
		ExtractedText:    text,
		FileFormat:       FormatText,
		WordCount:        wordCount(text),
		ExtractionMethod: MethodDirect,
		ConfidenceScore:  confDirect,
		RawMetadata:      map[string]any{},
	}
}

func (e *Extractor) extractFile(ctx context.Context, f *FileInput) (*Result, error) {
	format, err := DetectFileFormat(f.MIMEType, f.Name)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatAudio:
		return e.extractAudio(ctx, f)
	case FormatPDF:
		return extractPDF(f.Data)
	case FormatText, FormatJSON:
		return extractPlainFile(f.Data, format)
	case FormatMarkdown:
		return extractMarkdown(f.Data)
	case FormatImage:
		return e.extractImage(ctx, f)
	default:
		return nil, &UnsupportedFileTypeError{Format: format}
	}
}

func (e *Extractor) extractAudio(ctx context.Context, f *FileInput) (*Result, error) {
	if e.transcriber == nil {
		return nil, fmt.Errorf("audio extraction: no transcription service configured")
	}

	transcript, err := e.transcriber.Transcribe(ctx, f.Data, f.Name, "")
	if err != nil {
		return nil, fmt.Errorf("audio extraction: %w", err)
	}

	text := strings.TrimSpace(transcript.Text)
	return &Result{
		ExtractedText:    text,
		FileFormat:       FormatAudio,
		WordCount:        wordCount(text),
		ExtractionMethod: MethodTranscription,
		ConfidenceScore:  confTranscription,
		RawMetadata: map[string]any{
			"duration_seconds": transcript.Duration,
			"language":         transcript.Language,
		},
	}, nil
}

func (e *Extractor) extractImage(ctx context.Context, f *FileInput) (*Result, error) {
	if e.vision == nil {
		return nil, fmt.Errorf("image extraction: no vision service configured")
	}

	text, err := e.vision.DescribeImage(ctx, visionInstruction, f.Data)
	if err != nil {
		return nil, fmt.Errorf("image extraction: %w", err)
	}

	text = strings.TrimSpace(text)
	return &Result{
		ExtractedText:    text,
		FileFormat:       FormatImage,
		WordCount:        wordCount(text),
		HasImages:        true,
		ExtractionMethod: MethodVision,
		ConfidenceScore:  confVision,
		RawMetadata:      map[string]any{"filename": f.Name},
	}, nil
}

func extractPlainFile(data []byte, format FileFormat) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s extraction: buffer is not valid UTF-8", format)
	}

	text := string(data)
	return &Result{
		ExtractedText:    text,
		FileFormat:       format,
		WordCount:        wordCount(text),
		ExtractionMethod: MethodDirect,
		ConfidenceScore:  confDirect,
		RawMetadata:      map[string]any{},
	}, nil
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
