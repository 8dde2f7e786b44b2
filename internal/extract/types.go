package extract

// SourceType identifies which kind of raw input an ingestion attempt carries.
type SourceType string

const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
	SourceText SourceType = "text"
)

// Method identifies the extraction strategy that produced a result.
type Method string

const (
	MethodDirect        Method = "direct"
	MethodTranscription Method = "speech_to_text"
	MethodVision        Method = "vision_ocr"
	MethodReadability   Method = "readability"
	MethodHTMLStrip     Method = "html_strip"
	MethodPDFParse      Method = "pdf_parse"
	MethodFeed          Method = "feed"
)

// Confidence is a property of the extraction method, not of the content:
// a verbatim copy is fully trusted, lossy paths less so.
const (
	confDirect        = 1.0
	confTranscription = 0.95
	confPDF           = 0.9
	confFeed          = 0.9
	confVision        = 0.85
	confHTML          = 0.8
)

// FileInput is a raw file handed to the extractor.
type FileInput struct {
	Name     string
	MIMEType string
	Data     []byte
}

// TextInput is free text handed to the extractor.
type TextInput struct {
	Text        string
	Title       string
	Description string
}

// Input is the envelope for a single extraction. Exactly one of File, URL,
// or Text is set, matching Source.
type Input struct {
	Source SourceType
	File   *FileInput
	URL    string
	Text   *TextInput
}

// Result is the normalized output of an extraction.
type Result struct {
	ExtractedText    string
	FileFormat       FileFormat
	WordCount        int
	HasImages        bool
	HasTables        bool
	ExtractionMethod Method
	ConfidenceScore  float64
	RawMetadata      map[string]any
}
