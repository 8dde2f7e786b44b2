package extract

import (
	"fmt"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// extractMarkdown reads the buffer verbatim and walks the markdown AST to
// set the structural flags.
func extractMarkdown(data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("markdown extraction: buffer is not valid UTF-8")
	}

	hasImages, hasTables := scanMarkdownStructure(data)

	content := string(data)
	return &Result{
		ExtractedText:    content,
		FileFormat:       FormatMarkdown,
		WordCount:        wordCount(content),
		HasImages:        hasImages,
		HasTables:        hasTables,
		ExtractionMethod: MethodDirect,
		ConfidenceScore:  confDirect,
		RawMetadata:      map[string]any{},
	}, nil
}

func scanMarkdownStructure(data []byte) (hasImages, hasTables bool) {
	doc := markdownParser.Parser().Parse(text.NewReader(data))
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Image:
			hasImages = true
		case *east.Table:
			hasTables = true
		}
		return ast.WalkContinue, nil
	})
	return hasImages, hasTables
}
