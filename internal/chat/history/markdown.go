package history

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// ExtractTitle returns the text of the first heading in a markdown document,
// or "" when the document has none.
func ExtractTitle(source []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(source))
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.Heading); ok {
			title = nodeText(n, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(title)
}

// ExtractSummary returns the text of the first paragraph, truncated to
// maxRunes runes.
func ExtractSummary(source []byte, maxRunes int) string {
	doc := markdown.Parser().Parse(text.NewReader(source))
	var summary string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.Paragraph); ok {
			summary = nodeText(n, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	summary = strings.TrimSpace(summary)
	runes := []rune(summary)
	if len(runes) > maxRunes {
		summary = string(runes[:maxRunes]) + "..."
	}
	return summary
}

// ExtractTitleOrDefault is ExtractTitle with a fallback for documents
// without headings.
func ExtractTitleOrDefault(source string) string {
	if t := ExtractTitle([]byte(source)); t != "" {
		return t
	}
	return "Research Report"
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
