// Package segment turns extracted article markdown into the ordered
// list of script segments the pipeline resolves visuals for.
package segment

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractImages collects image destinations from markdown in document
// order and rewrites each image's URL to a 1-based $n$ marker, so the
// returned markdown reads like:
//
//	Some paragraph. ![]($1$) The next paragraph.
//
// The image list and the markers share the same indexing; marker n
// refers to images[n-1].
func ExtractImages(md string) (string, []string) {
	doc := goldmark.New().Parser().Parse(text.NewReader([]byte(md)))

	var images []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			dest := string(img.Destination)
			if dest != "" {
				images = append(images, dest)
			}
		}
		return ast.WalkContinue, nil
	})

	cleaned := md
	for i, link := range images {
		marker := fmt.Sprintf("$%d$", i+1)
		// First occurrence only: duplicate URLs are distinct images in
		// document order.
		cleaned = strings.Replace(cleaned, link, marker, 1)
	}
	return cleaned, images
}

// Title returns the first level-one heading of the markdown, or "".
func Title(md string) string {
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return ""
}
